package authz

import "github.com/zahraAghaee77/School-Management-API/internal/models"

// Actor identifies the requesting user for permission evaluation. The role
// set comes from the access token; ManagedSchoolID is resolved per request
// and stays empty when the actor manages no school.
type Actor struct {
	ID              string
	Roles           []models.UserRole
	ManagedSchoolID string
}

// HasRole reports whether the actor holds the named role.
func (a Actor) HasRole(role models.UserRole) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ManagesSchool reports whether the actor is the manager of the given school.
func (a Actor) ManagesSchool(schoolID string) bool {
	return a.ManagedSchoolID != "" && a.ManagedSchoolID == schoolID
}

// ActorFromClaims builds an Actor from validated JWT claims. The caller fills
// in ManagedSchoolID when the actor holds the manager role.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{ID: claims.UserID, Roles: claims.Roles}
}
