package handler

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/middleware"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

type managedSchoolReader interface {
	FindByManagerID(ctx context.Context, managerID string) (*models.School, error)
}

// ActorResolver turns validated JWT claims into a permission actor. For
// managers the managed school is looked up per request so the actor always
// reflects the current assignment, not the one at token issue time.
type ActorResolver struct {
	schools managedSchoolReader
}

// NewActorResolver constructs an ActorResolver.
func NewActorResolver(schools managedSchoolReader) *ActorResolver {
	return &ActorResolver{schools: schools}
}

// Resolve builds the actor for the current request.
func (r *ActorResolver) Resolve(c *gin.Context) (authz.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return authz.Actor{}, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	actor := authz.ActorFromClaims(claims)
	if actor.HasRole(models.RoleManager) && r.schools != nil {
		school, err := r.schools.FindByManagerID(c.Request.Context(), actor.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return authz.Actor{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve managed school")
			}
		} else {
			actor.ManagedSchoolID = school.ID
		}
	}
	return actor, nil
}
