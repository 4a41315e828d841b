package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the named role groups driving authorization.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table. Roles are
// aggregated from the user_roles table; a user may hold several at once.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	NationalID   string         `db:"national_id" json:"national_id"`
	Bio          *string        `db:"bio" json:"bio,omitempty"`
	Active       bool           `db:"active" json:"active"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(role UserRole) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if UserRole(r) == role {
			return true
		}
	}
	return false
}

// RoleSet returns the user's roles as typed values.
func (u *User) RoleSet() []UserRole {
	if u == nil {
		return nil
	}
	roles := make([]UserRole, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, UserRole(r))
	}
	return roles
}

// RegisterRequest creates a new account. The account starts inactive and
// waits for admin approval.
type RegisterRequest struct {
	Username   string     `json:"username" validate:"required,min=3,max=64"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password" validate:"required,min=8"`
	NationalID string     `json:"national_id" validate:"required,min=5,max=32"`
	Bio        *string    `json:"bio,omitempty"`
	Roles      []UserRole `json:"roles" validate:"required,min=1,dive,oneof=MANAGER TEACHER STUDENT"`
}

// AdminCreateUserRequest creates an account directly. The account is active
// immediately and may carry any role, including admin.
type AdminCreateUserRequest struct {
	Username   string     `json:"username" validate:"required,min=3,max=64"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password" validate:"required,min=8"`
	NationalID string     `json:"national_id" validate:"required,min=5,max=32"`
	Bio        *string    `json:"bio,omitempty"`
	Roles      []UserRole `json:"roles" validate:"required,min=1,dive,oneof=ADMIN MANAGER TEACHER STUDENT"`
}

// UpdateProfileRequest edits the caller's own profile.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio      *string `json:"bio,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
