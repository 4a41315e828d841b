package models

import "time"

// School represents a school with an optional dedicated manager. A user may
// manage at most one school; the repository enforces the one-to-one rule.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	ManagerID *string   `db:"manager_id" json:"manager_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolDetail extends School with the manager's display name.
type SchoolDetail struct {
	School
	ManagerName *string `db:"manager_name" json:"manager_name,omitempty"`
}

// NearbySchool is a school row annotated with distance from a query point.
type NearbySchool struct {
	School
	DistanceKM float64 `db:"distance_km" json:"distance_km"`
}

// CreateSchoolRequest creates a school. Admin only.
type CreateSchoolRequest struct {
	Name      string  `json:"name" validate:"required,min=2,max=128"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	ManagerID *string `json:"manager_id,omitempty" validate:"omitempty,uuid4"`
}

// UpdateSchoolRequest edits a school. Admin only.
type UpdateSchoolRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=2,max=128"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	ManagerID *string  `json:"manager_id,omitempty" validate:"omitempty,uuid4"`
}

// NearbySchoolsRequest queries schools around a point.
type NearbySchoolsRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusKM  float64 `json:"radius_km" validate:"gt=0,max=500"`
	Limit     int     `json:"limit" validate:"min=0,max=100"`
}

// SchoolFilter defines filter criteria for listing schools.
type SchoolFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
