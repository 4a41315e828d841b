package models

import "time"

// Class represents a class belonging to a school. A class has at most one
// teacher, a set of enrolled students and a set of taught lessons.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with joined school and teacher names.
type ClassDetail struct {
	Class
	SchoolName  string  `db:"school_name" json:"school_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// CreateClassRequest creates a class. Admin only.
type CreateClassRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=128"`
	SchoolID  string  `json:"school_id" validate:"required,uuid4"`
	TeacherID *string `json:"teacher_id,omitempty" validate:"omitempty,uuid4"`
}

// UpdateClassRequest edits a class. Admin only.
type UpdateClassRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	TeacherID *string `json:"teacher_id,omitempty" validate:"omitempty,uuid4"`
}

// RosterChangeRequest adds or removes a student by national identifier.
type RosterChangeRequest struct {
	NationalID string `json:"national_id" validate:"required,min=5,max=32"`
}

// AddLessonRequest attaches a lesson to a class by name, creating the lesson
// when it does not exist yet.
type AddLessonRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Lesson represents a subject taught in one or more classes (many-to-many).
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
