package models

import "time"

// Assignment represents coursework published by a class teacher for one of the
// class's lessons. Deadline carries date precision only; all open/closed
// decisions compare calendar dates, never timestamps.
type Assignment struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Context      *string    `db:"context" json:"context,omitempty"`
	MaxGrade     float64    `db:"max_grade" json:"max_grade"`
	Deadline     time.Time  `db:"deadline" json:"deadline"`
	Attachment   *string    `db:"attachment" json:"attachment,omitempty"`
	AnswerText   *string    `db:"answer_text" json:"answer_text,omitempty"`
	AnswerFile   *string    `db:"answer_file" json:"answer_file,omitempty"`
	LessonID     string     `db:"lesson_id" json:"lesson_id"`
	ClassID      string     `db:"class_id" json:"class_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastModified time.Time  `db:"last_modified" json:"last_modified"`
}

// AssignmentDetail extends Assignment with joined lesson and class names.
type AssignmentDetail struct {
	Assignment
	LessonName string `db:"lesson_name" json:"lesson_name"`
	ClassName  string `db:"class_name" json:"class_name"`
}

// CreateAssignmentRequest publishes an assignment for a lesson of a class.
type CreateAssignmentRequest struct {
	Title      string    `json:"title" validate:"required,min=1,max=256"`
	Context    *string   `json:"context,omitempty"`
	MaxGrade   float64   `json:"max_grade" validate:"gt=0,max=100"`
	Deadline   time.Time `json:"deadline" validate:"required"`
	ClassID    string    `json:"class_id" validate:"required,uuid4"`
	LessonID   string    `json:"lesson_id" validate:"required,uuid4"`
	Attachment *string   `json:"attachment,omitempty"`
}

// UpdateAssignmentRequest edits an open assignment's content.
type UpdateAssignmentRequest struct {
	Title      *string    `json:"title,omitempty" validate:"omitempty,min=1,max=256"`
	Context    *string    `json:"context,omitempty"`
	MaxGrade   *float64   `json:"max_grade,omitempty" validate:"omitempty,gt=0,max=100"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Attachment *string    `json:"attachment,omitempty"`
}

// AddAnswerRequest publishes the teacher's answer after the deadline. At
// least one of text or file must be present.
type AddAnswerRequest struct {
	AnswerText *string `json:"answer_text,omitempty"`
	AnswerFile *string `json:"answer_file,omitempty"`
}

// AssignmentFilter defines listing criteria within an already-resolved scope.
type AssignmentFilter struct {
	ClassID   string
	LessonID  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
