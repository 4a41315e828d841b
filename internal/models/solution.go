package models

import "time"

// Solution represents a student's submission for an assignment. Grade stays
// null until the teacher grades it after the deadline. One solution exists
// per (student, assignment); resubmission is an update while the assignment
// is still open.
type Solution struct {
	ID           string    `db:"id" json:"id"`
	Context      *string   `db:"context" json:"context,omitempty"`
	Attachment   *string   `db:"attachment" json:"attachment,omitempty"`
	Grade        *float64  `db:"grade" json:"grade,omitempty"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastModified time.Time `db:"last_modified" json:"last_modified"`
}

// SolutionDetail extends Solution with joined student and assignment info.
type SolutionDetail struct {
	Solution
	StudentName     string `db:"student_name" json:"student_name"`
	AssignmentTitle string `db:"assignment_title" json:"assignment_title"`
}

// SubmitSolutionRequest creates or updates the caller's submission. At least
// one of text or attachment must be present.
type SubmitSolutionRequest struct {
	Context    *string `json:"context,omitempty"`
	Attachment *string `json:"attachment,omitempty"`
}

// GradeSolutionRequest records the teacher's grade.
type GradeSolutionRequest struct {
	Grade float64 `json:"grade" validate:"min=0,max=100"`
}

// SolutionFilter defines listing criteria within an already-resolved scope.
type SolutionFilter struct {
	AssignmentID string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
