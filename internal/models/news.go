package models

import "time"

// News is an announcement attached to exactly one of a school or a class.
// Exactly one of SchoolID/ClassID is set; the service rejects payloads
// providing both or neither.
type News struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Content      string    `db:"content" json:"content"`
	CreatorID    string    `db:"creator_id" json:"creator_id"`
	SchoolID     *string   `db:"school_id" json:"school_id,omitempty"`
	ClassID      *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastModified time.Time `db:"last_modified" json:"last_modified"`
}

// NewsDetail extends News with joined creator and scope names.
type NewsDetail struct {
	News
	CreatorName string  `db:"creator_name" json:"creator_name"`
	SchoolName  *string `db:"school_name" json:"school_name,omitempty"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
}

// CreateNewsRequest posts an announcement to exactly one of a school or a
// class.
type CreateNewsRequest struct {
	Title    string  `json:"title" validate:"required,min=1,max=256"`
	Content  string  `json:"content" validate:"required"`
	SchoolID *string `json:"school_id,omitempty" validate:"omitempty,uuid4"`
	ClassID  *string `json:"class_id,omitempty" validate:"omitempty,uuid4"`
}

// UpdateNewsRequest edits an announcement's title and content.
type UpdateNewsRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1,max=256"`
	Content *string `json:"content,omitempty"`
}

// NewsFilter defines listing criteria within an already-resolved scope.
type NewsFilter struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
