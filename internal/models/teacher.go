package models

import "time"

// Teacher represents an instructor record. SubjectIDs and TotalUnits are
// derived from the teacher_subjects link table, not stored on the row.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Department     string    `db:"department" json:"department"`
	Specialization string    `db:"specialization" json:"specialization"`
	Active         bool      `db:"active" json:"active"`
	SubjectIDs     []string  `db:"-" json:"subject_ids"`
	TotalUnits     int       `db:"-" json:"total_units"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Department     string
	Specialization string
	Active         *bool
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// TeacherSubject links a teacher to an assigned subject.
type TeacherSubject struct {
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
