package models

import (
	"time"

	"github.com/lib/pq"
)

// Subject represents an academic subject.
type Subject struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Code          string         `db:"code" json:"code"`
	Department    string         `db:"department" json:"department"`
	Credits       int            `db:"credits" json:"credits"`
	Description   string         `db:"description" json:"description"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Department string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
