package models

import (
	"time"

	"github.com/campusops/timetable-api/internal/timetable"
)

// ClassSection represents a scheduled class group. Version increments on every
// mutation so concurrent writers can detect stale snapshots.
type ClassSection struct {
	ID         string        `db:"id" json:"id"`
	Name       string        `db:"name" json:"name"`
	SubjectID  string        `db:"subject_id" json:"subject_id"`
	TeacherID  string        `db:"teacher_id" json:"teacher_id"`
	RoomID     string        `db:"room_id" json:"room_id"`
	Capacity   int           `db:"capacity" json:"capacity"`
	Enrollment int           `db:"enrollment" json:"enrollment"`
	Active     bool          `db:"active" json:"active"`
	Version    int           `db:"version" json:"version"`
	Schedule   []SectionSlot `db:"-" json:"schedule,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// SectionSlot is one scheduled meeting of a section.
type SectionSlot struct {
	ID        string            `db:"id" json:"id"`
	SectionID string            `db:"section_id" json:"section_id"`
	Day       timetable.Weekday `db:"day_of_week" json:"day"`
	StartMin  int               `db:"start_min" json:"start_min"`
	EndMin    int               `db:"end_min" json:"end_min"`
}

// Interval converts the slot's columns into a domain interval.
func (s SectionSlot) Interval() timetable.Interval {
	return timetable.Interval{Day: s.Day, Start: s.StartMin, End: s.EndMin}
}

// Assignments materialises the section's schedule as conflict-detector input:
// one assignment per schedule slot.
func (c *ClassSection) Assignments() []timetable.Assignment {
	out := make([]timetable.Assignment, 0, len(c.Schedule))
	for _, slot := range c.Schedule {
		out = append(out, timetable.Assignment{
			SectionID: c.ID,
			SubjectID: c.SubjectID,
			TeacherID: c.TeacherID,
			RoomID:    c.RoomID,
			Interval:  slot.Interval(),
		})
	}
	return out
}

// DeriveAssignments flattens active sections into the assignment snapshot the
// detector reasons over. Inactive sections hold no resources.
func DeriveAssignments(sections []ClassSection) []timetable.Assignment {
	var out []timetable.Assignment
	for i := range sections {
		if !sections[i].Active {
			continue
		}
		out = append(out, sections[i].Assignments()...)
	}
	return out
}

// SectionFilter defines filter criteria for listing class sections.
type SectionFilter struct {
	SubjectID string
	TeacherID string
	RoomID    string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
