package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/campusops/timetable-api/internal/timetable"
)

// Room represents a teaching room.
type Room struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Capacity     int            `db:"capacity" json:"capacity"`
	Type         string         `db:"room_type" json:"type"`
	Building     string         `db:"building" json:"building"`
	Floor        string         `db:"floor" json:"floor"`
	Active       bool           `db:"active" json:"active"`
	Availability pq.StringArray `db:"availability" json:"availability"`
	Schedule     []RoomSlot     `db:"-" json:"schedule,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// AvailableOn reports whether the room is open for scheduling on the day.
func (r *Room) AvailableOn(day timetable.Weekday) bool {
	for _, name := range r.Availability {
		if d, err := timetable.ParseWeekday(name); err == nil && d == day {
			return true
		}
	}
	return false
}

// OccupiedIntervals returns the room's schedule as plain intervals.
func (r *Room) OccupiedIntervals() []timetable.Interval {
	out := make([]timetable.Interval, 0, len(r.Schedule))
	for _, slot := range r.Schedule {
		out = append(out, slot.Interval())
	}
	return out
}

// RoomSlot is one occupied interval on a room's schedule, derived from the
// schedule of a section held in the room.
type RoomSlot struct {
	ID        string            `db:"id" json:"id"`
	RoomID    string            `db:"room_id" json:"room_id"`
	SectionID string            `db:"section_id" json:"section_id"`
	Day       timetable.Weekday `db:"day_of_week" json:"day"`
	StartMin  int               `db:"start_min" json:"start_min"`
	EndMin    int               `db:"end_min" json:"end_min"`
	SubjectID string            `db:"subject_id" json:"subject_id"`
}

// Interval converts the slot's columns into a domain interval.
func (s RoomSlot) Interval() timetable.Interval {
	return timetable.Interval{Day: s.Day, Start: s.StartMin, End: s.EndMin}
}

// RoomFilter captures filtering options for listing rooms.
type RoomFilter struct {
	Type      string
	Building  string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
