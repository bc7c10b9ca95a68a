package timetable

import "fmt"

// Assignment is one scheduled occupation of a room/teacher/section/subject at a
// specific day and interval. Assignments are derived from section schedules on
// every validation pass; they are never persisted on their own.
type Assignment struct {
	SectionID string   `json:"section_id"`
	SubjectID string   `json:"subject_id"`
	TeacherID string   `json:"teacher_id"`
	RoomID    string   `json:"room_id"`
	Interval  Interval `json:"interval"`
}

// Key identifies an assignment within a snapshot: one per (section, slot) pair.
func (a Assignment) Key() string {
	return fmt.Sprintf("%s@%s:%d", a.SectionID, a.Interval.Day, a.Interval.Start)
}

// Equal reports whether two assignments describe the same occupation.
func (a Assignment) Equal(other Assignment) bool {
	return a.SectionID == other.SectionID &&
		a.SubjectID == other.SubjectID &&
		a.TeacherID == other.TeacherID &&
		a.RoomID == other.RoomID &&
		a.Interval == other.Interval
}

// CloneSet copies an assignment slice so mutations never leak into the input.
func CloneSet(set []Assignment) []Assignment {
	out := make([]Assignment, len(set))
	copy(out, set)
	return out
}
