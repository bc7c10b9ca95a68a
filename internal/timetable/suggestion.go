package timetable

import "fmt"

// SuggestionAction names the remediation a suggestion performs.
type SuggestionAction string

const (
	ActionReassignRoom    SuggestionAction = "reassign_room"
	ActionReassignTime    SuggestionAction = "reassign_time"
	ActionReassignTeacher SuggestionAction = "reassign_teacher"
	ActionMergeSections   SuggestionAction = "merge_sections"
)

// Suggestion is a machine-applicable remediation for a conflict report. Target
// identifies the assignment to mutate; exactly one of the New* fields or
// MergeWithSection is set depending on Action.
type Suggestion struct {
	ID               string           `json:"id"`
	Action           SuggestionAction `json:"action"`
	Description      string           `json:"description"`
	Impact           string           `json:"impact"`
	Target           Assignment       `json:"target"`
	NewRoomID        string           `json:"new_room_id,omitempty"`
	NewTeacherID     string           `json:"new_teacher_id,omitempty"`
	NewInterval      *Interval        `json:"new_interval,omitempty"`
	MergeWithSection string           `json:"merge_with_section,omitempty"`
}

// suggest proposes remediations for a report. The last assignment in the
// cluster (the latest arrival under stable ordering) is the one moved.
func (d *Detector) suggest(report ConflictReport, set []Assignment) []Suggestion {
	target := report.Assignments[len(report.Assignments)-1]
	var suggestions []Suggestion

	if report.Kind == KindRoom {
		if room, ok := d.freeRoom(target, set); ok {
			suggestions = append(suggestions, Suggestion{
				ID:          fmt.Sprintf("%s:room:%s", report.ID, room),
				Action:      ActionReassignRoom,
				Description: fmt.Sprintf("Move section %s to room %s", target.SectionID, room),
				Impact:      "No other conflicts created",
				Target:      target,
				NewRoomID:   room,
			})
		}
	}

	if report.Kind == KindTeacher {
		if teacher, ok := d.freeTeacher(target, set); ok {
			suggestions = append(suggestions, Suggestion{
				ID:           fmt.Sprintf("%s:teacher:%s", report.ID, teacher),
				Action:       ActionReassignTeacher,
				Description:  fmt.Sprintf("Reassign section %s to teacher %s", target.SectionID, teacher),
				Impact:       "No other conflicts created",
				Target:       target,
				NewTeacherID: teacher,
			})
		}
	}

	if slot, ok := d.freeSlot(target, set); ok {
		suggestions = append(suggestions, Suggestion{
			ID:          fmt.Sprintf("%s:time:%d", report.ID, slot.Start),
			Action:      ActionReassignTime,
			Description: fmt.Sprintf("Reschedule section %s to %s", target.SectionID, slot),
			Impact:      "No other conflicts created",
			Target:      target,
			NewInterval: &slot,
		})
	}

	if report.Kind == KindSection && len(report.Assignments) >= 2 {
		other := report.Assignments[0]
		span := other.Interval
		if target.Interval.Start < span.Start {
			span.Start = target.Interval.Start
		}
		if target.Interval.End > span.End {
			span.End = target.Interval.End
		}
		suggestions = append(suggestions, Suggestion{
			ID:               fmt.Sprintf("%s:merge:%s", report.ID, other.SubjectID),
			Action:           ActionMergeSections,
			Description:      fmt.Sprintf("Merge %s with %s", target.SubjectID, other.SubjectID),
			Impact:           fmt.Sprintf("Combined session runs %s", span),
			Target:           target,
			MergeWithSection: other.SectionID,
		})
	}

	return suggestions
}

// freeRoom returns the first configured alternate room unoccupied during the
// target interval.
func (d *Detector) freeRoom(target Assignment, set []Assignment) (string, bool) {
	for _, room := range d.opts.AlternateRooms {
		if room == target.RoomID {
			continue
		}
		busy := false
		for _, a := range set {
			if a.RoomID == room && a.Interval.Overlaps(target.Interval) {
				busy = true
				break
			}
		}
		if !busy {
			return room, true
		}
	}
	return "", false
}

// freeTeacher returns the first configured alternate teacher idle during the
// target interval.
func (d *Detector) freeTeacher(target Assignment, set []Assignment) (string, bool) {
	for _, teacher := range d.opts.AlternateTeachers {
		if teacher == target.TeacherID {
			continue
		}
		busy := false
		for _, a := range set {
			if a.TeacherID == teacher && a.Interval.Overlaps(target.Interval) {
				busy = true
				break
			}
		}
		if !busy {
			return teacher, true
		}
	}
	return "", false
}

// freeSlot scans the target's day for the earliest start where the moved
// assignment no longer conflicts with anything in the snapshot.
func (d *Detector) freeSlot(target Assignment, set []Assignment) (Interval, bool) {
	duration := target.Interval.Minutes()
	for start := 7 * 60; start+duration <= d.opts.DayEndMin; start += d.opts.SlotStepMin {
		if start == target.Interval.Start {
			continue
		}
		candidate := target
		candidate.Interval = Interval{Day: target.Interval.Day, Start: start, End: start + duration}
		clear := true
		for _, a := range set {
			if a.Key() == target.Key() {
				continue
			}
			if !a.Interval.Overlaps(candidate.Interval) {
				continue
			}
			if a.RoomID == candidate.RoomID || a.TeacherID == candidate.TeacherID || a.SectionID == candidate.SectionID {
				clear = false
				break
			}
		}
		if clear {
			return candidate.Interval, true
		}
	}
	return Interval{}, false
}
