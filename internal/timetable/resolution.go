package timetable

import (
	"fmt"

	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// Reassignment is a caller-supplied partial change to an assignment. Unset
// fields leave the current value in place.
type Reassignment struct {
	RoomID    string    `json:"room_id,omitempty"`
	TeacherID string    `json:"teacher_id,omitempty"`
	Interval  *Interval `json:"interval,omitempty"`
}

func (r Reassignment) empty() bool {
	return r.RoomID == "" && r.TeacherID == "" && r.Interval == nil
}

// MergePolicy combines two overlapping assignments when sections are merged.
// The default keeps the surviving assignment's section, subject, teacher and
// room and widens the interval to span both sessions.
type MergePolicy func(surviving, absorbed Assignment) Assignment

func defaultMergePolicy(surviving, absorbed Assignment) Assignment {
	merged := surviving
	if absorbed.Interval.Start < merged.Interval.Start {
		merged.Interval.Start = absorbed.Interval.Start
	}
	if absorbed.Interval.End > merged.Interval.End {
		merged.Interval.End = absorbed.Interval.End
	}
	return merged
}

// Outcome is the result of a resolution step: the report in its terminal state
// and the assignment set after the applied mutation. Override leaves the set
// untouched.
type Outcome struct {
	Report      ConflictReport `json:"report"`
	Assignments []Assignment   `json:"assignments"`
}

// Resolver drives conflict reports from open to a terminal state. Reports are
// processed one at a time; resolving one report never re-checks the others, so
// callers must re-run detection after each step to get a fresh report list.
type Resolver struct {
	detector *Detector
	merge    MergePolicy
}

// NewResolver builds a resolver sharing the detector used for re-validation.
// A nil policy selects the default merge behaviour.
func NewResolver(detector *Detector, merge MergePolicy) *Resolver {
	if merge == nil {
		merge = defaultMergePolicy
	}
	return &Resolver{detector: detector, merge: merge}
}

// ApplySuggestion performs the chosen suggestion's mutation, re-runs detection
// and commits only when the report's conflict is gone and no new conflict
// appeared. On failure the input set is returned untouched alongside a
// RESOLUTION_INEFFECTIVE error.
func (r *Resolver) ApplySuggestion(report ConflictReport, suggestionID string, set []Assignment) (*Outcome, error) {
	if report.Status != StatusOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("report %s is already %s", report.ID, report.Status))
	}
	var chosen *Suggestion
	for i := range report.Suggestions {
		if report.Suggestions[i].ID == suggestionID {
			chosen = &report.Suggestions[i]
			break
		}
	}
	if chosen == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("suggestion %s not found on report %s", suggestionID, report.ID))
	}

	mutated, err := r.applySuggestion(*chosen, set)
	if err != nil {
		return nil, err
	}
	return r.commit(report, set, mutated)
}

// ManualReassign applies an arbitrary caller-supplied reassignment to the
// targeted assignment, with the same re-validation and rollback rule as
// ApplySuggestion.
func (r *Resolver) ManualReassign(report ConflictReport, target Assignment, change Reassignment, set []Assignment) (*Outcome, error) {
	if report.Status != StatusOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("report %s is already %s", report.ID, report.Status))
	}
	if change.empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reassignment must change at least one of room, teacher or interval")
	}
	if change.Interval != nil {
		if err := change.Interval.Validate(); err != nil {
			return nil, err
		}
	}

	mutated, ok := mutateAssignment(set, target.Key(), func(a Assignment) Assignment {
		if change.RoomID != "" {
			a.RoomID = change.RoomID
		}
		if change.TeacherID != "" {
			a.TeacherID = change.TeacherID
		}
		if change.Interval != nil {
			a.Interval = *change.Interval
		}
		return a
	})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "targeted assignment is not in the snapshot")
	}
	return r.commit(report, set, mutated)
}

// Override acknowledges the conflict and leaves the assignments in place. The
// report transitions to overridden unconditionally.
func (r *Resolver) Override(report ConflictReport, set []Assignment) (*Outcome, error) {
	if report.Status != StatusOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("report %s is already %s", report.ID, report.Status))
	}
	report.Status = StatusOverridden
	return &Outcome{Report: report, Assignments: CloneSet(set)}, nil
}

func (r *Resolver) applySuggestion(s Suggestion, set []Assignment) ([]Assignment, error) {
	switch s.Action {
	case ActionReassignRoom:
		mutated, ok := mutateAssignment(set, s.Target.Key(), func(a Assignment) Assignment {
			a.RoomID = s.NewRoomID
			return a
		})
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion target is not in the snapshot")
		}
		return mutated, nil
	case ActionReassignTeacher:
		mutated, ok := mutateAssignment(set, s.Target.Key(), func(a Assignment) Assignment {
			a.TeacherID = s.NewTeacherID
			return a
		})
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion target is not in the snapshot")
		}
		return mutated, nil
	case ActionReassignTime:
		if s.NewInterval == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "time suggestion carries no interval")
		}
		mutated, ok := mutateAssignment(set, s.Target.Key(), func(a Assignment) Assignment {
			a.Interval = *s.NewInterval
			return a
		})
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion target is not in the snapshot")
		}
		return mutated, nil
	case ActionMergeSections:
		return r.mergeSections(s, set)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown suggestion action %q", s.Action))
	}
}

// mergeSections folds the target's section into the surviving one. The
// overlapping pair is combined through the merge policy; the target's other
// sessions are relabelled to the surviving section.
func (r *Resolver) mergeSections(s Suggestion, set []Assignment) ([]Assignment, error) {
	var surviving *Assignment
	for i := range set {
		a := set[i]
		if a.Key() == s.Target.Key() {
			continue
		}
		if a.SectionID == s.MergeWithSection && a.Interval.Overlaps(s.Target.Interval) {
			surviving = &set[i]
			break
		}
	}
	if surviving == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no overlapping session found on section %s to merge with", s.MergeWithSection))
	}

	merged := r.merge(*surviving, s.Target)
	out := make([]Assignment, 0, len(set)-1)
	for _, a := range set {
		switch a.Key() {
		case surviving.Key():
			out = append(out, merged)
		case s.Target.Key():
			// absorbed
		default:
			if a.SectionID == s.Target.SectionID {
				a.SectionID = s.MergeWithSection
			}
			out = append(out, a)
		}
	}
	return out, nil
}

// commit re-validates the mutated set. Resolution succeeds only when the
// report's conflict disappeared and the mutation introduced no new ones.
func (r *Resolver) commit(report ConflictReport, before, after []Assignment) (*Outcome, error) {
	previous := make(map[string]bool)
	for _, rep := range r.detector.DetectAll(before) {
		previous[rep.ID] = true
	}
	for _, rep := range r.detector.DetectAll(after) {
		if rep.ID == report.ID {
			return nil, appErrors.Clone(appErrors.ErrResolutionIneffective, fmt.Sprintf("report %s still present after resolution", report.ID))
		}
		if !previous[rep.ID] {
			return nil, appErrors.Clone(appErrors.ErrResolutionIneffective, fmt.Sprintf("resolution of %s would introduce new conflict %s", report.ID, rep.ID))
		}
	}
	report.Status = StatusResolved
	return &Outcome{Report: report, Assignments: after}, nil
}

func mutateAssignment(set []Assignment, key string, fn func(Assignment) Assignment) ([]Assignment, bool) {
	out := CloneSet(set)
	for i := range out {
		if out[i].Key() == key {
			out[i] = fn(out[i])
			return out, true
		}
	}
	return nil, false
}
