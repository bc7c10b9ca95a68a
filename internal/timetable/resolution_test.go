package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

func roomConflictFixture(t *testing.T, detector *Detector) (ConflictReport, []Assignment) {
	t.Helper()
	set := []Assignment{
		{SectionID: "sectionA", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "sectionB", SubjectID: "MATH201", TeacherID: "t2", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
	}
	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)
	return reports[0], set
}

func TestApplySuggestionResolvesRoomConflict(t *testing.T) {
	detector := NewDetector(DetectorOptions{AlternateRooms: []string{"room-102"}})
	resolver := NewResolver(detector, nil)

	report, set := roomConflictFixture(t, detector)
	var roomSuggestion Suggestion
	for _, s := range report.Suggestions {
		if s.Action == ActionReassignRoom {
			roomSuggestion = s
		}
	}
	require.NotEmpty(t, roomSuggestion.ID)

	outcome, err := resolver.ApplySuggestion(report, roomSuggestion.ID, set)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, outcome.Report.Status)
	assert.Empty(t, detector.DetectAll(outcome.Assignments))

	// The input set is untouched.
	assert.Equal(t, "room-101", set[1].RoomID)
}

func TestApplySuggestionIneffectiveRollsBack(t *testing.T) {
	// room-102 is free at the conflict slot but occupied by a third section the
	// detector's alternate-room scan does not see as a clash until re-detection.
	detector := NewDetector(DetectorOptions{AlternateRooms: []string{"room-102"}})
	resolver := NewResolver(detector, nil)

	set := []Assignment{
		{SectionID: "sectionA", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "sectionB", SubjectID: "MATH201", TeacherID: "t2", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
	}
	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)
	report := reports[0]

	// Forge a suggestion that moves the target onto a busier room.
	bad := Suggestion{
		ID:        "forged",
		Action:    ActionReassignRoom,
		Target:    report.Assignments[1],
		NewRoomID: "room-101",
	}
	report.Suggestions = append(report.Suggestions, bad)

	_, err := resolver.ApplySuggestion(report, "forged", set)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrResolutionIneffective))
}

func TestApplySuggestionUnknownID(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)
	report, set := roomConflictFixture(t, detector)

	_, err := resolver.ApplySuggestion(report, "missing", set)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestManualReassignToFreeSlot(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)
	report, set := roomConflictFixture(t, detector)

	target := report.Assignments[1]
	free := Interval{Day: Monday, Start: 13 * 60, End: 14*60 + 30}
	outcome, err := resolver.ManualReassign(report, target, Reassignment{Interval: &free}, set)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, outcome.Report.Status)

	// Re-detection on the updated set shows no reports mentioning the section.
	for _, rep := range detector.DetectAll(outcome.Assignments) {
		for _, a := range rep.Assignments {
			assert.NotEqual(t, target.SectionID, a.SectionID)
		}
	}
}

func TestManualReassignStillConflictingFails(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)
	report, set := roomConflictFixture(t, detector)

	// Moving within the same overlapping window leaves the clash in place.
	overlapping := Interval{Day: Monday, Start: 10 * 60, End: 11 * 60}
	_, err := resolver.ManualReassign(report, report.Assignments[1], Reassignment{Interval: &overlapping}, set)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrResolutionIneffective))
}

func TestManualReassignRejectsEmptyChange(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)
	report, set := roomConflictFixture(t, detector)

	_, err := resolver.ManualReassign(report, report.Assignments[1], Reassignment{}, set)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestOverrideLeavesAssignmentsInPlace(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)
	report, set := roomConflictFixture(t, detector)

	outcome, err := resolver.Override(report, set)
	require.NoError(t, err)
	assert.Equal(t, StatusOverridden, outcome.Report.Status)
	assert.Equal(t, set, outcome.Assignments)

	// The conflict is still detectable afterwards; it is only acknowledged.
	assert.Len(t, detector.DetectAll(outcome.Assignments), 1)
}

func TestTerminalReportsRejectFurtherTransitions(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)
	report, set := roomConflictFixture(t, detector)

	outcome, err := resolver.Override(report, set)
	require.NoError(t, err)

	_, err = resolver.Override(outcome.Report, set)
	require.Error(t, err)

	_, err = resolver.ManualReassign(outcome.Report, report.Assignments[1], Reassignment{RoomID: "room-102"}, set)
	require.Error(t, err)
}

func TestMergeSectionsSuggestion(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	resolver := NewResolver(detector, nil)

	set := []Assignment{
		{SectionID: "cs-1a", SubjectID: "ELECTIVES2", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "cs-1a", SubjectID: "CS203", TeacherID: "t2", RoomID: "lab-3", Interval: mondaySlot(10, 30, 12, 0)},
	}
	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)

	var mergeID string
	for _, s := range reports[0].Suggestions {
		if s.Action == ActionMergeSections {
			mergeID = s.ID
		}
	}
	require.NotEmpty(t, mergeID)

	outcome, err := resolver.ApplySuggestion(reports[0], mergeID, set)
	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)

	// Default policy keeps the surviving session and widens it over both.
	merged := outcome.Assignments[0]
	assert.Equal(t, "ELECTIVES2", merged.SubjectID)
	assert.Equal(t, 10*60, merged.Interval.Start)
	assert.Equal(t, 12*60, merged.Interval.End)
}

func TestMergePolicyOverride(t *testing.T) {
	detector := NewDetector(DetectorOptions{})
	policy := func(surviving, absorbed Assignment) Assignment {
		// Keep the absorbed session instead of the default surviving one.
		return absorbed
	}
	resolver := NewResolver(detector, policy)

	set := []Assignment{
		{SectionID: "cs-1a", SubjectID: "ELECTIVES2", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "cs-1a", SubjectID: "CS203", TeacherID: "t2", RoomID: "lab-3", Interval: mondaySlot(10, 30, 12, 0)},
	}
	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)

	var mergeID string
	for _, s := range reports[0].Suggestions {
		if s.Action == ActionMergeSections {
			mergeID = s.ID
		}
	}

	outcome, err := resolver.ApplySuggestion(reports[0], mergeID, set)
	require.NoError(t, err)
	require.Len(t, outcome.Assignments, 1)
	assert.Equal(t, "CS203", outcome.Assignments[0].SubjectID)
}
