package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mondaySlot(startH, startM, endH, endM int) Interval {
	return Interval{Day: Monday, Start: startH*60 + startM, End: endH*60 + endM}
}

func TestDetectRoomDoubleBooking(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	existing := []Assignment{{
		SectionID: "sectionA", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
		Interval: mondaySlot(10, 0, 11, 30),
	}}
	candidate := Assignment{
		SectionID: "sectionB", SubjectID: "MATH201", TeacherID: "t2", RoomID: "room-101",
		Interval: mondaySlot(10, 0, 11, 30),
	}

	reports := detector.Detect(candidate, existing)
	require.Len(t, reports, 1)
	assert.Equal(t, KindRoom, reports[0].Kind)
	assert.Equal(t, SeverityHigh, reports[0].Severity)
	assert.Equal(t, StatusOpen, reports[0].Status)
	assert.Equal(t, "room-101", reports[0].ResourceID)
	assert.Len(t, reports[0].Assignments, 2)
}

func TestDetectTeacherDoubleBooking(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	set := []Assignment{
		{SectionID: "s1", SubjectID: "CS101", TeacherID: "dr-caabay", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "s2", SubjectID: "CS203", TeacherID: "dr-caabay", RoomID: "room-203", Interval: mondaySlot(10, 0, 11, 30)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)
	assert.Equal(t, KindTeacher, reports[0].Kind)
	assert.Equal(t, SeverityHigh, reports[0].Severity)
	assert.Equal(t, "dr-caabay", reports[0].ResourceID)
}

func TestDetectSectionSelfOverlap(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	set := []Assignment{
		{SectionID: "cs-1a", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "cs-1a", SubjectID: "CS203", TeacherID: "t2", RoomID: "lab-3", Interval: mondaySlot(10, 0, 11, 30)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)
	assert.Equal(t, KindSection, reports[0].Kind)
	assert.Equal(t, SeverityMedium, reports[0].Severity)
}

func TestDetectDisjointIntervalsNoConflict(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	// Same room, same teacher, same day; back to back without overlap.
	set := []Assignment{
		{SectionID: "s1", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(9, 0, 10, 0)},
		{SectionID: "s2", SubjectID: "CS102", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 0)},
	}
	assert.Empty(t, detector.DetectAll(set))

	candidate := Assignment{SectionID: "s3", SubjectID: "CS103", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(11, 0, 12, 0)}
	assert.Empty(t, detector.Detect(candidate, set))
}

func TestDetectPairPriorityRoomOverTeacher(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	// Same room and same teacher: only a room conflict is reported.
	set := []Assignment{
		{SectionID: "s1", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "s2", SubjectID: "CS102", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)
	assert.Equal(t, KindRoom, reports[0].Kind)
}

func TestDetectThreeWayClusterIsOneReport(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	set := []Assignment{
		{SectionID: "s1", SubjectID: "a", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(9, 0, 10, 30)},
		{SectionID: "s2", SubjectID: "b", TeacherID: "t2", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "s3", SubjectID: "c", TeacherID: "t3", RoomID: "room-101", Interval: mondaySlot(11, 0, 12, 30)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)
	assert.Equal(t, KindRoom, reports[0].Kind)
	assert.Len(t, reports[0].Assignments, 3)
}

func TestDetectAllStableOrder(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	set := []Assignment{
		// Tuesday teacher clash.
		{SectionID: "s1", SubjectID: "a", TeacherID: "t1", RoomID: "r1", Interval: Interval{Day: Tuesday, Start: 9 * 60, End: 10 * 60}},
		{SectionID: "s2", SubjectID: "b", TeacherID: "t1", RoomID: "r2", Interval: Interval{Day: Tuesday, Start: 9 * 60, End: 10 * 60}},
		// Monday afternoon room clash.
		{SectionID: "s3", SubjectID: "c", TeacherID: "t2", RoomID: "r3", Interval: mondaySlot(13, 0, 14, 0)},
		{SectionID: "s4", SubjectID: "d", TeacherID: "t3", RoomID: "r3", Interval: mondaySlot(13, 0, 14, 0)},
		// Monday morning section clash.
		{SectionID: "s5", SubjectID: "e", TeacherID: "t4", RoomID: "r4", Interval: mondaySlot(9, 0, 10, 0)},
		{SectionID: "s5", SubjectID: "f", TeacherID: "t5", RoomID: "r5", Interval: mondaySlot(9, 0, 10, 0)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 3)
	assert.Equal(t, KindSection, reports[0].Kind) // Monday 09:00
	assert.Equal(t, KindRoom, reports[1].Kind)    // Monday 13:00
	assert.Equal(t, KindTeacher, reports[2].Kind) // Tuesday 09:00
}

func TestDetectIdempotent(t *testing.T) {
	detector := NewDetector(DetectorOptions{AlternateRooms: []string{"room-102"}})

	set := []Assignment{
		{SectionID: "s1", SubjectID: "a", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "s2", SubjectID: "b", TeacherID: "t2", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
	}
	snapshot := CloneSet(set)

	first := detector.DetectAll(set)
	second := detector.DetectAll(set)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, set, "detection must not mutate its input")
}

func TestDetectSkipsCandidateOwnKeyOnUpdate(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	existing := []Assignment{
		{SectionID: "s1", SubjectID: "a", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
	}
	// Same section and slot, updated room: must not conflict with its old self.
	updated := existing[0]
	updated.RoomID = "room-102"

	assert.Empty(t, detector.Detect(updated, existing))
}

func TestSuggestionsForRoomConflict(t *testing.T) {
	detector := NewDetector(DetectorOptions{AlternateRooms: []string{"room-101", "room-102"}})

	set := []Assignment{
		{SectionID: "s1", SubjectID: "a", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "s2", SubjectID: "b", TeacherID: "t2", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)

	var actions []SuggestionAction
	for _, s := range reports[0].Suggestions {
		actions = append(actions, s.Action)
	}
	assert.Contains(t, actions, ActionReassignRoom)
	assert.Contains(t, actions, ActionReassignTime)

	for _, s := range reports[0].Suggestions {
		if s.Action == ActionReassignRoom {
			assert.Equal(t, "room-102", s.NewRoomID)
			assert.Equal(t, "s2", s.Target.SectionID)
		}
	}
}

func TestSuggestionsForSectionConflictIncludeMerge(t *testing.T) {
	detector := NewDetector(DetectorOptions{})

	set := []Assignment{
		{SectionID: "cs-1a", SubjectID: "ELECTIVES2", TeacherID: "t1", RoomID: "room-101", Interval: mondaySlot(10, 0, 11, 30)},
		{SectionID: "cs-1a", SubjectID: "CS203", TeacherID: "t2", RoomID: "lab-3", Interval: mondaySlot(10, 0, 11, 30)},
	}

	reports := detector.DetectAll(set)
	require.Len(t, reports, 1)

	var merge *Suggestion
	for i, s := range reports[0].Suggestions {
		if s.Action == ActionMergeSections {
			merge = &reports[0].Suggestions[i]
		}
	}
	require.NotNil(t, merge)
	assert.Equal(t, "cs-1a", merge.MergeWithSection)
}
