package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
)

type mockSubjectSource struct {
	subjects []models.Subject
}

func (m *mockSubjectSource) ListAll(ctx context.Context) ([]models.Subject, error) {
	return m.subjects, nil
}

func exportFixture() (*ExportService, *mockSectionSource) {
	sections := &mockSectionSource{items: map[string]*models.ClassSection{
		"cs-1a": {
			ID: "cs-1a", Name: "CS-1A", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
			Capacity: 40, Enrollment: 30, Active: true,
			Schedule: []models.SectionSlot{
				{ID: "sl1", SectionID: "cs-1a", Day: timetable.Monday, StartMin: 540, EndMin: 630},
				{ID: "sl2", SectionID: "cs-1a", Day: timetable.Wednesday, StartMin: 540, EndMin: 630},
			},
		},
	}}
	rooms := &mockRoomSource{rooms: []models.Room{
		{ID: "room-101", Name: "Room 101", Capacity: 40, Type: "lecture", Building: "Main", Active: true},
		{ID: "room-102", Name: "Room 102", Capacity: 20, Type: "lab", Building: "Annex", Active: false},
	}}
	teachers := &mockTeacherSource{teachers: []models.Teacher{
		{ID: "t1", Name: "Ada", Email: "ada@campus.edu", Department: "CS", Active: true},
	}}
	subjects := &mockSubjectSource{subjects: []models.Subject{
		{
			ID: "CS101", Name: "Intro to CS", Code: "CS101", Department: "CS", Credits: 4,
			Description: "Foundations of computing", Prerequisites: []string{"MATH101"}, Active: true,
		},
	}}
	svc := NewExportService(rooms, teachers, subjects, sections, nil, nil, ExportOptions{}, nil)
	return svc, sections
}

func TestSectionsCSVColumnOrder(t *testing.T) {
	svc, _ := exportFixture()

	out, err := svc.SectionsCSV(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Name,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status", lines[0])
	assert.Equal(t, "cs-1a,CS-1A,CS101,t1,room-101,Monday 09:00-10:30;Wednesday 09:00-10:30,40,30,Active", lines[1])
}

func TestSubjectsCSVCarriesDescription(t *testing.T) {
	svc, _ := exportFixture()

	out, err := svc.SubjectsCSV(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Name,Code,Department,Credits,Description,Prerequisites,Status", lines[0])
	assert.Equal(t, "CS101,Intro to CS,CS101,CS,4,Foundations of computing,MATH101,Active", lines[1])
}

func TestRoomsCSVIncludesInactiveRooms(t *testing.T) {
	svc, _ := exportFixture()

	out, err := svc.RoomsCSV(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "room-102")
	assert.True(t, strings.HasSuffix(lines[2], ",Inactive"))
}
