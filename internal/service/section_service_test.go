package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type mockSectionRepo struct {
	items map[string]*models.ClassSection
}

func (m *mockSectionRepo) List(ctx context.Context, filter models.SectionFilter) ([]models.ClassSection, int, error) {
	var out []models.ClassSection
	for _, section := range m.items {
		out = append(out, *section)
	}
	return out, len(out), nil
}

func (m *mockSectionRepo) ListAll(ctx context.Context) ([]models.ClassSection, error) {
	out, _, err := m.List(ctx, models.SectionFilter{})
	return out, err
}

func (m *mockSectionRepo) FindByID(ctx context.Context, id string) (*models.ClassSection, error) {
	if section, ok := m.items[id]; ok {
		cp := *section
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRepo) Create(ctx context.Context, section *models.ClassSection) error {
	section.ID = "cs-new"
	section.Version = 1
	cp := *section
	m.items[section.ID] = &cp
	return nil
}

func (m *mockSectionRepo) Update(ctx context.Context, section *models.ClassSection) error {
	stored, ok := m.items[section.ID]
	if !ok || stored.Version != section.Version {
		return sql.ErrNoRows
	}
	section.Version++
	cp := *section
	m.items[section.ID] = &cp
	return nil
}

func (m *mockSectionRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.items[id].Active = active
	m.items[id].Version++
	return nil
}

func (m *mockSectionRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockSectionRoomLookup struct {
	rooms map[string]*models.Room
	slots map[string][]models.RoomSlot
}

func (m *mockSectionRoomLookup) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if room, ok := m.rooms[id]; ok {
		cp := *room
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRoomLookup) ListSlots(ctx context.Context, roomID string) ([]models.RoomSlot, error) {
	return m.slots[roomID], nil
}

type mockSectionTeacherLookup struct {
	teachers map[string]*models.Teacher
}

func (m *mockSectionTeacherLookup) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newSectionFixture() (*SectionService, *mockSectionRepo, *mockSectionRoomLookup) {
	repo := &mockSectionRepo{items: map[string]*models.ClassSection{
		"cs-1a": {
			ID: "cs-1a", Name: "CS-1A", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
			Capacity: 40, Enrollment: 30, Active: true, Version: 2,
			Schedule: []models.SectionSlot{{SectionID: "cs-1a", Day: timetable.Monday, StartMin: 600, EndMin: 690}},
		},
	}}
	rooms := &mockSectionRoomLookup{
		rooms: map[string]*models.Room{
			"room-101": {ID: "room-101", Name: "Room 101", Capacity: 40, Active: true},
			"room-lab": {ID: "room-lab", Name: "Lab", Capacity: 25, Active: true, Availability: []string{"Monday", "Tuesday"}},
		},
		slots: map[string][]models.RoomSlot{
			"room-101": {{RoomID: "room-101", SectionID: "cs-1a", Day: timetable.Monday, StartMin: 600, EndMin: 690}},
		},
	}
	teachers := &mockSectionTeacherLookup{teachers: map[string]*models.Teacher{
		"t1": {ID: "t1", Name: "Dr. Caabay", Active: true},
	}}
	subjects := &mockSubjectLookup{items: map[string]*models.Subject{
		"CS101": {ID: "CS101", Name: "Intro to Computing", Credits: 3},
	}}
	svc := NewSectionService(repo, rooms, teachers, subjects, timetable.NewValidator(18, 2), nil, nil)
	return svc, repo, rooms
}

func TestSectionCreate(t *testing.T) {
	svc, repo, _ := newSectionFixture()

	section, err := svc.Create(context.Background(), CreateSectionRequest{
		Name: "CS-1B", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
		Capacity: 30, Enrollment: 25,
		Schedule: []SlotRequest{{Day: "Tuesday", StartMin: 600, EndMin: 690}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, section.Version)
	assert.True(t, section.Active)
	assert.Contains(t, repo.items, section.ID)
}

func TestSectionCreateRejectsInvertedInterval(t *testing.T) {
	svc, _, _ := newSectionFixture()

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		Name: "CS-1B", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
		Capacity: 30, Enrollment: 25,
		Schedule: []SlotRequest{{Day: "Tuesday", StartMin: 690, EndMin: 600}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidInterval))
}

func TestSectionCreateRejectsUnknownSubject(t *testing.T) {
	svc, _, _ := newSectionFixture()

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		Name: "CS-1B", SubjectID: "NOPE", TeacherID: "t1", RoomID: "room-101",
		Capacity: 30, Enrollment: 25,
		Schedule: []SlotRequest{{Day: "Tuesday", StartMin: 600, EndMin: 690}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestSectionCreateRejectsEnrollmentOverRoomCapacity(t *testing.T) {
	svc, _, _ := newSectionFixture()

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		Name: "CS-1B", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-lab",
		Capacity: 30, Enrollment: 30,
		Schedule: []SlotRequest{{Day: "Monday", StartMin: 780, EndMin: 870}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded))
}

func TestSectionCreateRejectsUnavailableDay(t *testing.T) {
	svc, _, _ := newSectionFixture()

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		Name: "CS-1B", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-lab",
		Capacity: 20, Enrollment: 15,
		Schedule: []SlotRequest{{Day: "Friday", StartMin: 600, EndMin: 690}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSectionCreateRejectsRoomDailyCap(t *testing.T) {
	svc, _, rooms := newSectionFixture()

	// Room already holds two Monday meetings and the cap is two.
	rooms.slots["room-101"] = append(rooms.slots["room-101"],
		models.RoomSlot{RoomID: "room-101", SectionID: "cs-x", Day: timetable.Monday, StartMin: 720, EndMin: 810})

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		Name: "CS-1B", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
		Capacity: 30, Enrollment: 25,
		Schedule: []SlotRequest{{Day: "Monday", StartMin: 870, EndMin: 960}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded))
}

func TestSectionUpdateExcludesOwnSlotsFromDailyCap(t *testing.T) {
	svc, repo, rooms := newSectionFixture()

	rooms.slots["room-101"] = append(rooms.slots["room-101"],
		models.RoomSlot{RoomID: "room-101", SectionID: "cs-x", Day: timetable.Monday, StartMin: 720, EndMin: 810})

	// Moving cs-1a within Monday stays at two meetings total.
	section, err := svc.Update(context.Background(), "cs-1a", UpdateSectionRequest{
		Name: "CS-1A", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
		Capacity: 40, Enrollment: 30, Version: 2,
		Schedule: []SlotRequest{{Day: "Monday", StartMin: 870, EndMin: 960}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, section.Version)
	assert.Equal(t, 870, repo.items["cs-1a"].Schedule[0].StartMin)
}

func TestSectionUpdateStaleVersionRejected(t *testing.T) {
	svc, _, _ := newSectionFixture()

	_, err := svc.Update(context.Background(), "cs-1a", UpdateSectionRequest{
		Name: "CS-1A", SubjectID: "CS101", TeacherID: "t1", RoomID: "room-101",
		Capacity: 40, Enrollment: 30, Version: 1,
		Schedule: []SlotRequest{{Day: "Monday", StartMin: 600, EndMin: 690}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPreconditionFailed))
}

func TestSectionToggleStatusBumpsVersion(t *testing.T) {
	svc, repo, _ := newSectionFixture()

	section, err := svc.ToggleStatus(context.Background(), "cs-1a")
	require.NoError(t, err)
	assert.False(t, section.Active)
	assert.Equal(t, 3, section.Version)
	assert.False(t, repo.items["cs-1a"].Active)
}

func TestSectionDelete(t *testing.T) {
	svc, repo, _ := newSectionFixture()

	require.NoError(t, svc.Delete(context.Background(), "cs-1a"))
	assert.NotContains(t, repo.items, "cs-1a")

	err := svc.Delete(context.Background(), "cs-1a")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
