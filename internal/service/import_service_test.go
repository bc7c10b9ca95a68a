package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type mockImportSink struct {
	sections []models.ClassSection
	rooms    []models.Room
	teachers []models.Teacher
	fail     bool
}

func (m *mockImportSink) Create(ctx context.Context, section *models.ClassSection) error {
	if m.fail {
		return assert.AnError
	}
	m.sections = append(m.sections, *section)
	return nil
}

type mockRoomSink struct{ rooms []models.Room }

func (m *mockRoomSink) Create(ctx context.Context, room *models.Room) error {
	m.rooms = append(m.rooms, *room)
	return nil
}

type mockTeacherSink struct{ teachers []models.Teacher }

func (m *mockTeacherSink) Create(ctx context.Context, teacher *models.Teacher) error {
	m.teachers = append(m.teachers, *teacher)
	return nil
}

func newImportFixture() (*ImportService, *mockImportSink, *mockRoomSink, *mockTeacherSink) {
	sections := &mockImportSink{}
	rooms := &mockRoomSink{}
	teachers := &mockTeacherSink{}
	return NewImportService(sections, rooms, teachers, 100, nil), sections, rooms, teachers
}

func TestImportSectionsAcceptsWellFormedRows(t *testing.T) {
	svc, sink, _, _ := newImportFixture()

	input := strings.Join([]string{
		"ID,Name,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status",
		`cs-1a,CS-1A,CS101,t1,room-101,Monday 09:00-10:30;Wednesday 09:00-10:30,40,30,Active`,
		`cs-1b,CS-1B,MATH201,t2,room-102,Tuesday 13:00-14:30,35,35,Inactive`,
	}, "\n")

	summary, err := svc.Sections(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Empty(t, summary.Rejected)

	require.Len(t, sink.sections, 2)
	first := sink.sections[0]
	assert.Equal(t, "cs-1a", first.ID)
	require.Len(t, first.Schedule, 2)
	assert.Equal(t, timetable.Monday, first.Schedule[0].Day)
	assert.Equal(t, 540, first.Schedule[0].StartMin)
	assert.Equal(t, 630, first.Schedule[0].EndMin)
	assert.False(t, sink.sections[1].Active)
}

func TestImportSectionsRejectsMalformedRowsWithLineNumbers(t *testing.T) {
	svc, sink, _, _ := newImportFixture()

	input := strings.Join([]string{
		"ID,Name,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status",
		`cs-1a,CS-1A,CS101,t1,room-101,Monday 09:00-10:30,40,30,Active`,
		`cs-1b,CS-1B,MATH201,t2,room-102,Monday 09:00-10:30,zero,30,Active`,
		`cs-1c,CS-1C,CS101,t1,room-101,Monday 09:00-10:30,30,31,Active`,
		`cs-1d,CS-1D,CS101,t1,room-101,Funday 09:00-10:30,30,20,Active`,
		`cs-1e,CS-1E,CS101,t1,room-101,Monday 10:30-09:00,30,20,Active`,
		`cs-1f,CS-1F,CS101,t1,room-101,Monday 09:00-10:30,30,20,Maybe`,
	}, "\n")

	summary, err := svc.Sections(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	require.Len(t, summary.Rejected, 5)

	lines := make([]int, 0, len(summary.Rejected))
	for _, rejected := range summary.Rejected {
		lines = append(lines, rejected.Line)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7}, lines)
	assert.Equal(t, "capacity must be a positive integer", summary.Rejected[0].Reason)
	assert.Equal(t, "enrollment exceeds capacity", summary.Rejected[1].Reason)

	require.Len(t, sink.sections, 1)
	assert.Equal(t, "cs-1a", sink.sections[0].ID)
}

func TestImportSectionsRejectsWrongHeader(t *testing.T) {
	svc, _, _, _ := newImportFixture()

	input := "ID,Title,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status\n"
	_, err := svc.Sections(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestImportSectionsRejectsReorderedHeader(t *testing.T) {
	svc, _, _, _ := newImportFixture()

	input := strings.Join([]string{
		"ID,Name,Subject,Teacher,Room,Capacity,Enrollment,Schedule,Status",
		`cs-1a,CS-1A,CS101,t1,room-101,40,30,Monday 09:00-10:30,Active`,
	}, "\n")

	_, err := svc.Sections(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestImportSectionsRejectsRaggedCSV(t *testing.T) {
	svc, _, _, _ := newImportFixture()

	input := strings.Join([]string{
		"ID,Name,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status",
		`cs-1a,CS-1A,CS101`,
	}, "\n")

	_, err := svc.Sections(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestImportSectionsEnforcesRowLimit(t *testing.T) {
	sections := &mockImportSink{}
	svc := NewImportService(sections, &mockRoomSink{}, &mockTeacherSink{}, 2, nil)

	rows := []string{"ID,Name,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status"}
	for i := 0; i < 3; i++ {
		rows = append(rows, `cs-1a,CS-1A,CS101,t1,room-101,Monday 09:00-10:30,40,30,Active`)
	}

	_, err := svc.Sections(context.Background(), strings.NewReader(strings.Join(rows, "\n")))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestImportSectionsRecordsInsertFailures(t *testing.T) {
	svc, sink, _, _ := newImportFixture()
	sink.fail = true

	input := strings.Join([]string{
		"ID,Name,Subject,Teacher,Room,Schedule,Capacity,Enrollment,Status",
		`cs-1a,CS-1A,CS101,t1,room-101,Monday 09:00-10:30,40,30,Active`,
	}, "\n")

	summary, err := svc.Sections(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Imported)
	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, 2, summary.Rejected[0].Line)
}

func TestImportRooms(t *testing.T) {
	svc, _, sink, _ := newImportFixture()

	input := strings.Join([]string{
		"ID,Name,Capacity,Type,Building,Availability,Status",
		`room-101,Room 101,40,lecture,Main,Monday;Wednesday;Friday,Active`,
		`room-x,Room X,0,lab,Annex,,Active`,
	}, "\n")

	summary, err := svc.Rooms(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, 3, summary.Rejected[0].Line)

	require.Len(t, sink.rooms, 1)
	assert.Equal(t, []string{"Monday", "Wednesday", "Friday"}, []string(sink.rooms[0].Availability))
}

func TestImportTeachers(t *testing.T) {
	svc, _, _, sink := newImportFixture()

	input := strings.Join([]string{
		"ID,Name,Email,Department,Specialization,Status",
		`t1,Dr. Caabay,caabay@campus.edu,CS,Algorithms,Active`,
		`t2,No Email,not-an-email,CS,,Active`,
	}, "\n")

	summary, err := svc.Teachers(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, "email is malformed", summary.Rejected[0].Reason)

	require.Len(t, sink.teachers, 1)
	assert.Equal(t, "caabay@campus.edu", sink.teachers[0].Email)
}
