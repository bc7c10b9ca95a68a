package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
)

func TestSectionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	sectionRows := sqlmock.NewRows([]string{"id", "name", "subject_id", "teacher_id", "room_id", "capacity", "enrollment", "active", "version", "created_at", "updated_at"}).
		AddRow("s1", "CS-1A", "CS101", "t1", "room-101", 40, 35, true, 3, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, subject_id, teacher_id, room_id, capacity, enrollment, active, version, created_at, updated_at FROM class_sections WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sectionRows)

	slotRows := sqlmock.NewRows([]string{"id", "section_id", "day_of_week", "start_min", "end_min"}).
		AddRow("sl1", "s1", 1, 540, 630)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, section_id, day_of_week, start_min, end_min FROM section_slots WHERE section_id = $1")).
		WithArgs("s1").
		WillReturnRows(slotRows)

	section, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, section.Version)
	require.Len(t, section.Schedule, 1)
	assert.Equal(t, timetable.Monday, section.Schedule[0].Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryUpdateStaleVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE class_sections SET name").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	section := &models.ClassSection{ID: "s1", Name: "CS-1A", Version: 2}
	err := repo.Update(context.Background(), section)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreateInsertsSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO class_sections").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO section_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO section_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	section := &models.ClassSection{
		Name:      "CS-1A",
		SubjectID: "CS101",
		TeacherID: "t1",
		RoomID:    "room-101",
		Active:    true,
		Schedule: []models.SectionSlot{
			{Day: timetable.Monday, StartMin: 540, EndMin: 630},
			{Day: timetable.Wednesday, StartMin: 540, EndMin: 630},
		},
	}
	require.NoError(t, repo.Create(context.Background(), section))
	assert.Equal(t, 1, section.Version)
	assert.NotEmpty(t, section.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
