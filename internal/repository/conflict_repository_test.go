package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/timetable"
)

func TestConflictRepositorySyncReopensResolved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	// The upsert must reset a stored resolved status back to the incoming
	// open one; a report that reappears under its deterministic ID is a live
	// conflict again. Overridden rows keep their status via the CASE branch.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("status = CASE WHEN conflict_reports.status = 'resolved' THEN EXCLUDED.status ELSE conflict_reports.status END")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM conflict_reports WHERE status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	report := timetable.ConflictReport{
		ID:         "room:room-101:Monday:600",
		Kind:       timetable.KindRoom,
		Severity:   timetable.SeverityHigh,
		Status:     timetable.StatusOpen,
		ResourceID: "room-101",
	}
	require.NoError(t, repo.Sync(context.Background(), []timetable.ConflictReport{report}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositorySyncPrunesAllOpenWhenEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conflict_reports WHERE status = $1")).
		WithArgs(string(timetable.StatusOpen)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Sync(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	rows := sqlmock.NewRows([]string{"id", "kind", "severity", "status", "resource_id", "description", "payload", "detected_at", "updated_at"}).
		AddRow("room:room-101:Monday:600", "room", "high", "overridden", "room-101", "room room-101 is double-booked", []byte(`{"assignments":[],"suggestions":[]}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, kind, severity, status, resource_id, description, payload, detected_at, updated_at FROM conflict_reports ORDER BY detected_at, id")).
		WillReturnRows(rows)

	reports, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, timetable.StatusOverridden, reports[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
