package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
)

// ConflictRepository persists conflict reports between detection runs so
// resolution status survives restarts.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs a ConflictRepository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

type conflictRow struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"`
	Severity    string    `db:"severity"`
	Status      string    `db:"status"`
	ResourceID  string    `db:"resource_id"`
	Description string    `db:"description"`
	Payload     []byte    `db:"payload"`
	DetectedAt  time.Time `db:"detected_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type conflictPayload struct {
	Assignments []timetable.Assignment `json:"assignments"`
	Suggestions []timetable.Suggestion `json:"suggestions"`
}

func (row conflictRow) toReport() (timetable.ConflictReport, error) {
	var payload conflictPayload
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		return timetable.ConflictReport{}, fmt.Errorf("decode conflict payload: %w", err)
	}
	return timetable.ConflictReport{
		ID:          row.ID,
		Kind:        timetable.ConflictKind(row.Kind),
		Severity:    timetable.Severity(row.Severity),
		Status:      timetable.ReportStatus(row.Status),
		ResourceID:  row.ResourceID,
		Description: row.Description,
		Assignments: payload.Assignments,
		Suggestions: payload.Suggestions,
	}, nil
}

// Sync replaces open reports with the given detection result. A stored report
// whose deterministic ID shows up again reopens when it was resolved: the
// conflict is back, so the old resolution no longer holds. Overridden reports
// stay acknowledged.
func (r *ConflictRepository) Sync(ctx context.Context, reports []timetable.ConflictReport) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conflict sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(reports))
	now := time.Now().UTC()
	const upsert = `INSERT INTO conflict_reports (id, kind, severity, status, resource_id, description, payload, detected_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET severity = EXCLUDED.severity, description = EXCLUDED.description, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at,
			status = CASE WHEN conflict_reports.status = 'resolved' THEN EXCLUDED.status ELSE conflict_reports.status END`
	for _, report := range reports {
		payload, err := json.Marshal(conflictPayload{Assignments: report.Assignments, Suggestions: report.Suggestions})
		if err != nil {
			return fmt.Errorf("encode conflict payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsert,
			report.ID, string(report.Kind), string(report.Severity), string(report.Status),
			report.ResourceID, report.Description, payload, now); err != nil {
			return fmt.Errorf("upsert conflict: %w", err)
		}
		ids = append(ids, report.ID)
	}

	// Open reports absent from the latest run no longer exist.
	if len(ids) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conflict_reports WHERE status = $1`, string(timetable.StatusOpen)); err != nil {
			return fmt.Errorf("prune conflicts: %w", err)
		}
	} else {
		placeholders := make([]string, len(ids))
		args := make([]interface{}, 0, len(ids)+1)
		args = append(args, string(timetable.StatusOpen))
		for i, id := range ids {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query := fmt.Sprintf(`DELETE FROM conflict_reports WHERE status = $1 AND id NOT IN (%s)`, strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("prune conflicts: %w", err)
		}
	}

	return tx.Commit()
}

// ListAll returns every stored report without pagination, for detection runs
// that overlay stored statuses onto fresh results.
func (r *ConflictRepository) ListAll(ctx context.Context) ([]timetable.ConflictReport, error) {
	const query = `SELECT id, kind, severity, status, resource_id, description, payload, detected_at, updated_at FROM conflict_reports ORDER BY detected_at, id`
	var rows []conflictRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all conflicts: %w", err)
	}
	reports := make([]timetable.ConflictReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.toReport()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// List returns stored reports, optionally filtered by status and kind.
func (r *ConflictRepository) List(ctx context.Context, filter models.ConflictFilter) ([]timetable.ConflictReport, int, error) {
	base := "FROM conflict_reports WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)+1))
		args = append(args, filter.Severity)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, kind, severity, status, resource_id, description, payload, detected_at, updated_at %s ORDER BY detected_at, id LIMIT %d OFFSET %d", base, size, offset)
	var rows []conflictRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conflicts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conflicts: %w", err)
	}

	reports := make([]timetable.ConflictReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.toReport()
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, report)
	}

	return reports, total, nil
}

// FindByID fetches one stored report.
func (r *ConflictRepository) FindByID(ctx context.Context, id string) (*timetable.ConflictReport, error) {
	const query = `SELECT id, kind, severity, status, resource_id, description, payload, detected_at, updated_at FROM conflict_reports WHERE id = $1`
	var row conflictRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	report, err := row.toReport()
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateStatus records a resolution state transition.
func (r *ConflictRepository) UpdateStatus(ctx context.Context, id string, status timetable.ReportStatus) error {
	const query = `UPDATE conflict_reports SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update conflict status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conflict status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
