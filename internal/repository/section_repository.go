package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// SectionRepository manages persistence for class sections and their slots.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = "id, name, subject_id, teacher_id, room_id, capacity, enrollment, active, version, created_at, updated_at"

// List returns sections matching filters along with total count.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.ClassSection, int, error) {
	base := "FROM class_sections WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"name":       "name",
		"enrollment": "enrollment",
		"capacity":   "capacity",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", sectionColumns, base, column, order, size, offset)
	var sections []models.ClassSection
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}

	return sections, total, nil
}

// ListAll returns every section with its schedule slots attached, the snapshot
// conflict detection runs on.
func (r *SectionRepository) ListAll(ctx context.Context) ([]models.ClassSection, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sections ORDER BY created_at", sectionColumns)
	var sections []models.ClassSection
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list all sections: %w", err)
	}

	const slotQuery = `SELECT id, section_id, day_of_week, start_min, end_min FROM section_slots ORDER BY day_of_week, start_min`
	var slots []models.SectionSlot
	if err := r.db.SelectContext(ctx, &slots, slotQuery); err != nil {
		return nil, fmt.Errorf("list section slots: %w", err)
	}

	bySection := make(map[string][]models.SectionSlot, len(sections))
	for _, slot := range slots {
		bySection[slot.SectionID] = append(bySection[slot.SectionID], slot)
	}
	for i := range sections {
		sections[i].Schedule = bySection[sections[i].ID]
	}

	return sections, nil
}

// FindByID fetches a section with its schedule slots.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.ClassSection, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sections WHERE id = $1", sectionColumns)
	var section models.ClassSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}

	const slotQuery = `SELECT id, section_id, day_of_week, start_min, end_min FROM section_slots WHERE section_id = $1 ORDER BY day_of_week, start_min`
	if err := r.db.SelectContext(ctx, &section.Schedule, slotQuery, id); err != nil {
		return nil, fmt.Errorf("load section slots: %w", err)
	}

	return &section, nil
}

// Create inserts a new section record with its schedule slots.
func (r *SectionRepository) Create(ctx context.Context, section *models.ClassSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now
	section.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO class_sections (id, name, subject_id, teacher_id, room_id, capacity, enrollment, active, version, created_at, updated_at)
		VALUES (:id, :name, :subject_id, :teacher_id, :room_id, :capacity, :enrollment, :active, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}

	if err := insertSlots(ctx, tx, section); err != nil {
		return err
	}

	return tx.Commit()
}

// Update modifies a section and replaces its schedule slots, guarded by the
// version the caller read. sql.ErrNoRows signals a stale snapshot.
func (r *SectionRepository) Update(ctx context.Context, section *models.ClassSection) error {
	section.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `UPDATE class_sections SET name = $2, subject_id = $3, teacher_id = $4, room_id = $5, capacity = $6, enrollment = $7, active = $8, version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $10`
	res, err := tx.ExecContext(ctx, query,
		section.ID, section.Name, section.SubjectID, section.TeacherID, section.RoomID,
		section.Capacity, section.Enrollment, section.Active, section.UpdatedAt, section.Version)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	section.Version++

	if _, err := tx.ExecContext(ctx, `DELETE FROM section_slots WHERE section_id = $1`, section.ID); err != nil {
		return fmt.Errorf("clear section slots: %w", err)
	}
	if err := insertSlots(ctx, tx, section); err != nil {
		return err
	}

	return tx.Commit()
}

// SetActive toggles a section's active flag.
func (r *SectionRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE class_sections SET active = $2, version = version + 1, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("toggle section: %w", err)
	}
	return nil
}

// Delete removes the section and its slots.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM section_slots WHERE section_id = $1`, id); err != nil {
		return fmt.Errorf("delete section slots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	return tx.Commit()
}

func insertSlots(ctx context.Context, tx *sqlx.Tx, section *models.ClassSection) error {
	const query = `INSERT INTO section_slots (id, section_id, day_of_week, start_min, end_min) VALUES ($1, $2, $3, $4, $5)`
	for i := range section.Schedule {
		slot := &section.Schedule[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.SectionID = section.ID
		if _, err := tx.ExecContext(ctx, query, slot.ID, slot.SectionID, slot.Day, slot.StartMin, slot.EndMin); err != nil {
			return fmt.Errorf("insert section slot: %w", err)
		}
	}
	return nil
}
