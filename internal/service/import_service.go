package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type importSectionSink interface {
	Create(ctx context.Context, section *models.ClassSection) error
}

type importRoomSink interface {
	Create(ctx context.Context, room *models.Room) error
}

type importTeacherSink interface {
	Create(ctx context.Context, teacher *models.Teacher) error
}

// RowError records one rejected CSV row. Line numbers are 1-based and include
// the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportSummary reports what an import run accepted and rejected. Malformed
// rows never abort the run and are never coerced into valid records.
type ImportSummary struct {
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// ImportService parses entity CSV files at the boundary. The column layout is
// fixed: ID and Name first, Status last, schedule cells semicolon separated.
type ImportService struct {
	sections importSectionSink
	rooms    importRoomSink
	teachers importTeacherSink
	maxRows  int
	logger   *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(sections importSectionSink, rooms importRoomSink, teachers importTeacherSink, maxRows int, logger *zap.Logger) *ImportService {
	if maxRows <= 0 {
		maxRows = 5000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{sections: sections, rooms: rooms, teachers: teachers, maxRows: maxRows, logger: logger}
}

var sectionHeader = []string{"ID", "Name", "Subject", "Teacher", "Room", "Schedule", "Capacity", "Enrollment", "Status"}

// Sections parses a section CSV stream and inserts each well-formed row.
func (s *ImportService) Sections(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	records, err := s.read(r, sectionHeader)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, record := range records {
		line := i + 2
		section, reason := parseSectionRow(record)
		if reason != "" {
			summary.Rejected = append(summary.Rejected, RowError{Line: line, Reason: reason})
			continue
		}
		if err := s.sections.Create(ctx, section); err != nil {
			summary.Rejected = append(summary.Rejected, RowError{Line: line, Reason: "insert failed"})
			s.logger.Warn("section import insert failed", zap.Int("line", line), zap.Error(err))
			continue
		}
		summary.Imported++
	}

	s.logger.Info("section import finished",
		zap.Int("imported", summary.Imported),
		zap.Int("rejected", len(summary.Rejected)))
	return summary, nil
}

var roomHeader = []string{"ID", "Name", "Capacity", "Type", "Building", "Availability", "Status"}

// Rooms parses a room CSV stream and inserts each well-formed row.
func (s *ImportService) Rooms(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	records, err := s.read(r, roomHeader)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, record := range records {
		line := i + 2
		room, reason := parseRoomRow(record)
		if reason != "" {
			summary.Rejected = append(summary.Rejected, RowError{Line: line, Reason: reason})
			continue
		}
		if err := s.rooms.Create(ctx, room); err != nil {
			summary.Rejected = append(summary.Rejected, RowError{Line: line, Reason: "insert failed"})
			s.logger.Warn("room import insert failed", zap.Int("line", line), zap.Error(err))
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

var teacherHeader = []string{"ID", "Name", "Email", "Department", "Specialization", "Status"}

// Teachers parses a teacher CSV stream and inserts each well-formed row.
func (s *ImportService) Teachers(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	records, err := s.read(r, teacherHeader)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, record := range records {
		line := i + 2
		teacher, reason := parseTeacherRow(record)
		if reason != "" {
			summary.Rejected = append(summary.Rejected, RowError{Line: line, Reason: reason})
			continue
		}
		if err := s.teachers.Create(ctx, teacher); err != nil {
			summary.Rejected = append(summary.Rejected, RowError{Line: line, Reason: "insert failed"})
			s.logger.Warn("teacher import insert failed", zap.Int("line", line), zap.Error(err))
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

func (s *ImportService) read(r io.Reader, header []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)

	first, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing CSV header row")
	}
	for i, want := range header {
		if !strings.EqualFold(strings.TrimSpace(first[i]), want) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unexpected CSV header, want %s", strings.Join(header, ",")))
		}
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "malformed CSV input")
		}
		records = append(records, record)
		if len(records) > s.maxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds %d rows", s.maxRows))
		}
	}
	return records, nil
}

func parseSectionRow(record []string) (*models.ClassSection, string) {
	name := strings.TrimSpace(record[1])
	if name == "" {
		return nil, "name is required"
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil || capacity <= 0 {
		return nil, "capacity must be a positive integer"
	}
	enrollment, err := strconv.Atoi(strings.TrimSpace(record[7]))
	if err != nil || enrollment < 0 {
		return nil, "enrollment must be a non-negative integer"
	}
	if enrollment > capacity {
		return nil, "enrollment exceeds capacity"
	}
	active, ok := parseStatus(record[8])
	if !ok {
		return nil, "status must be Active or Inactive"
	}

	slots, reason := parseScheduleCell(record[5])
	if reason != "" {
		return nil, reason
	}

	return &models.ClassSection{
		ID:         strings.TrimSpace(record[0]),
		Name:       name,
		SubjectID:  strings.TrimSpace(record[2]),
		TeacherID:  strings.TrimSpace(record[3]),
		RoomID:     strings.TrimSpace(record[4]),
		Capacity:   capacity,
		Enrollment: enrollment,
		Active:     active,
		Schedule:   slots,
	}, ""
}

func parseRoomRow(record []string) (*models.Room, string) {
	name := strings.TrimSpace(record[1])
	if name == "" {
		return nil, "name is required"
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil || capacity <= 0 {
		return nil, "capacity must be a positive integer"
	}
	active, ok := parseStatus(record[6])
	if !ok {
		return nil, "status must be Active or Inactive"
	}

	var availability []string
	for _, raw := range splitCell(record[5]) {
		day, err := timetable.ParseWeekday(raw)
		if err != nil {
			return nil, "unknown availability day " + raw
		}
		availability = append(availability, day.String())
	}

	return &models.Room{
		ID:           strings.TrimSpace(record[0]),
		Name:         name,
		Capacity:     capacity,
		Type:         strings.TrimSpace(record[3]),
		Building:     strings.TrimSpace(record[4]),
		Active:       active,
		Availability: availability,
	}, ""
}

func parseTeacherRow(record []string) (*models.Teacher, string) {
	name := strings.TrimSpace(record[1])
	if name == "" {
		return nil, "name is required"
	}
	email := strings.ToLower(strings.TrimSpace(record[2]))
	if !strings.Contains(email, "@") {
		return nil, "email is malformed"
	}
	active, ok := parseStatus(record[5])
	if !ok {
		return nil, "status must be Active or Inactive"
	}

	return &models.Teacher{
		ID:             strings.TrimSpace(record[0]),
		Name:           name,
		Email:          email,
		Department:     strings.TrimSpace(record[3]),
		Specialization: strings.TrimSpace(record[4]),
		Active:         active,
	}, ""
}

// parseScheduleCell splits "Monday 09:00-10:30;Wednesday 09:00-10:30" into
// validated slots. Any malformed entry rejects the whole row.
func parseScheduleCell(cell string) ([]models.SectionSlot, string) {
	parts := splitCell(cell)
	if len(parts) == 0 {
		return nil, "schedule is required"
	}
	slots := make([]models.SectionSlot, 0, len(parts))
	for _, part := range parts {
		iv, err := timetable.ParseInterval(part)
		if err != nil {
			return nil, "malformed schedule entry " + strconv.Quote(part)
		}
		slots = append(slots, models.SectionSlot{Day: iv.Day, StartMin: iv.Start, EndMin: iv.End})
	}
	return slots, ""
}

func parseStatus(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return true, true
	case "inactive":
		return false, true
	default:
		return false, false
	}
}

func splitCell(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
