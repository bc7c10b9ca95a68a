package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	"github.com/campusops/timetable-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderGrid(grid export.Grid, title, footer string) ([]byte, error)
}

// ExportOptions tune rendered output.
type ExportOptions struct {
	PDFTitle  string
	PDFFooter string
}

// ExportService renders entity listings as CSV and the weekly timetable as a
// PDF grid. The CSV column layout is fixed by the consuming system: an ID and
// Name first, a Status column last, and schedule cells holding semicolon
// separated "Day HH:MM-HH:MM" entries.
type ExportService struct {
	rooms    conflictResourceSource
	teachers conflictTeacherSource
	subjects subjectListSource
	sections conflictSectionSource
	csv      csvRenderer
	pdf      pdfRenderer
	opts     ExportOptions
	logger   *zap.Logger
}

type subjectListSource interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

// NewExportService constructs an ExportService.
func NewExportService(rooms conflictResourceSource, teachers conflictTeacherSource, subjects subjectListSource, sections conflictSectionSource, csv csvRenderer, pdf pdfRenderer, opts ExportOptions, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if opts.PDFTitle == "" {
		opts.PDFTitle = "Class Timetable"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{rooms: rooms, teachers: teachers, subjects: subjects, sections: sections, csv: csv, pdf: pdf, opts: opts, logger: logger}
}

// RoomsCSV renders every room.
func (s *ExportService) RoomsCSV(ctx context.Context) ([]byte, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]string, 0, len(rooms))
	for _, room := range rooms {
		rows = append(rows, map[string]string{
			"ID":           room.ID,
			"Name":         room.Name,
			"Capacity":     fmt.Sprintf("%d", room.Capacity),
			"Type":         room.Type,
			"Building":     room.Building,
			"Availability": strings.Join(room.Availability, ";"),
			"Status":       statusLabel(room.Active),
		})
	}
	return s.csv.Render(export.Dataset{
		Headers: []string{"ID", "Name", "Capacity", "Type", "Building", "Availability", "Status"},
		Rows:    rows,
	})
}

// TeachersCSV renders every teacher.
func (s *ExportService) TeachersCSV(ctx context.Context) ([]byte, error) {
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]string, 0, len(teachers))
	for _, teacher := range teachers {
		rows = append(rows, map[string]string{
			"ID":             teacher.ID,
			"Name":           teacher.Name,
			"Email":          teacher.Email,
			"Department":     teacher.Department,
			"Specialization": teacher.Specialization,
			"Status":         statusLabel(teacher.Active),
		})
	}
	return s.csv.Render(export.Dataset{
		Headers: []string{"ID", "Name", "Email", "Department", "Specialization", "Status"},
		Rows:    rows,
	})
}

// SubjectsCSV renders every subject.
func (s *ExportService) SubjectsCSV(ctx context.Context) ([]byte, error) {
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]string, 0, len(subjects))
	for _, subject := range subjects {
		rows = append(rows, map[string]string{
			"ID":            subject.ID,
			"Name":          subject.Name,
			"Code":          subject.Code,
			"Department":    subject.Department,
			"Credits":       fmt.Sprintf("%d", subject.Credits),
			"Description":   subject.Description,
			"Prerequisites": strings.Join(subject.Prerequisites, ";"),
			"Status":        statusLabel(subject.Active),
		})
	}
	return s.csv.Render(export.Dataset{
		Headers: []string{"ID", "Name", "Code", "Department", "Credits", "Description", "Prerequisites", "Status"},
		Rows:    rows,
	})
}

// SectionsCSV renders every section with its schedule cell.
func (s *ExportService) SectionsCSV(ctx context.Context) ([]byte, error) {
	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]string, 0, len(sections))
	for _, section := range sections {
		rows = append(rows, map[string]string{
			"ID":         section.ID,
			"Name":       section.Name,
			"Subject":    section.SubjectID,
			"Teacher":    section.TeacherID,
			"Room":       section.RoomID,
			"Schedule":   scheduleCell(section.Schedule),
			"Capacity":   fmt.Sprintf("%d", section.Capacity),
			"Enrollment": fmt.Sprintf("%d", section.Enrollment),
			"Status":     statusLabel(section.Active),
		})
	}
	return s.csv.Render(export.Dataset{
		Headers: []string{"ID", "Name", "Subject", "Teacher", "Room", "Schedule", "Capacity", "Enrollment", "Status"},
		Rows:    rows,
	})
}

// TimetablePDF renders the active weekly timetable grid.
func (s *ExportService) TimetablePDF(ctx context.Context) ([]byte, error) {
	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	days := []timetable.Weekday{timetable.Monday, timetable.Tuesday, timetable.Wednesday, timetable.Thursday, timetable.Friday, timetable.Saturday}
	grid := export.Grid{Days: make([]string, 0, len(days))}
	for _, day := range days {
		grid.Days = append(grid.Days, day.String())
	}

	for _, section := range sections {
		if !section.Active {
			continue
		}
		for _, slot := range section.Schedule {
			iv := slot.Interval()
			line := fmt.Sprintf("%s-%s %s (%s)", timetable.FormatClock(iv.Start), timetable.FormatClock(iv.End), section.Name, section.RoomID)
			grid.Cells = append(grid.Cells, export.GridCell{Day: iv.Day.String(), Lines: []string{line}})
		}
	}

	return s.pdf.RenderGrid(grid, s.opts.PDFTitle, s.opts.PDFFooter)
}

func statusLabel(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

// scheduleCell joins a section's slots into the fixed CSV cell format,
// "Monday 09:00-10:30;Wednesday 09:00-10:30".
func scheduleCell(slots []models.SectionSlot) string {
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		parts = append(parts, slot.Interval().String())
	}
	return strings.Join(parts, ";")
}
