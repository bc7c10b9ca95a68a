package service

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type conflictStore interface {
	Sync(ctx context.Context, reports []timetable.ConflictReport) error
	List(ctx context.Context, filter models.ConflictFilter) ([]timetable.ConflictReport, int, error)
	ListAll(ctx context.Context) ([]timetable.ConflictReport, error)
	FindByID(ctx context.Context, id string) (*timetable.ConflictReport, error)
	UpdateStatus(ctx context.Context, id string, status timetable.ReportStatus) error
}

type conflictSectionSource interface {
	ListAll(ctx context.Context) ([]models.ClassSection, error)
	FindByID(ctx context.Context, id string) (*models.ClassSection, error)
	Update(ctx context.Context, section *models.ClassSection) error
}

type conflictResourceSource interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type conflictTeacherSource interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

// ResolveRequest selects a resolution path for one report. Exactly one of
// SuggestionID, Manual, or Override drives the transition.
type ResolveRequest struct {
	SuggestionID string         `json:"suggestion_id,omitempty"`
	Manual       *ManualRequest `json:"manual,omitempty"`
	Override     bool           `json:"override,omitempty"`
}

// ManualRequest reassigns one scheduled meeting by hand.
type ManualRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	Day       string `json:"day" validate:"required"`
	StartMin  int    `json:"start_min"`

	NewRoomID    string       `json:"new_room_id,omitempty"`
	NewTeacherID string       `json:"new_teacher_id,omitempty"`
	NewSlot      *SlotRequest `json:"new_slot,omitempty"`
}

// ConflictService runs detection over the stored timetable, keeps the report
// store in sync, and drives resolutions back into persistence.
type ConflictService struct {
	store    conflictStore
	sections conflictSectionSource
	rooms    conflictResourceSource
	teachers conflictTeacherSource
	capacity *timetable.Validator
	opts     timetable.DetectorOptions
	metrics  *MetricsService
	cache    *CacheService
	logger   *zap.Logger
}

// WithCache wires cache invalidation for the weekly timetable view.
func (s *ConflictService) WithCache(cache *CacheService) *ConflictService {
	s.cache = cache
	return s
}

// WithMetrics attaches detection and resolution instrumentation.
func (s *ConflictService) WithMetrics(m *MetricsService) *ConflictService {
	s.metrics = m
	return s
}

// NewConflictService creates a conflict service.
func NewConflictService(store conflictStore, sections conflictSectionSource, rooms conflictResourceSource, teachers conflictTeacherSource, capacity *timetable.Validator, opts timetable.DetectorOptions, logger *zap.Logger) *ConflictService {
	if capacity == nil {
		capacity = timetable.NewValidator(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{store: store, sections: sections, rooms: rooms, teachers: teachers, capacity: capacity, opts: opts, logger: logger}
}

// Detect re-runs conflict detection over the full timetable, persists the
// result, and returns the detected reports. Running it twice over an unchanged
// timetable yields the identical report list.
func (s *ConflictService) Detect(ctx context.Context) ([]timetable.ConflictReport, error) {
	detector, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	assignments := models.DeriveAssignments(sections)
	reports := detector.DetectAll(assignments)

	if err := s.store.Sync(ctx, reports); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist conflicts")
	}

	// Stored statuses win over the freshly-built open ones. After Sync a live
	// report can only be open or overridden: reappeared resolved reports have
	// been reopened.
	stored, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	statusByID := make(map[string]timetable.ReportStatus, len(stored))
	for _, report := range stored {
		statusByID[report.ID] = report.Status
	}
	for i := range reports {
		if status, ok := statusByID[reports[i].ID]; ok {
			reports[i].Status = status
		}
	}

	openByKind := make(map[string]int)
	for _, report := range reports {
		if report.Status == timetable.StatusOpen {
			openByKind[string(report.Kind)]++
		}
	}
	s.metrics.ObserveDetectionRun(openByKind)

	s.logger.Info("conflict detection completed",
		zap.Int("assignments", len(assignments)),
		zap.Int("reports", len(reports)))
	return reports, nil
}

// CheckSection evaluates a single section's schedule against the rest of the
// timetable without persisting anything.
func (s *ConflictService) CheckSection(ctx context.Context, sectionID string) ([]timetable.ConflictReport, error) {
	detector, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	current := models.DeriveAssignments(sections)

	var reports []timetable.ConflictReport
	for _, candidate := range section.Assignments() {
		reports = append(reports, detector.Detect(candidate, current)...)
	}

	// Candidates from multi-slot sections can hit the same report twice.
	seen := make(map[string]bool, len(reports))
	deduped := reports[:0]
	for _, report := range reports {
		if seen[report.ID] {
			continue
		}
		seen[report.ID] = true
		deduped = append(deduped, report)
	}
	return deduped, nil
}

// List returns stored conflict reports.
func (s *ConflictService) List(ctx context.Context, filter models.ConflictFilter) ([]timetable.ConflictReport, *models.Pagination, error) {
	reports, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return reports, pagination, nil
}

// Get returns one stored conflict report.
func (s *ConflictService) Get(ctx context.Context, id string) (*timetable.ConflictReport, error) {
	report, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflict")
	}
	return report, nil
}

// Resolve drives one stored report to a terminal state. The report must still
// describe the current timetable; resolutions against a stale snapshot are
// rejected so callers re-detect first.
func (s *ConflictService) Resolve(ctx context.Context, reportID string, req ResolveRequest) (*timetable.Outcome, error) {
	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	detector, resolver, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	assignments := models.DeriveAssignments(sections)

	if stale(report, assignments) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "conflict report no longer matches the timetable, re-run detection")
	}

	// Attach fresh suggestions: stored ones may predate timetable changes.
	fresh := detector.DetectAll(assignments)
	for _, current := range fresh {
		if current.ID == report.ID {
			report.Suggestions = current.Suggestions
			break
		}
	}

	var outcome *timetable.Outcome
	switch {
	case req.Override:
		outcome, err = resolver.Override(*report, assignments)
	case req.SuggestionID != "":
		outcome, err = resolver.ApplySuggestion(*report, req.SuggestionID, assignments)
	case req.Manual != nil:
		outcome, err = s.manual(*report, *req.Manual, assignments, resolver)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "resolve request must choose a suggestion, a manual change, or an override")
	}
	if err != nil {
		return nil, err
	}

	if !req.Override {
		if err := s.persistAssignments(ctx, sections, assignments, outcome.Assignments); err != nil {
			return nil, err
		}
		if s.cache.Enabled() {
			if err := s.cache.Invalidate(ctx, "timetable:week:*"); err != nil {
				s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
			}
		}
	}

	if err := s.store.UpdateStatus(ctx, report.ID, outcome.Report.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record resolution")
	}

	s.metrics.ObserveResolution(string(outcome.Report.Status))
	s.logger.Info("conflict resolved",
		zap.String("report_id", report.ID),
		zap.String("status", string(outcome.Report.Status)))
	return outcome, nil
}

func (s *ConflictService) manual(report timetable.ConflictReport, req ManualRequest, assignments []timetable.Assignment, resolver *timetable.Resolver) (*timetable.Outcome, error) {
	day, err := timetable.ParseWeekday(req.Day)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "unknown day in manual reassignment")
	}

	var target *timetable.Assignment
	for i := range report.Assignments {
		a := &report.Assignments[i]
		if a.SectionID == req.SectionID && a.Interval.Day == day && a.Interval.Start == req.StartMin {
			target = a
			break
		}
	}
	if target == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "targeted meeting is not part of the conflict")
	}

	change := timetable.Reassignment{RoomID: req.NewRoomID, TeacherID: req.NewTeacherID}
	if req.NewSlot != nil {
		slotDay, err := timetable.ParseWeekday(req.NewSlot.Day)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "unknown day in manual reassignment")
		}
		iv, err := timetable.NewInterval(slotDay, req.NewSlot.StartMin, req.NewSlot.EndMin)
		if err != nil {
			return nil, err
		}
		change.Interval = &iv
	}

	return resolver.ManualReassign(report, *target, change, assignments)
}

// snapshot builds a detector seeded with the active alternate rooms and
// teachers so suggestions only propose real resources.
func (s *ConflictService) snapshot(ctx context.Context) (*timetable.Detector, *timetable.Resolver, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	opts := s.opts
	opts.AlternateRooms = make([]string, 0, len(rooms))
	for _, room := range rooms {
		if room.Active {
			opts.AlternateRooms = append(opts.AlternateRooms, room.ID)
		}
	}
	opts.AlternateTeachers = make([]string, 0, len(teachers))
	for _, teacher := range teachers {
		if teacher.Active {
			opts.AlternateTeachers = append(opts.AlternateTeachers, teacher.ID)
		}
	}
	sort.Strings(opts.AlternateRooms)
	sort.Strings(opts.AlternateTeachers)

	detector := timetable.NewDetector(opts)
	return detector, timetable.NewResolver(detector, nil), nil
}

// stale reports whether any assignment recorded on the report has since
// changed or disappeared from the timetable.
func stale(report *timetable.ConflictReport, current []timetable.Assignment) bool {
	byKey := make(map[string]timetable.Assignment, len(current))
	for _, a := range current {
		byKey[a.Key()] = a
	}
	for _, recorded := range report.Assignments {
		live, ok := byKey[recorded.Key()]
		if !ok || !live.Equal(recorded) {
			return true
		}
	}
	return false
}

// persistAssignments writes resolution outcomes back to the section rows:
// room and teacher changes apply section-wide, interval changes rebuild the
// section's slot list.
func (s *ConflictService) persistAssignments(ctx context.Context, sections []models.ClassSection, before, after []timetable.Assignment) error {
	beforeByKey := make(map[string]timetable.Assignment, len(before))
	for _, a := range before {
		beforeByKey[a.Key()] = a
	}

	changed := make(map[string]bool)
	afterBySection := make(map[string][]timetable.Assignment)
	for _, a := range after {
		afterBySection[a.SectionID] = append(afterBySection[a.SectionID], a)
		if prev, ok := beforeByKey[a.Key()]; !ok || !prev.Equal(a) {
			changed[a.SectionID] = true
		}
	}
	// A section that lost slots (merge) changed too.
	bySectionBefore := make(map[string]int)
	for _, a := range before {
		bySectionBefore[a.SectionID]++
	}
	for sectionID, count := range bySectionBefore {
		if len(afterBySection[sectionID]) != count {
			changed[sectionID] = true
		}
	}

	for i := range sections {
		section := &sections[i]
		if !changed[section.ID] {
			continue
		}
		updated := afterBySection[section.ID]
		slots := make([]models.SectionSlot, 0, len(updated))
		for _, a := range updated {
			slots = append(slots, models.SectionSlot{
				SectionID: section.ID,
				Day:       a.Interval.Day,
				StartMin:  a.Interval.Start,
				EndMin:    a.Interval.End,
			})
			section.RoomID = a.RoomID
			section.TeacherID = a.TeacherID
		}
		section.Schedule = slots

		if err := s.sections.Update(ctx, section); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "section was modified while resolving, re-run detection")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist resolution")
		}
	}
	return nil
}
