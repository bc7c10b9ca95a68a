package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/jobs"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.ClassSection, int, error)
	ListAll(ctx context.Context) ([]models.ClassSection, error)
	FindByID(ctx context.Context, id string) (*models.ClassSection, error)
	Create(ctx context.Context, section *models.ClassSection) error
	Update(ctx context.Context, section *models.ClassSection) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type sectionRoomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListSlots(ctx context.Context, roomID string) ([]models.RoomSlot, error)
}

type sectionTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// SlotRequest is one scheduled meeting in a section payload.
type SlotRequest struct {
	Day      string `json:"day" validate:"required"`
	StartMin int    `json:"start_min" validate:"gte=0"`
	EndMin   int    `json:"end_min" validate:"gt=0"`
}

// CreateSectionRequest captures fields for creating sections.
type CreateSectionRequest struct {
	Name       string        `json:"name" validate:"required"`
	SubjectID  string        `json:"subject_id" validate:"required"`
	TeacherID  string        `json:"teacher_id" validate:"required"`
	RoomID     string        `json:"room_id" validate:"required"`
	Capacity   int           `json:"capacity" validate:"required,gt=0"`
	Enrollment int           `json:"enrollment" validate:"gte=0"`
	Schedule   []SlotRequest `json:"schedule" validate:"required,min=1,dive"`
}

// UpdateSectionRequest modifies section fields. Version must echo the version
// the caller last read so stale snapshots are rejected.
type UpdateSectionRequest struct {
	Name       string        `json:"name" validate:"required"`
	SubjectID  string        `json:"subject_id" validate:"required"`
	TeacherID  string        `json:"teacher_id" validate:"required"`
	RoomID     string        `json:"room_id" validate:"required"`
	Capacity   int           `json:"capacity" validate:"required,gt=0"`
	Enrollment int           `json:"enrollment" validate:"gte=0"`
	Version    int           `json:"version" validate:"required,gt=0"`
	Schedule   []SlotRequest `json:"schedule" validate:"required,min=1,dive"`
}

// SectionService handles class section workflows.
type SectionService struct {
	repo       sectionRepository
	rooms      sectionRoomLookup
	teachers   sectionTeacherLookup
	subjects   teacherSubjectLookup
	capacity   *timetable.Validator
	cache      *CacheService
	detections *jobs.Queue
	validator  *validator.Validate
	logger     *zap.Logger
}

// WithCache wires cache invalidation for the weekly timetable view.
func (s *SectionService) WithCache(cache *CacheService) *SectionService {
	s.cache = cache
	return s
}

// WithDetectionQueue schedules a background conflict detection run after each
// timetable mutation so stored reports stay close to the live timetable.
func (s *SectionService) WithDetectionQueue(queue *jobs.Queue) *SectionService {
	s.detections = queue
	return s
}

// NewSectionService creates a new section service.
func NewSectionService(repo sectionRepository, rooms sectionRoomLookup, teachers sectionTeacherLookup, subjects teacherSubjectLookup, capacity *timetable.Validator, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if capacity == nil {
		capacity = timetable.NewValidator(0, 0)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, rooms: rooms, teachers: teachers, subjects: subjects, capacity: capacity, validator: validate, logger: logger}
}

// List returns paginated sections.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.ClassSection, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
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
	return sections, pagination, nil
}

// Get returns a section with its schedule.
func (s *SectionService) Get(ctx context.Context, id string) (*models.ClassSection, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Create adds a section after validating references, schedule intervals, room
// availability, the room's daily cap, and the enrollment fit.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.ClassSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	slots, err := s.buildSlots(req.Schedule)
	if err != nil {
		return nil, err
	}

	room, err := s.checkReferences(ctx, req.SubjectID, req.TeacherID, req.RoomID)
	if err != nil {
		return nil, err
	}

	if err := s.checkRoomFit(ctx, room, "", req.Enrollment, slots); err != nil {
		return nil, err
	}

	section := &models.ClassSection{
		Name:       strings.TrimSpace(req.Name),
		SubjectID:  req.SubjectID,
		TeacherID:  req.TeacherID,
		RoomID:     req.RoomID,
		Capacity:   req.Capacity,
		Enrollment: req.Enrollment,
		Active:     true,
		Schedule:   slots,
	}

	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	s.invalidateTimetable(ctx)
	return section, nil
}

// Update modifies a section guarded by its version counter.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.ClassSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if section.Version != req.Version {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "section was modified by another request")
	}

	slots, err := s.buildSlots(req.Schedule)
	if err != nil {
		return nil, err
	}

	room, err := s.checkReferences(ctx, req.SubjectID, req.TeacherID, req.RoomID)
	if err != nil {
		return nil, err
	}

	if err := s.checkRoomFit(ctx, room, id, req.Enrollment, slots); err != nil {
		return nil, err
	}

	section.Name = strings.TrimSpace(req.Name)
	section.SubjectID = req.SubjectID
	section.TeacherID = req.TeacherID
	section.RoomID = req.RoomID
	section.Capacity = req.Capacity
	section.Enrollment = req.Enrollment
	section.Schedule = slots

	if err := s.repo.Update(ctx, section); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "section was modified by another request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	s.invalidateTimetable(ctx)
	return section, nil
}

// ToggleStatus flips the section's active flag. Inactive sections release
// their room and teacher claims from conflict detection.
func (s *SectionService) ToggleStatus(ctx context.Context, id string) (*models.ClassSection, error) {
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	section.Active = !section.Active
	if err := s.repo.SetActive(ctx, id, section.Active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle section")
	}
	section.Version++
	s.invalidateTimetable(ctx)
	return section, nil
}

// Delete removes a section and its slots. Sections have no dependents, so no
// cascade flag is needed.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	s.invalidateTimetable(ctx)
	return nil
}

func (s *SectionService) invalidateTimetable(ctx context.Context) {
	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "timetable:week:*"); err != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
		}
	}
	if s.detections != nil {
		job := jobs.Job{ID: uuid.NewString(), Type: "conflict_detection"}
		if err := s.detections.Enqueue(job); err != nil {
			s.logger.Warn("failed to schedule conflict detection", zap.Error(err))
		}
	}
}

func (s *SectionService) buildSlots(reqs []SlotRequest) ([]models.SectionSlot, error) {
	slots := make([]models.SectionSlot, 0, len(reqs))
	for _, raw := range reqs {
		day, err := timetable.ParseWeekday(raw.Day)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "unknown schedule day")
		}
		if _, err := timetable.NewInterval(day, raw.StartMin, raw.EndMin); err != nil {
			return nil, err
		}
		slots = append(slots, models.SectionSlot{Day: day, StartMin: raw.StartMin, EndMin: raw.EndMin})
	}
	return slots, nil
}

func (s *SectionService) checkReferences(ctx context.Context, subjectID, teacherID, roomID string) (*models.Room, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// checkRoomFit enforces the enrollment and daily-cap rules against the room's
// current schedule, excluding the section's own slots when updating.
func (s *SectionService) checkRoomFit(ctx context.Context, room *models.Room, excludeSectionID string, enrollment int, slots []models.SectionSlot) error {
	label := excludeSectionID
	if label == "" {
		label = "new"
	}
	if check := s.capacity.CheckEnrollmentCapacity(label, enrollment, room.Capacity); !check.OK {
		return appErrors.Clone(appErrors.ErrCapacityExceeded, check.Reason)
	}

	occupied, err := s.rooms.ListSlots(ctx, room.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room schedule")
	}

	existing := make([]timetable.Interval, 0, len(occupied))
	for _, slot := range occupied {
		if excludeSectionID != "" && slot.SectionID == excludeSectionID {
			continue
		}
		existing = append(existing, slot.Interval())
	}

	for _, slot := range slots {
		if len(room.Availability) > 0 && !room.AvailableOn(slot.Day) {
			return appErrors.Clone(appErrors.ErrValidation, "room is not available on "+slot.Day.String())
		}
		if check := s.capacity.CheckRoomDailyCap(room.ID, slot.Day, existing); !check.OK {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, check.Reason)
		}
		existing = append(existing, slot.Interval())
	}
	return nil
}
