package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListSlots(ctx context.Context, roomID string) ([]models.RoomSlot, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	SetActive(ctx context.Context, id string, active bool) error
	CountSections(ctx context.Context, roomID string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteCascade(ctx context.Context, id string) error
}

// CreateRoomRequest captures fields for creating rooms.
type CreateRoomRequest struct {
	Name         string   `json:"name" validate:"required"`
	Capacity     int      `json:"capacity" validate:"required,gt=0"`
	Type         string   `json:"type" validate:"required"`
	Building     string   `json:"building"`
	Floor        string   `json:"floor"`
	Availability []string `json:"availability"`
}

// UpdateRoomRequest modifies room fields.
type UpdateRoomRequest struct {
	Name         string   `json:"name" validate:"required"`
	Capacity     int      `json:"capacity" validate:"required,gt=0"`
	Type         string   `json:"type" validate:"required"`
	Building     string   `json:"building"`
	Floor        string   `json:"floor"`
	Availability []string `json:"availability"`
}

// RoomService handles room domain workflows.
type RoomService struct {
	repo      roomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService creates a new room service.
func NewRoomService(repo roomRepository, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated rooms.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
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
	return rooms, pagination, nil
}

// Get returns a room with its derived schedule.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	slots, err := s.repo.ListSlots(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room schedule")
	}
	room.Schedule = slots

	return room, nil
}

// Create adds a new room.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	availability, err := normalizeAvailability(req.Availability)
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		Name:         strings.TrimSpace(req.Name),
		Capacity:     req.Capacity,
		Type:         req.Type,
		Building:     req.Building,
		Floor:        req.Floor,
		Active:       true,
		Availability: availability,
	}

	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// Update modifies an existing room.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	availability, err := normalizeAvailability(req.Availability)
	if err != nil {
		return nil, err
	}

	room.Name = strings.TrimSpace(req.Name)
	room.Capacity = req.Capacity
	room.Type = req.Type
	room.Building = req.Building
	room.Floor = req.Floor
	room.Availability = availability

	if err := s.repo.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return room, nil
}

// ToggleStatus flips the room's active flag.
func (s *RoomService) ToggleStatus(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	room.Active = !room.Active
	if err := s.repo.SetActive(ctx, id, room.Active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle room")
	}
	return room, nil
}

// Delete removes a room. Deletion is rejected while sections still reference
// it unless cascade is set.
func (s *RoomService) Delete(ctx context.Context, id string, cascade bool) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	count, err := s.repo.CountSections(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room dependencies")
	}
	if count > 0 && !cascade {
		return appErrors.Clone(appErrors.ErrReferentialIntegrity, "room is still referenced by sections")
	}

	if count > 0 {
		s.logger.Info("cascading room delete", zap.String("room_id", id), zap.Int("sections", count))
		if err := s.repo.DeleteCascade(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cascade delete room")
		}
		return nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}

func normalizeAvailability(days []string) ([]string, error) {
	out := make([]string, 0, len(days))
	for _, raw := range days {
		day, err := timetable.ParseWeekday(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown availability day")
		}
		out = append(out, day.String())
	}
	return out, nil
}
