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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	SetActive(ctx context.Context, id string, active bool) error
	ListSubjectIDs(ctx context.Context, teacherID string) ([]string, error)
	AssignedLoad(ctx context.Context, teacherID string) (map[string]int, error)
	AssignSubject(ctx context.Context, teacherID, subjectID string) error
	UnassignSubject(ctx context.Context, teacherID, subjectID string) (bool, error)
	CountSections(ctx context.Context, teacherID string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteCascade(ctx context.Context, id string) error
}

type teacherSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateTeacherRequest captures fields for creating teachers.
type CreateTeacherRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Department     string `json:"department" validate:"required"`
	Specialization string `json:"specialization"`
}

// UpdateTeacherRequest modifies teacher fields.
type UpdateTeacherRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Department     string `json:"department" validate:"required"`
	Specialization string `json:"specialization"`
}

// TeacherService handles teacher domain workflows including subject load.
type TeacherService struct {
	repo      teacherRepository
	subjects  teacherSubjectLookup
	capacity  *timetable.Validator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService creates a new teacher service.
func NewTeacherService(repo teacherRepository, subjects teacherSubjectLookup, capacity *timetable.Validator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if capacity == nil {
		capacity = timetable.NewValidator(0, 0)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, subjects: subjects, capacity: capacity, validator: validate, logger: logger}
}

// List returns paginated teachers with their derived unit load.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	for i := range teachers {
		if err := s.attachLoad(ctx, &teachers[i]); err != nil {
			return nil, nil, err
		}
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
	return teachers, pagination, nil
}

// Get returns a teacher with subject assignments and unit load.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.attachLoad(ctx, teacher); err != nil {
		return nil, err
	}
	return teacher, nil
}

// Create adds a new teacher ensuring email uniqueness.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher email already exists")
	}

	teacher := &models.Teacher{
		Name:           req.Name,
		Email:          req.Email,
		Department:     req.Department,
		Specialization: req.Specialization,
		Active:         true,
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher email already exists")
	}

	teacher.Name = req.Name
	teacher.Email = req.Email
	teacher.Department = req.Department
	teacher.Specialization = req.Specialization

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// ToggleStatus flips the teacher's active flag.
func (s *TeacherService) ToggleStatus(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	teacher.Active = !teacher.Active
	if err := s.repo.SetActive(ctx, id, teacher.Active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle teacher")
	}
	return teacher, nil
}

// AssignSubject links a subject to the teacher after checking the unit cap.
// Assigning an already-held subject fails without changing the load.
func (s *TeacherService) AssignSubject(ctx context.Context, teacherID, subjectID string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	load, err := s.repo.AssignedLoad(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}

	check := s.capacity.CheckTeacherUnitCap(load, subject.ID, subject.Credits)
	if !check.OK {
		switch check.Code {
		case appErrors.ErrAlreadyAssigned.Code:
			return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, check.Reason)
		default:
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, check.Reason)
		}
	}

	if err := s.repo.AssignSubject(ctx, teacherID, subject.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign subject")
	}

	s.logger.Info("subject assigned",
		zap.String("teacher_id", teacherID),
		zap.String("subject_id", subject.ID),
		zap.Int("credits", subject.Credits))

	if err := s.attachLoad(ctx, teacher); err != nil {
		return nil, err
	}
	return teacher, nil
}

// UnassignSubject removes a subject link from the teacher.
func (s *TeacherService) UnassignSubject(ctx context.Context, teacherID, subjectID string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	removed, err := s.repo.UnassignSubject(ctx, teacherID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign subject")
	}
	if !removed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not assigned to teacher")
	}

	if err := s.attachLoad(ctx, teacher); err != nil {
		return nil, err
	}
	return teacher, nil
}

// Delete removes a teacher. Deletion is rejected while sections still
// reference them unless cascade is set. Subject links always go with the row.
func (s *TeacherService) Delete(ctx context.Context, id string, cascade bool) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	count, err := s.repo.CountSections(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher dependencies")
	}
	if count > 0 && !cascade {
		return appErrors.Clone(appErrors.ErrReferentialIntegrity, "teacher is still referenced by sections")
	}

	if count > 0 {
		s.logger.Info("cascading teacher delete", zap.String("teacher_id", id), zap.Int("sections", count))
		if err := s.repo.DeleteCascade(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cascade delete teacher")
		}
		return nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

func (s *TeacherService) attachLoad(ctx context.Context, teacher *models.Teacher) error {
	ids, err := s.repo.ListSubjectIDs(ctx, teacher.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher subjects")
	}
	load, err := s.repo.AssignedLoad(ctx, teacher.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}

	teacher.SubjectIDs = ids
	teacher.TotalUnits = 0
	for _, credits := range load {
		teacher.TotalUnits += credits
	}
	return nil
}
