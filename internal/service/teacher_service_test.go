package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/timetable"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type mockTeacherRepo struct {
	items      map[string]*models.Teacher
	emailIndex map[string]string
	subjects   map[string]map[string]int
	sections   map[string]int
	listResult []models.Teacher
	listTotal  int
	deleted    []string
	cascaded   []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if owner, ok := m.emailIndex[email]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) SetActive(ctx context.Context, id string, active bool) error {
	if teacher, ok := m.items[id]; ok {
		teacher.Active = active
	}
	return nil
}

func (m *mockTeacherRepo) ListSubjectIDs(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	for id := range m.subjects[teacherID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockTeacherRepo) AssignedLoad(ctx context.Context, teacherID string) (map[string]int, error) {
	load := make(map[string]int, len(m.subjects[teacherID]))
	for id, credits := range m.subjects[teacherID] {
		load[id] = credits
	}
	return load, nil
}

func (m *mockTeacherRepo) AssignSubject(ctx context.Context, teacherID, subjectID string) error {
	if m.subjects == nil {
		m.subjects = make(map[string]map[string]int)
	}
	if m.subjects[teacherID] == nil {
		m.subjects[teacherID] = make(map[string]int)
	}
	m.subjects[teacherID][subjectID] = 0
	return nil
}

func (m *mockTeacherRepo) UnassignSubject(ctx context.Context, teacherID, subjectID string) (bool, error) {
	if _, ok := m.subjects[teacherID][subjectID]; !ok {
		return false, nil
	}
	delete(m.subjects[teacherID], subjectID)
	return true, nil
}

func (m *mockTeacherRepo) CountSections(ctx context.Context, teacherID string) (int, error) {
	return m.sections[teacherID], nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockTeacherRepo) DeleteCascade(ctx context.Context, id string) error {
	m.cascaded = append(m.cascaded, id)
	delete(m.items, id)
	return nil
}

type mockSubjectLookup struct {
	items map[string]*models.Subject
}

func (m *mockSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := m.items[id]; ok {
		cp := *subject
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newTeacherFixture() (*mockTeacherRepo, *mockSubjectLookup) {
	repo := &mockTeacherRepo{
		items: map[string]*models.Teacher{
			"t1": {ID: "t1", Name: "Dr. Caabay", Email: "caabay@example.edu", Department: "Computer Science", Active: true},
		},
		emailIndex: map[string]string{"caabay@example.edu": "t1"},
		subjects:   map[string]map[string]int{"t1": {"CS101": 3, "CS102": 3, "CS203": 4, "CS301": 3, "CS305": 3}},
		sections:   map[string]int{},
	}
	subjects := &mockSubjectLookup{items: map[string]*models.Subject{
		"CS101":   {ID: "CS101", Code: "CS101", Credits: 3, Active: true},
		"MATH201": {ID: "MATH201", Code: "MATH201", Credits: 4, Active: true},
		"PHYS101": {ID: "PHYS101", Code: "PHYS101", Credits: 2, Active: true},
	}}
	return repo, subjects
}

func TestAssignSubjectOverUnitCap(t *testing.T) {
	repo, subjects := newTeacherFixture()
	// Current load is 16 units; a 4-unit subject must be rejected.
	svc := NewTeacherService(repo, subjects, timetable.NewValidator(18, 0), nil, nil)

	_, err := svc.AssignSubject(context.Background(), "t1", "MATH201")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded))
	_, stillAssigned := repo.subjects["t1"]["MATH201"]
	assert.False(t, stillAssigned)
}

func TestAssignSubjectAtCapExactly(t *testing.T) {
	repo, subjects := newTeacherFixture()
	svc := NewTeacherService(repo, subjects, timetable.NewValidator(18, 0), nil, nil)

	// 16 + 2 lands exactly on the cap and passes.
	teacher, err := svc.AssignSubject(context.Background(), "t1", "PHYS101")
	require.NoError(t, err)
	assert.Contains(t, teacher.SubjectIDs, "PHYS101")
}

func TestAssignSubjectAlreadyAssigned(t *testing.T) {
	repo, subjects := newTeacherFixture()
	svc := NewTeacherService(repo, subjects, timetable.NewValidator(18, 0), nil, nil)

	before := len(repo.subjects["t1"])
	_, err := svc.AssignSubject(context.Background(), "t1", "CS101")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyAssigned))
	assert.Len(t, repo.subjects["t1"], before)
}

func TestAssignSubjectUnknownTeacher(t *testing.T) {
	repo, subjects := newTeacherFixture()
	svc := NewTeacherService(repo, subjects, nil, nil, nil)

	_, err := svc.AssignSubject(context.Background(), "missing", "CS101")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestDeleteTeacherRejectedWhileReferenced(t *testing.T) {
	repo, subjects := newTeacherFixture()
	repo.sections["t1"] = 2
	svc := NewTeacherService(repo, subjects, nil, nil, nil)

	err := svc.Delete(context.Background(), "t1", false)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrReferentialIntegrity))
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), "t1", true))
	assert.Equal(t, []string{"t1"}, repo.cascaded)
}

func TestCreateTeacherDuplicateEmail(t *testing.T) {
	repo, subjects := newTeacherFixture()
	svc := NewTeacherService(repo, subjects, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Name:       "Another",
		Email:      "caabay@example.edu",
		Department: "Mathematics",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}
