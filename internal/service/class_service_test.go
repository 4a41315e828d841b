package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

type mockClassRepo struct {
	classes  map[string]*models.Class
	roster   map[string]bool
	lessons  map[string]bool
	attached []string
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{
		classes: make(map[string]*models.Class),
		roster:  make(map[string]bool),
		lessons: make(map[string]bool),
	}
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.classes[id]; ok {
		return &models.ClassDetail{Class: *c, SchoolName: "school"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = "class-new"
	m.classes[class.ID] = class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.classes[class.ID] = class
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.classes, id)
	return nil
}

func (m *mockClassRepo) List(ctx context.Context, scope authz.Scope, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	return nil, 0, nil
}

func (m *mockClassRepo) AddStudent(ctx context.Context, classID, studentID string) (bool, error) {
	key := classID + ":" + studentID
	if m.roster[key] {
		return false, nil
	}
	m.roster[key] = true
	return true, nil
}

func (m *mockClassRepo) RemoveStudent(ctx context.Context, classID, studentID string) (bool, error) {
	key := classID + ":" + studentID
	if !m.roster[key] {
		return false, nil
	}
	delete(m.roster, key)
	return true, nil
}

func (m *mockClassRepo) ListStudents(ctx context.Context, classID string) ([]models.User, error) {
	return nil, nil
}

func (m *mockClassRepo) AttachLesson(ctx context.Context, classID, lessonID string) (bool, error) {
	key := classID + ":" + lessonID
	for _, existing := range m.attached {
		if existing == key {
			return false, nil
		}
	}
	m.attached = append(m.attached, key)
	return true, nil
}

func (m *mockClassRepo) ListLessons(ctx context.Context, classID string) ([]models.Lesson, error) {
	return []models.Lesson{{ID: "les-1", Name: "Algebra"}}, nil
}

func (m *mockClassRepo) IsStudentInClass(ctx context.Context, classID, userID string) (bool, error) {
	return m.roster[classID+":"+userID], nil
}

type mockClassUsers struct {
	byID         map[string]*models.User
	byNationalID map[string]*models.User
	audit        stubAuditWriter
}

func (m *mockClassUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassUsers) FindByNationalID(ctx context.Context, nationalID string) (*models.User, error) {
	if u, ok := m.byNationalID[nationalID]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return m.audit.CreateAuditLog(ctx, log)
}

type mockSchoolReader struct {
	schools map[string]*models.School
}

func (m *mockSchoolReader) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := m.schools[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockLessonCatalogue struct {
	known map[string]*models.Lesson
}

func (m *mockLessonCatalogue) GetOrCreateByName(ctx context.Context, name string) (*models.Lesson, error) {
	if m.known == nil {
		m.known = make(map[string]*models.Lesson)
	}
	if l, ok := m.known[name]; ok {
		return l, nil
	}
	lesson := &models.Lesson{ID: "les-" + name, Name: name}
	m.known[name] = lesson
	return lesson, nil
}

func newClassFixture() (*ClassService, *mockClassRepo, *mockClassUsers, *mockLessonCatalogue) {
	repo := newMockClassRepo()
	repo.classes["class-1"] = &models.Class{ID: "class-1", Name: "7A", SchoolID: "school-1", TeacherID: ptrString("t-1")}

	users := &mockClassUsers{
		byID: map[string]*models.User{},
		byNationalID: map[string]*models.User{
			"1234567890": {ID: "stu-1", Username: "dana", NationalID: "1234567890", Roles: pq.StringArray{"STUDENT"}},
			"0987654321": {ID: "t-2", Username: "sam", NationalID: "0987654321", Roles: pq.StringArray{"TEACHER"}},
		},
	}
	schools := &mockSchoolReader{schools: map[string]*models.School{
		"school-1": {ID: "school-1", ManagerID: ptrString("mgr-1")},
	}}
	lessons := &mockLessonCatalogue{}
	svc := NewClassService(repo, users, schools, lessons, testEngine(nil, day(2026, 3, 9)), validator.New(), zap.NewNop())
	return svc, repo, users, lessons
}

func TestClassAddStudentByNationalID(t *testing.T) {
	svc, repo, users, _ := newClassFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	err := svc.AddStudent(context.Background(), teacher, "class-1", models.RosterChangeRequest{NationalID: "1234567890"})
	require.NoError(t, err)
	assert.True(t, repo.roster["class-1:stu-1"])
	require.Len(t, users.audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentAdd, users.audit.logs[0].Action)

	// Enrolling again fails and leaves no second audit entry.
	err = svc.AddStudent(context.Background(), teacher, "class-1", models.RosterChangeRequest{NationalID: "1234567890"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, users.audit.logs, 1)
}

func TestClassAddStudentRejectsNonStudent(t *testing.T) {
	svc, _, _, _ := newClassFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	// A teacher's national id resolves to no student account.
	err := svc.AddStudent(context.Background(), teacher, "class-1", models.RosterChangeRequest{NationalID: "0987654321"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassAddStudentUnknownNationalID(t *testing.T) {
	svc, _, _, _ := newClassFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	err := svc.AddStudent(context.Background(), teacher, "class-1", models.RosterChangeRequest{NationalID: "5555555555"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassAddStudentForbiddenForOtherTeacher(t *testing.T) {
	svc, _, _, _ := newClassFixture()
	other := authz.Actor{ID: "t-9", Roles: []models.UserRole{models.RoleTeacher}}

	err := svc.AddStudent(context.Background(), other, "class-1", models.RosterChangeRequest{NationalID: "1234567890"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestClassRemoveStudentNotEnrolledFails(t *testing.T) {
	svc, _, users, _ := newClassFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	err := svc.RemoveStudent(context.Background(), teacher, "class-1", models.RosterChangeRequest{NationalID: "1234567890"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.audit.logs)
}

func TestClassAddLessonCreatesCatalogueEntry(t *testing.T) {
	svc, repo, _, lessons := newClassFixture()
	manager := authz.Actor{ID: "mgr-1", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "school-1"}

	lesson, err := svc.AddLesson(context.Background(), manager, "class-1", models.AddLessonRequest{Name: "Algebra"})
	require.NoError(t, err)
	assert.Equal(t, "Algebra", lesson.Name)
	assert.Contains(t, repo.attached, "class-1:"+lesson.ID)

	// Same name resolves to the same lesson, but re-attaching it fails.
	_, err = svc.AddLesson(context.Background(), manager, "class-1", models.AddLessonRequest{Name: "Algebra"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, lessons.known, 1)
}

func TestClassAddLessonForbiddenForTeacher(t *testing.T) {
	svc, _, _, _ := newClassFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.AddLesson(context.Background(), teacher, "class-1", models.AddLessonRequest{Name: "Algebra"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
