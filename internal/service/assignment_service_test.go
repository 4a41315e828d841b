package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

const (
	asgClassID  = "33333333-3333-4333-8333-333333333333"
	asgLessonID = "44444444-4444-4444-8444-444444444444"
)

type mockAssignmentRepo struct {
	byID    map[string]*models.Assignment
	created []models.Assignment
	updated []models.Assignment
	answers map[string][2]*string
	listed  []models.AssignmentDetail
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{
		byID:    make(map[string]*models.Assignment),
		answers: make(map[string][2]*string),
	}
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) FindDetailByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	if a, ok := m.byID[id]; ok {
		return &models.AssignmentDetail{Assignment: *a, LessonName: "Algebra", ClassName: "7A"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = "asg-new"
	m.created = append(m.created, *assignment)
	m.byID[assignment.ID] = assignment
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	m.updated = append(m.updated, *assignment)
	m.byID[assignment.ID] = assignment
	return nil
}

func (m *mockAssignmentRepo) SetAnswer(ctx context.Context, id string, answerText, answerFile *string) error {
	m.answers[id] = [2]*string{answerText, answerFile}
	return nil
}

func (m *mockAssignmentRepo) List(ctx context.Context, scope authz.Scope, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	return m.listed, len(m.listed), nil
}

func newAssignmentFixture(now time.Time) (*AssignmentService, *mockAssignmentRepo, *stubAuditWriter) {
	repo := newMockAssignmentRepo()
	classes := &mockClassReader{classes: map[string]*models.Class{
		asgClassID: {ID: asgClassID, SchoolID: newsSchoolID, TeacherID: ptrString("t-1")},
	}}
	members := &stubMembership{
		enrolled:     map[string]bool{asgClassID + ":stu-1": true},
		classLessons: map[string]bool{asgClassID + ":" + asgLessonID: true},
	}
	audit := &stubAuditWriter{}
	svc := NewAssignmentService(repo, classes, audit, testEngine(members, now), validator.New(), zap.NewNop())
	return svc, repo, audit
}

func TestAssignmentCreateByClassTeacher(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 1))
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	assignment, err := svc.Create(context.Background(), teacher, models.CreateAssignmentRequest{
		Title:    "Homework 3",
		MaxGrade: 20,
		Deadline: day(2026, 3, 10),
		ClassID:  asgClassID,
		LessonID: asgLessonID,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Homework 3", assignment.Title)
}

func TestAssignmentCreateRejectsPastDeadline(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 11))
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.Create(context.Background(), teacher, models.CreateAssignmentRequest{
		Title:    "Homework 3",
		MaxGrade: 20,
		Deadline: day(2026, 3, 10),
		ClassID:  asgClassID,
		LessonID: asgLessonID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestAssignmentCreateDeadlineTodayAccepted(t *testing.T) {
	svc, _, _ := newAssignmentFixture(day(2026, 3, 10))
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.Create(context.Background(), teacher, models.CreateAssignmentRequest{
		Title:    "Homework 3",
		MaxGrade: 20,
		Deadline: day(2026, 3, 10),
		ClassID:  asgClassID,
		LessonID: asgLessonID,
	})
	require.NoError(t, err)
}

func TestAssignmentCreateRequiresLessonInClass(t *testing.T) {
	svc, _, _ := newAssignmentFixture(day(2026, 3, 1))
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.Create(context.Background(), teacher, models.CreateAssignmentRequest{
		Title:    "Homework 3",
		MaxGrade: 20,
		Deadline: day(2026, 3, 10),
		ClassID:  asgClassID,
		LessonID: "55555555-5555-4555-8555-555555555555",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentUpdateClosedRejected(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 11))
	repo.byID["asg-1"] = &models.Assignment{ID: "asg-1", Title: "old", ClassID: asgClassID, LessonID: asgLessonID, MaxGrade: 20, Deadline: day(2026, 3, 10)}
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.Update(context.Background(), teacher, "asg-1", models.UpdateAssignmentRequest{Title: ptrString("new")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlinePassed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestAssignmentAddAnswerOnlyAfterDeadline(t *testing.T) {
	svc, repo, audit := newAssignmentFixture(day(2026, 3, 9))
	repo.byID["asg-1"] = &models.Assignment{ID: "asg-1", Title: "hw", ClassID: asgClassID, LessonID: asgLessonID, MaxGrade: 20, Deadline: day(2026, 3, 10)}
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.AddAnswer(context.Background(), teacher, "asg-1", models.AddAnswerRequest{AnswerText: ptrString("solution")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlineNotReached.Code, appErrors.FromError(err).Code)

	svcLate, repoLate, auditLate := newAssignmentFixture(day(2026, 3, 11))
	repoLate.byID["asg-1"] = repo.byID["asg-1"]

	updated, err := svcLate.AddAnswer(context.Background(), teacher, "asg-1", models.AddAnswerRequest{AnswerText: ptrString("solution")})
	require.NoError(t, err)
	require.NotNil(t, updated.AnswerText)
	assert.Equal(t, "solution", *updated.AnswerText)
	require.Len(t, auditLate.logs, 1)
	assert.Equal(t, models.AuditActionAnswerAdd, auditLate.logs[0].Action)
	assert.Empty(t, audit.logs)
}

func TestAssignmentAddAnswerRequiresContent(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 11))
	repo.byID["asg-1"] = &models.Assignment{ID: "asg-1", ClassID: asgClassID, LessonID: asgLessonID, Deadline: day(2026, 3, 10)}
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.AddAnswer(context.Background(), teacher, "asg-1", models.AddAnswerRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentGetHidesAnswerWhileOpen(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 9))
	repo.byID["asg-1"] = &models.Assignment{
		ID:         "asg-1",
		ClassID:    asgClassID,
		LessonID:   asgLessonID,
		Deadline:   day(2026, 3, 10),
		AnswerText: ptrString("secret"),
	}

	student := authz.Actor{ID: "stu-1", Roles: []models.UserRole{models.RoleStudent}}
	detail, err := svc.Get(context.Background(), student, "asg-1")
	require.NoError(t, err)
	assert.Nil(t, detail.AnswerText)

	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}
	detail, err = svc.Get(context.Background(), teacher, "asg-1")
	require.NoError(t, err)
	require.NotNil(t, detail.AnswerText)
	assert.Equal(t, "secret", *detail.AnswerText)
}

func TestAssignmentGetShowsAnswerAfterDeadline(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 11))
	repo.byID["asg-1"] = &models.Assignment{
		ID:         "asg-1",
		ClassID:    asgClassID,
		LessonID:   asgLessonID,
		Deadline:   day(2026, 3, 10),
		AnswerText: ptrString("secret"),
	}

	student := authz.Actor{ID: "stu-1", Roles: []models.UserRole{models.RoleStudent}}
	detail, err := svc.Get(context.Background(), student, "asg-1")
	require.NoError(t, err)
	require.NotNil(t, detail.AnswerText)
	assert.Equal(t, "secret", *detail.AnswerText)
}

func TestAssignmentGetDeniedOutsideClass(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 9))
	repo.byID["asg-1"] = &models.Assignment{ID: "asg-1", ClassID: asgClassID, LessonID: asgLessonID, Deadline: day(2026, 3, 10)}

	stranger := authz.Actor{ID: "stu-9", Roles: []models.UserRole{models.RoleStudent}}
	_, err := svc.Get(context.Background(), stranger, "asg-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentListStripsOpenAnswersForStudents(t *testing.T) {
	svc, repo, _ := newAssignmentFixture(day(2026, 3, 9))
	repo.listed = []models.AssignmentDetail{
		{Assignment: models.Assignment{ID: "open", Deadline: day(2026, 3, 10), AnswerText: ptrString("hidden")}},
		{Assignment: models.Assignment{ID: "closed", Deadline: day(2026, 3, 1), AnswerText: ptrString("visible")}},
	}

	student := authz.Actor{ID: "stu-1", Roles: []models.UserRole{models.RoleStudent}}
	items, _, err := svc.List(context.Background(), student, models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].AnswerText)
	require.NotNil(t, items[1].AnswerText)
	assert.Equal(t, "visible", *items[1].AnswerText)
}
