package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

func newExportFixture() *ExportService {
	assignments := newMockAssignmentRepo()
	assignments.byID["asg-1"] = &models.Assignment{
		ID:       "asg-1",
		Title:    "Homework 3",
		MaxGrade: 20,
		Deadline: day(2026, 3, 10),
		ClassID:  asgClassID,
	}
	classes := &mockClassReader{classes: map[string]*models.Class{
		asgClassID: {ID: asgClassID, SchoolID: newsSchoolID, TeacherID: ptrString("t-1")},
	}}
	solutions := newMockSolutionRepo()
	graded := 17.5
	solutions.byAssgn["asg-1"] = []models.SolutionDetail{
		{Solution: models.Solution{ID: "sol-1", Grade: &graded, CreatedAt: day(2026, 3, 8)}, StudentName: "dana"},
		{Solution: models.Solution{ID: "sol-2", CreatedAt: day(2026, 3, 9)}, StudentName: "sam"},
	}
	return NewExportService(assignments, classes, solutions, testEngine(nil, day(2026, 3, 11)), zap.NewNop())
}

func TestExportGradeSheetCSV(t *testing.T) {
	svc := newExportFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	result, err := svc.GradeSheet(context.Background(), teacher, "asg-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	assert.Contains(t, body, "Student,Submitted At,Grade,Max Grade")
	assert.Contains(t, body, "dana")
	assert.Contains(t, body, "17.50")
	// Ungraded submissions keep an empty grade cell.
	assert.Contains(t, body, "sam")
}

func TestExportGradeSheetPDF(t *testing.T) {
	svc := newExportFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	result, err := svc.GradeSheet(context.Background(), teacher, "asg-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportForbiddenForOtherTeacher(t *testing.T) {
	svc := newExportFixture()
	stranger := authz.Actor{ID: "t-2", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.GradeSheet(context.Background(), stranger, "asg-1", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newExportFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.GradeSheet(context.Background(), teacher, "asg-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportUnknownAssignment(t *testing.T) {
	svc := newExportFixture()
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.GradeSheet(context.Background(), teacher, "missing", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type failingAssignmentReader struct{}

func (failingAssignmentReader) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	return nil, errors.New("connection reset")
}

func (failingAssignmentReader) FindDetailByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	return nil, errors.New("connection reset")
}

func (failingAssignmentReader) Create(ctx context.Context, assignment *models.Assignment) error {
	return errors.New("connection reset")
}

func (failingAssignmentReader) Update(ctx context.Context, assignment *models.Assignment) error {
	return errors.New("connection reset")
}

func (failingAssignmentReader) SetAnswer(ctx context.Context, id string, answerText, answerFile *string) error {
	return errors.New("connection reset")
}

func (failingAssignmentReader) List(ctx context.Context, scope authz.Scope, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	return nil, 0, errors.New("connection reset")
}

func TestExportAssignmentLookupFailureIsInternal(t *testing.T) {
	svc := NewExportService(failingAssignmentReader{}, &mockClassReader{}, newMockSolutionRepo(), testEngine(nil, day(2026, 3, 11)), zap.NewNop())
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.GradeSheet(context.Background(), teacher, "asg-1", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
