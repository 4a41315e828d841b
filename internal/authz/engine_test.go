package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

type membershipMock struct {
	enrolled       map[string]bool
	classLessons   map[string]bool
	schoolTeachers map[string]bool
	schoolStudents map[string]bool
}

func (m *membershipMock) IsStudentInClass(ctx context.Context, classID, userID string) (bool, error) {
	return m.enrolled[classID+":"+userID], nil
}

func (m *membershipMock) ClassHasLesson(ctx context.Context, classID, lessonID string) (bool, error) {
	return m.classLessons[classID+":"+lessonID], nil
}

func (m *membershipMock) IsTeacherInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	return m.schoolTeachers[schoolID+":"+userID], nil
}

func (m *membershipMock) IsStudentInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	return m.schoolStudents[schoolID+":"+userID], nil
}

func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newEngineAt(t *testing.T, members *membershipMock, now time.Time) *Engine {
	t.Helper()
	if members == nil {
		members = &membershipMock{}
	}
	return NewEngine(members, FixedClock{Instant: now})
}

func TestOpenClosedDateGranularity(t *testing.T) {
	deadline := date(2026, 3, 10)

	// Deadline day itself still counts as open.
	e := newEngineAt(t, nil, time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	assert.True(t, e.Open(deadline))
	assert.False(t, e.Closed(deadline))

	// Next day flips the state.
	e = newEngineAt(t, nil, time.Date(2026, 3, 11, 0, 10, 0, 0, time.UTC))
	assert.False(t, e.Open(deadline))
	assert.True(t, e.Closed(deadline))
}

func TestCreateAssignmentRequiresClassTeacherAndLesson(t *testing.T) {
	members := &membershipMock{classLessons: map[string]bool{"c1:l1": true}}
	e := newEngineAt(t, members, date(2026, 3, 1))
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}

	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionAssignmentCreate, Resource{Class: class, LessonID: "l1"}))

	// Lesson outside the class's lesson set.
	err := e.Allowed(context.Background(), teacher, ActionAssignmentCreate, Resource{Class: class, LessonID: "l2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// A different teacher is rejected outright.
	other := Actor{ID: "t2", Roles: []models.UserRole{models.RoleTeacher}}
	err = e.Allowed(context.Background(), other, ActionAssignmentCreate, Resource{Class: class, LessonID: "l1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateAssignmentGatedByDeadline(t *testing.T) {
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}
	assignment := &models.Assignment{ID: "a1", ClassID: "c1", Deadline: date(2026, 3, 10)}
	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	res := Resource{Class: class, Assignment: assignment}

	e := newEngineAt(t, nil, date(2026, 3, 9))
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionAssignmentUpdate, res))

	e = newEngineAt(t, nil, date(2026, 3, 11))
	err := e.Allowed(context.Background(), teacher, ActionAssignmentUpdate, res)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlinePassed.Code, appErrors.FromError(err).Code)
}

func TestAddAnswerOnlyAfterDeadline(t *testing.T) {
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}
	assignment := &models.Assignment{ID: "a1", ClassID: "c1", Deadline: date(2026, 3, 10)}
	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	res := Resource{Class: class, Assignment: assignment}

	e := newEngineAt(t, nil, date(2026, 3, 10))
	err := e.Allowed(context.Background(), teacher, ActionAssignmentAddAnswer, res)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlineNotReached.Code, appErrors.FromError(err).Code)

	e = newEngineAt(t, nil, date(2026, 3, 11))
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionAssignmentAddAnswer, res))
}

func TestCreateSolutionRequiresEnrollmentAndOpenState(t *testing.T) {
	members := &membershipMock{enrolled: map[string]bool{"c1:stu1": true}}
	assignment := &models.Assignment{ID: "a1", ClassID: "c1", Deadline: date(2026, 3, 10)}
	student := Actor{ID: "stu1", Roles: []models.UserRole{models.RoleStudent}}
	res := Resource{Assignment: assignment}

	e := newEngineAt(t, members, date(2026, 3, 9))
	require.NoError(t, e.Allowed(context.Background(), student, ActionSolutionCreate, res))

	// Non-student role.
	manager := Actor{ID: "m1", Roles: []models.UserRole{models.RoleManager}}
	err := e.Allowed(context.Background(), manager, ActionSolutionCreate, res)
	require.Error(t, err)

	// Not enrolled.
	stranger := Actor{ID: "stu2", Roles: []models.UserRole{models.RoleStudent}}
	err = e.Allowed(context.Background(), stranger, ActionSolutionCreate, res)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Past the deadline.
	e = newEngineAt(t, members, date(2026, 3, 11))
	err = e.Allowed(context.Background(), student, ActionSolutionCreate, res)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlinePassed.Code, appErrors.FromError(err).Code)
}

func TestGradeSolutionOnlyByClassTeacherAfterDeadline(t *testing.T) {
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}
	assignment := &models.Assignment{ID: "a1", ClassID: "c1", Deadline: date(2026, 3, 10)}
	solution := &models.Solution{ID: "sol1", StudentID: "stu1", AssignmentID: "a1"}
	res := Resource{Class: class, Assignment: assignment, Solution: solution}
	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}

	e := newEngineAt(t, nil, date(2026, 3, 9))
	err := e.Allowed(context.Background(), teacher, ActionSolutionGrade, res)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlineNotReached.Code, appErrors.FromError(err).Code)

	e = newEngineAt(t, nil, date(2026, 3, 11))
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionSolutionGrade, res))

	other := Actor{ID: "t2", Roles: []models.UserRole{models.RoleTeacher}}
	err = e.Allowed(context.Background(), other, ActionSolutionGrade, res)
	require.Error(t, err)
}

func TestViewSolutionOwnerOrClassTeacher(t *testing.T) {
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}
	solution := &models.Solution{ID: "sol1", StudentID: "stu1", AssignmentID: "a1"}
	res := Resource{Class: class, Solution: solution}
	e := newEngineAt(t, nil, date(2026, 3, 9))

	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionSolutionView, res))

	owner := Actor{ID: "stu1", Roles: []models.UserRole{models.RoleStudent}}
	require.NoError(t, e.Allowed(context.Background(), owner, ActionSolutionView, res))

	otherStudent := Actor{ID: "stu2", Roles: []models.UserRole{models.RoleStudent}}
	require.Error(t, e.Allowed(context.Background(), otherStudent, ActionSolutionView, res))

	manager := Actor{ID: "m1", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "s1"}
	require.Error(t, e.Allowed(context.Background(), manager, ActionSolutionView, res))
}

func TestNewsCreateScopeOwnership(t *testing.T) {
	e := newEngineAt(t, nil, date(2026, 3, 9))
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}
	school := &models.School{ID: "s1", ManagerID: strPtr("m1")}

	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionNewsCreate, Resource{Class: class}))

	manager := Actor{ID: "m1", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "s1"}
	require.NoError(t, e.Allowed(context.Background(), manager, ActionNewsCreate, Resource{School: school}))

	// Manager cannot post to a class, teacher cannot post school-wide.
	require.Error(t, e.Allowed(context.Background(), manager, ActionNewsCreate, Resource{Class: class}))
	require.Error(t, e.Allowed(context.Background(), teacher, ActionNewsCreate, Resource{School: school}))

	// Neither scope provided.
	err := e.Allowed(context.Background(), teacher, ActionNewsCreate, Resource{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNewsMutationCreatorOrManager(t *testing.T) {
	e := newEngineAt(t, nil, date(2026, 3, 9))
	news := &models.News{ID: "n1", CreatorID: "t1", ClassID: strPtr("c1")}
	res := Resource{News: news, SchoolID: "s1"}

	creator := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	require.NoError(t, e.Allowed(context.Background(), creator, ActionNewsUpdate, res))

	manager := Actor{ID: "m1", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "s1"}
	require.NoError(t, e.Allowed(context.Background(), manager, ActionNewsDelete, res))

	otherManager := Actor{ID: "m2", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "s2"}
	require.Error(t, e.Allowed(context.Background(), otherManager, ActionNewsUpdate, res))
}

func TestClassMembershipActions(t *testing.T) {
	members := &membershipMock{enrolled: map[string]bool{"c1:stu1": true}}
	e := newEngineAt(t, members, date(2026, 3, 9))
	class := &models.Class{ID: "c1", SchoolID: "s1", TeacherID: strPtr("t1")}
	res := Resource{Class: class}

	teacher := Actor{ID: "t1", Roles: []models.UserRole{models.RoleTeacher}}
	manager := Actor{ID: "m1", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "s1"}
	enrolledStudent := Actor{ID: "stu1", Roles: []models.UserRole{models.RoleStudent}}

	require.NoError(t, e.Allowed(context.Background(), teacher, ActionClassAddStudent, res))
	require.Error(t, e.Allowed(context.Background(), manager, ActionClassAddStudent, res))

	require.NoError(t, e.Allowed(context.Background(), manager, ActionClassAddLesson, res))
	require.Error(t, e.Allowed(context.Background(), teacher, ActionClassAddLesson, res))

	// Lessons listing is open to teacher, enrolled student and manager.
	require.NoError(t, e.Allowed(context.Background(), teacher, ActionClassViewLessons, res))
	require.NoError(t, e.Allowed(context.Background(), manager, ActionClassViewLessons, res))
	require.NoError(t, e.Allowed(context.Background(), enrolledStudent, ActionClassViewLessons, res))

	stranger := Actor{ID: "stu2", Roles: []models.UserRole{models.RoleStudent}}
	require.Error(t, e.Allowed(context.Background(), stranger, ActionClassViewLessons, res))
}

func TestUnknownActionDenied(t *testing.T) {
	e := newEngineAt(t, nil, date(2026, 3, 9))
	err := e.Allowed(context.Background(), Actor{ID: "u1"}, Action("bogus"), Resource{})
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*appErrors.Error)))
}
