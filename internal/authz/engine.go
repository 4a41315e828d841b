package authz

import (
	"context"
	"time"

	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

// Action names a guarded operation. Every mutating or disclosing endpoint
// maps to exactly one action evaluated through the rule table below.
type Action string

const (
	ActionAssignmentCreate    Action = "assignment:create"
	ActionAssignmentUpdate    Action = "assignment:update"
	ActionAssignmentView      Action = "assignment:view"
	ActionAssignmentAddAnswer Action = "assignment:add-answer"
	ActionAssignmentExport    Action = "assignment:export"

	ActionSolutionCreate Action = "solution:create"
	ActionSolutionUpdate Action = "solution:update"
	ActionSolutionView   Action = "solution:view"
	ActionSolutionGrade  Action = "solution:grade"

	ActionNewsCreate Action = "news:create"
	ActionNewsView   Action = "news:view"
	ActionNewsUpdate Action = "news:update"
	ActionNewsDelete Action = "news:delete"

	ActionClassAddStudent    Action = "class:add-student"
	ActionClassRemoveStudent Action = "class:remove-student"
	ActionClassViewStudents  Action = "class:view-students"
	ActionClassAddLesson     Action = "class:add-lesson"
	ActionClassViewLessons   Action = "class:view-lessons"

	ActionSchoolViewRoster Action = "school:view-roster"
)

// Resource bundles the domain rows a predicate may inspect. Only the fields
// relevant to the evaluated action need to be set; the owning service loads
// them through its scoped repositories before asking for a decision.
type Resource struct {
	School     *models.School
	Class      *models.Class
	Assignment *models.Assignment
	Solution   *models.Solution
	News       *models.News
	// LessonID is the target lesson for assignment creation.
	LessonID string
	// SchoolID locates the school containing a class-scoped news item when
	// the class row itself is not loaded.
	SchoolID string
}

// MembershipReader answers the set-membership questions predicates depend on.
type MembershipReader interface {
	IsStudentInClass(ctx context.Context, classID, userID string) (bool, error)
	ClassHasLesson(ctx context.Context, classID, lessonID string) (bool, error)
	IsTeacherInSchool(ctx context.Context, schoolID, userID string) (bool, error)
	IsStudentInSchool(ctx context.Context, schoolID, userID string) (bool, error)
}

// Engine evaluates per-action permission predicates. It owns no policy state
// beyond the static rule table; all inputs arrive per call.
type Engine struct {
	members MembershipReader
	clock   Clock
}

// NewEngine constructs an Engine.
func NewEngine(members MembershipReader, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{members: members, clock: clock}
}

// Today returns the current calendar date used for deadline comparison.
func (e *Engine) Today() time.Time {
	return dateOf(e.clock.Now())
}

// Open reports whether an assignment still accepts submissions and content
// edits. The deadline day itself remains open; the state flips once the date
// rolls over.
func (e *Engine) Open(deadline time.Time) bool {
	return !e.Today().After(dateOf(deadline))
}

// Closed reports whether answers and grading are unlocked.
func (e *Engine) Closed(deadline time.Time) bool {
	return e.Today().After(dateOf(deadline))
}

type ruleFunc func(ctx context.Context, e *Engine, actor Actor, res Resource) error

// rules is the action dispatch table. Each entry is a disjoint predicate over
// role membership, ownership and deadline state; a nil return grants access.
var rules = map[Action]ruleFunc{
	ActionAssignmentCreate:    canCreateAssignment,
	ActionAssignmentUpdate:    canUpdateAssignment,
	ActionAssignmentView:      canViewAssignment,
	ActionAssignmentAddAnswer: canAddAnswer,
	ActionAssignmentExport:    canAddAnswerOrExport,
	ActionSolutionCreate:      canCreateSolution,
	ActionSolutionUpdate:      canUpdateSolution,
	ActionSolutionView:        canViewSolution,
	ActionSolutionGrade:       canGradeSolution,
	ActionNewsCreate:          canCreateNews,
	ActionNewsView:            canViewNews,
	ActionNewsUpdate:          canMutateNews,
	ActionNewsDelete:          canMutateNews,
	ActionClassAddStudent:     classTeacherOnly,
	ActionClassRemoveStudent:  classTeacherOnly,
	ActionClassViewStudents:   classTeacherOnly,
	ActionClassAddLesson:      classSchoolManagerOnly,
	ActionClassViewLessons:    canViewClassLessons,
	ActionSchoolViewRoster:    schoolManagerOnly,
}

// Allowed evaluates the predicate registered for the action. It returns nil
// when access is granted and a typed Forbidden error otherwise; failures are
// explicit, never silent empty results.
func (e *Engine) Allowed(ctx context.Context, actor Actor, action Action, res Resource) error {
	rule, ok := rules[action]
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "no permission rule for action")
	}
	return rule(ctx, e, actor, res)
}

func teachesClass(actor Actor, class *models.Class) bool {
	return class != nil && class.TeacherID != nil && *class.TeacherID == actor.ID
}

func canCreateAssignment(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !teachesClass(actor, res.Class) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can create assignments")
	}
	ok, err := e.members.ClassHasLesson(ctx, res.Class.ID, res.LessonID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class lessons")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "the lesson does not belong to the class")
	}
	return nil
}

func canUpdateAssignment(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !teachesClass(actor, res.Class) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can update the assignment")
	}
	if !e.Open(res.Assignment.Deadline) {
		return appErrors.Clone(appErrors.ErrDeadlinePassed, "assignment content is locked after the deadline")
	}
	return nil
}

func canAddAnswer(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !teachesClass(actor, res.Class) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can publish the answer")
	}
	if !e.Closed(res.Assignment.Deadline) {
		return appErrors.Clone(appErrors.ErrDeadlineNotReached, "answers stay hidden until the deadline passes")
	}
	return nil
}

// canAddAnswerOrExport guards grade-sheet export with the same ownership rule
// as answers, without the temporal gate.
func canAddAnswerOrExport(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !teachesClass(actor, res.Class) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can export the grade sheet")
	}
	return nil
}

func canViewAssignment(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if teachesClass(actor, res.Class) {
		return nil
	}
	if actor.HasRole(models.RoleStudent) {
		enrolled, err := e.members.IsStudentInClass(ctx, res.Class.ID, actor.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if enrolled {
			return nil
		}
	}
	if actor.ManagesSchool(res.Class.SchoolID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this assignment")
}

func canCreateSolution(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !actor.HasRole(models.RoleStudent) {
		return appErrors.Clone(appErrors.ErrForbidden, "only students can submit solutions")
	}
	enrolled, err := e.members.IsStudentInClass(ctx, res.Assignment.ClassID, actor.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not enrolled in this class")
	}
	if !e.Open(res.Assignment.Deadline) {
		return appErrors.Clone(appErrors.ErrDeadlinePassed, "the assignment no longer accepts submissions")
	}
	return nil
}

func canUpdateSolution(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if res.Solution.StudentID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only update your own solution")
	}
	enrolled, err := e.members.IsStudentInClass(ctx, res.Assignment.ClassID, actor.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrForbidden, "you are no longer enrolled in this class")
	}
	if !e.Open(res.Assignment.Deadline) {
		return appErrors.Clone(appErrors.ErrDeadlinePassed, "the assignment no longer accepts submissions")
	}
	return nil
}

func canGradeSolution(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !teachesClass(actor, res.Class) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can grade solutions")
	}
	if !e.Closed(res.Assignment.Deadline) {
		return appErrors.Clone(appErrors.ErrDeadlineNotReached, "grading opens after the deadline")
	}
	return nil
}

func canViewSolution(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if actor.HasRole(models.RoleTeacher) && teachesClass(actor, res.Class) {
		return nil
	}
	if actor.HasRole(models.RoleStudent) && res.Solution.StudentID == actor.ID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this solution")
}

func canCreateNews(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	switch {
	case res.Class != nil:
		if !teachesClass(actor, res.Class) {
			return appErrors.Clone(appErrors.ErrForbidden, "you can only post news to your own class")
		}
		return nil
	case res.School != nil:
		if !actor.ManagesSchool(res.School.ID) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the school manager can post school-wide news")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "either a class or a school must be specified")
	}
}

func canViewNews(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if res.Class != nil {
		if teachesClass(actor, res.Class) || actor.ManagesSchool(res.Class.SchoolID) {
			return nil
		}
		if actor.HasRole(models.RoleStudent) {
			enrolled, err := e.members.IsStudentInClass(ctx, res.Class.ID, actor.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
			}
			if enrolled {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this news item")
	}
	if res.School != nil {
		if actor.ManagesSchool(res.School.ID) {
			return nil
		}
		if actor.HasRole(models.RoleTeacher) {
			member, err := e.members.IsTeacherInSchool(ctx, res.School.ID, actor.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school membership")
			}
			if member {
				return nil
			}
		}
		if actor.HasRole(models.RoleStudent) {
			member, err := e.members.IsStudentInSchool(ctx, res.School.ID, actor.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school membership")
			}
			if member {
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this news item")
}

func canMutateNews(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if res.News.CreatorID == actor.ID {
		return nil
	}
	schoolID := res.SchoolID
	if res.News.SchoolID != nil {
		schoolID = *res.News.SchoolID
	}
	if actor.ManagesSchool(schoolID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the creator or the school manager can modify news")
}

func classTeacherOnly(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !teachesClass(actor, res.Class) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can perform this action")
	}
	return nil
}

func classSchoolManagerOnly(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !actor.ManagesSchool(res.Class.SchoolID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the school manager can perform this action")
	}
	return nil
}

func schoolManagerOnly(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if !actor.ManagesSchool(res.School.ID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the school manager can view this listing")
	}
	return nil
}

func canViewClassLessons(ctx context.Context, e *Engine, actor Actor, res Resource) error {
	if teachesClass(actor, res.Class) || actor.ManagesSchool(res.Class.SchoolID) {
		return nil
	}
	if actor.HasRole(models.RoleStudent) {
		enrolled, err := e.members.IsStudentInClass(ctx, res.Class.ID, actor.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if enrolled {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this class")
}
