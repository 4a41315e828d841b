package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
	"github.com/zahraAghaee77/School-Management-API/pkg/storage"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindDetailByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	SetAnswer(ctx context.Context, id string, answerText, answerFile *string) error
	List(ctx context.Context, scope authz.Scope, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
}

type assignmentClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type assignmentAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AssignmentService provides assignment use cases. Every mutating or
// disclosing call runs through the permission engine; content mutations are
// additionally gated by the deadline state.
type AssignmentService struct {
	repo      assignmentRepository
	classes   assignmentClassReader
	audit     assignmentAuditWriter
	engine    *authz.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo assignmentRepository, classes assignmentClassReader, audit assignmentAuditWriter, engine *authz.Engine, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, classes: classes, audit: audit, engine: engine, validator: validate, logger: logger}
}

func (s *AssignmentService) loadAssignment(ctx context.Context, id string) (*models.Assignment, *models.Class, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	class, err := s.classes.FindByID(ctx, assignment.ClassID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return assignment, class, nil
}

// Create publishes an assignment. Class teacher only; the lesson must belong
// to the class and the deadline must not lie in the past.
func (s *AssignmentService) Create(ctx context.Context, actor authz.Actor, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !s.engine.Open(req.Deadline) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must not be in the past")
	}
	if req.Attachment != nil {
		if err := storage.ValidateExtension(*req.Attachment); err != nil {
			return nil, err
		}
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.engine.Allowed(ctx, actor, authz.ActionAssignmentCreate, authz.Resource{Class: class, LessonID: req.LessonID}); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		Title:      req.Title,
		Context:    req.Context,
		MaxGrade:   req.MaxGrade,
		Deadline:   req.Deadline,
		Attachment: req.Attachment,
		LessonID:   req.LessonID,
		ClassID:    req.ClassID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Update edits an open assignment's content. Closed assignments reject edits.
func (s *AssignmentService) Update(ctx context.Context, actor authz.Actor, id string, req models.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment, class, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionAssignmentUpdate, authz.Resource{Class: class, Assignment: assignment}); err != nil {
		return nil, err
	}

	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Context != nil {
		assignment.Context = req.Context
	}
	if req.MaxGrade != nil {
		assignment.MaxGrade = *req.MaxGrade
	}
	if req.Deadline != nil {
		if !s.engine.Open(*req.Deadline) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must not be in the past")
		}
		assignment.Deadline = *req.Deadline
	}
	if req.Attachment != nil {
		if err := storage.ValidateExtension(*req.Attachment); err != nil {
			return nil, err
		}
		assignment.Attachment = req.Attachment
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// AddAnswer publishes the teacher's answer once the deadline has passed.
func (s *AssignmentService) AddAnswer(ctx context.Context, actor authz.Actor, id string, req models.AddAnswerRequest) (*models.Assignment, error) {
	if req.AnswerText == nil && req.AnswerFile == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer text or file is required")
	}
	if req.AnswerFile != nil {
		if err := storage.ValidateExtension(*req.AnswerFile); err != nil {
			return nil, err
		}
	}

	assignment, class, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionAssignmentAddAnswer, authz.Resource{Class: class, Assignment: assignment}); err != nil {
		return nil, err
	}

	if err := s.repo.SetAnswer(ctx, id, req.AnswerText, req.AnswerFile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish answer")
	}
	assignment.AnswerText = req.AnswerText
	assignment.AnswerFile = req.AnswerFile

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionAnswerAdd,
		Resource:   "assignment",
		ResourceID: &id,
		NewValues:  []byte(`{"answer":"published"}`),
	}); err != nil {
		s.logger.Warn("failed to record answer audit log", zap.Error(err))
	}

	return assignment, nil
}

// Get returns an assignment for actors the permission engine accepts. The
// published answer is hidden from students while the assignment is open.
func (s *AssignmentService) Get(ctx context.Context, actor authz.Actor, id string) (*models.AssignmentDetail, error) {
	assignment, class, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionAssignmentView, authz.Resource{Class: class, Assignment: assignment}); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	isTeacher := class.TeacherID != nil && *class.TeacherID == actor.ID
	if !isTeacher && !s.engine.Closed(detail.Deadline) {
		detail.AnswerText = nil
		detail.AnswerFile = nil
	}
	return detail, nil
}

// List returns the assignments within the actor's resolved scope.
func (s *AssignmentService) List(ctx context.Context, actor authz.Actor, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	scope := authz.ResolveAssignmentScope(actor)
	assignments, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	// Students never see unpublished answers in listings.
	if !actor.HasRole(models.RoleTeacher) && !actor.HasRole(models.RoleAdmin) {
		for i := range assignments {
			if !s.engine.Closed(assignments[i].Deadline) {
				assignments[i].AnswerText = nil
				assignments[i].AnswerFile = nil
			}
		}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
