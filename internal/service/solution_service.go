package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
	"github.com/zahraAghaee77/School-Management-API/pkg/storage"
)

type solutionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Solution, error)
	FindDetailByID(ctx context.Context, id string) (*models.SolutionDetail, error)
	FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Solution, error)
	Create(ctx context.Context, solution *models.Solution) error
	Update(ctx context.Context, solution *models.Solution) error
	UpdateGrade(ctx context.Context, id string, grade float64) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SolutionDetail, error)
	List(ctx context.Context, scope authz.Scope, filter models.SolutionFilter) ([]models.SolutionDetail, int, error)
}

type solutionAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type solutionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type solutionAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SolutionService provides submission use cases. Students submit while an
// assignment is open; teachers grade after it closes. One submission exists
// per student and assignment; a second submit becomes an update.
type SolutionService struct {
	repo        solutionRepository
	assignments solutionAssignmentReader
	classes     solutionClassReader
	audit       solutionAuditWriter
	engine      *authz.Engine
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSolutionService constructs a SolutionService instance.
func NewSolutionService(repo solutionRepository, assignments solutionAssignmentReader, classes solutionClassReader, audit solutionAuditWriter, engine *authz.Engine, validate *validator.Validate, logger *zap.Logger) *SolutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SolutionService{repo: repo, assignments: assignments, classes: classes, audit: audit, engine: engine, validator: validate, logger: logger}
}

func (s *SolutionService) loadAssignment(ctx context.Context, id string) (*models.Assignment, *models.Class, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
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

// Submit creates the caller's solution for an assignment, or updates it when
// one already exists.
func (s *SolutionService) Submit(ctx context.Context, actor authz.Actor, assignmentID string, req models.SubmitSolutionRequest) (*models.Solution, error) {
	if req.Context == nil && req.Attachment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "solution text or attachment is required")
	}
	if req.Attachment != nil {
		if err := storage.ValidateExtension(*req.Attachment); err != nil {
			return nil, err
		}
	}

	assignment, _, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSolutionCreate, authz.Resource{Assignment: assignment}); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByStudentAndAssignment(ctx, actor.ID, assignmentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing solution")
	}
	if existing != nil {
		if req.Context != nil {
			existing.Context = req.Context
		}
		if req.Attachment != nil {
			existing.Attachment = req.Attachment
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update solution")
		}
		return existing, nil
	}

	solution := &models.Solution{
		Context:      req.Context,
		Attachment:   req.Attachment,
		StudentID:    actor.ID,
		AssignmentID: assignmentID,
	}
	if err := s.repo.Create(ctx, solution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create solution")
	}
	return solution, nil
}

// Update rewrites the caller's own solution while the assignment is open.
func (s *SolutionService) Update(ctx context.Context, actor authz.Actor, id string, req models.SubmitSolutionRequest) (*models.Solution, error) {
	if req.Context == nil && req.Attachment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "solution text or attachment is required")
	}
	if req.Attachment != nil {
		if err := storage.ValidateExtension(*req.Attachment); err != nil {
			return nil, err
		}
	}

	solution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "solution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solution")
	}
	assignment, _, err := s.loadAssignment(ctx, solution.AssignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSolutionUpdate, authz.Resource{Assignment: assignment, Solution: solution}); err != nil {
		return nil, err
	}

	if req.Context != nil {
		solution.Context = req.Context
	}
	if req.Attachment != nil {
		solution.Attachment = req.Attachment
	}
	if err := s.repo.Update(ctx, solution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update solution")
	}
	return solution, nil
}

// Grade records a grade once the deadline has passed. Class teacher only;
// the grade may not exceed the assignment's maximum.
func (s *SolutionService) Grade(ctx context.Context, actor authz.Actor, id string, req models.GradeSolutionRequest) (*models.Solution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	solution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "solution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solution")
	}
	assignment, class, err := s.loadAssignment(ctx, solution.AssignmentID)
	if err != nil {
		return nil, err
	}
	if req.Grade > assignment.MaxGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade exceeds the assignment maximum")
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSolutionGrade, authz.Resource{Class: class, Assignment: assignment, Solution: solution}); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGrade(ctx, id, req.Grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade solution")
	}
	solution.Grade = &req.Grade

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionSolutionGrade,
		Resource:   "solution",
		ResourceID: &id,
		NewValues:  []byte(`{"grade":` + strconv.FormatFloat(req.Grade, 'f', -1, 64) + `}`),
	}); err != nil {
		s.logger.Warn("failed to record grading audit log", zap.Error(err))
	}

	return solution, nil
}

// Get returns a solution to its owning student or the class teacher.
func (s *SolutionService) Get(ctx context.Context, actor authz.Actor, id string) (*models.SolutionDetail, error) {
	solution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "solution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solution")
	}
	_, class, err := s.loadAssignment(ctx, solution.AssignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSolutionView, authz.Resource{Class: class, Solution: solution}); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "solution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solution")
	}
	return detail, nil
}

// ListByAssignment returns every submission for an assignment to its class
// teacher.
func (s *SolutionService) ListByAssignment(ctx context.Context, actor authz.Actor, assignmentID string) ([]models.SolutionDetail, error) {
	assignment, class, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionAssignmentExport, authz.Resource{Class: class, Assignment: assignment}); err != nil {
		return nil, err
	}

	solutions, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list solutions")
	}
	if solutions == nil {
		solutions = []models.SolutionDetail{}
	}
	return solutions, nil
}

// List returns the solutions within the actor's resolved scope.
func (s *SolutionService) List(ctx context.Context, actor authz.Actor, filter models.SolutionFilter) ([]models.SolutionDetail, *models.Pagination, error) {
	scope := authz.ResolveSolutionScope(actor)
	solutions, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list solutions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return solutions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
