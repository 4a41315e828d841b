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
)

type schoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	FindDetailByID(ctx context.Context, id string) (*models.SchoolDetail, error)
	ManagerHasSchool(ctx context.Context, managerID, excludeSchoolID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.Scope, filter models.SchoolFilter) ([]models.SchoolDetail, int, error)
	ListNearby(ctx context.Context, lat, lon, radiusKM float64, limit int) ([]models.NearbySchool, error)
	ListTeachers(ctx context.Context, schoolID string) ([]models.User, error)
	ListStudents(ctx context.Context, schoolID string) ([]models.User, error)
	ListClasses(ctx context.Context, schoolID string) ([]models.ClassDetail, error)
	ListLessons(ctx context.Context, schoolID string) ([]models.Lesson, error)
}

type schoolUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SchoolService provides school management use cases. Creation, update and
// deletion are admin operations; roster listings belong to the school's
// manager through the permission engine.
type SchoolService struct {
	repo      schoolRepository
	users     schoolUserReader
	engine    *authz.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService instance.
func NewSchoolService(repo schoolRepository, users schoolUserReader, engine *authz.Engine, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{repo: repo, users: users, engine: engine, validator: validate, logger: logger}
}

// validateManager checks the manager candidate exists, holds the manager role
// and does not already manage another school.
func (s *SchoolService) validateManager(ctx context.Context, managerID, excludeSchoolID string) error {
	manager, err := s.users.FindByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "manager user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manager")
	}
	if !manager.HasRole(models.RoleManager) {
		return appErrors.Clone(appErrors.ErrValidation, "user does not hold the manager role")
	}
	taken, err := s.repo.ManagerHasSchool(ctx, managerID, excludeSchoolID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check manager assignment")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "user already manages another school")
	}
	return nil
}

// Create creates a school. Admin only.
func (s *SchoolService) Create(ctx context.Context, req models.CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	if req.ManagerID != nil {
		if err := s.validateManager(ctx, *req.ManagerID, ""); err != nil {
			return nil, err
		}
	}

	school := &models.School{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		ManagerID: req.ManagerID,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	return school, nil
}

// Update edits a school. Admin only.
func (s *SchoolService) Update(ctx context.Context, id string, req models.UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	if req.Name != nil {
		school.Name = *req.Name
	}
	if req.Latitude != nil {
		school.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		school.Longitude = *req.Longitude
	}
	if req.ManagerID != nil {
		if *req.ManagerID != "" {
			if err := s.validateManager(ctx, *req.ManagerID, id); err != nil {
				return nil, err
			}
			school.ManagerID = req.ManagerID
		} else {
			school.ManagerID = nil
		}
	}

	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// Delete removes a school. Admin only.
func (s *SchoolService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}
	return nil
}

// Get returns a school with manager info for actors whose scope covers it.
func (s *SchoolService) Get(ctx context.Context, actor authz.Actor, id string) (*models.SchoolDetail, error) {
	scope := authz.ResolveSchoolScope(actor)
	if scope.Empty || (!scope.All && scope.SchoolID != id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return detail, nil
}

// List returns the schools visible to the actor.
func (s *SchoolService) List(ctx context.Context, actor authz.Actor, filter models.SchoolFilter) ([]models.SchoolDetail, *models.Pagination, error) {
	scope := authz.ResolveSchoolScope(actor)
	schools, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return schools, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Nearby returns schools around a point ordered by distance. Open to any
// authenticated user.
func (s *SchoolService) Nearby(ctx context.Context, req models.NearbySchoolsRequest) ([]models.NearbySchool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid nearby query")
	}
	schools, err := s.repo.ListNearby(ctx, req.Latitude, req.Longitude, req.RadiusKM, req.Limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query nearby schools")
	}
	if schools == nil {
		schools = []models.NearbySchool{}
	}
	return schools, nil
}

// ListTeachers returns the teachers working in the school. Manager only.
func (s *SchoolService) ListTeachers(ctx context.Context, actor authz.Actor, schoolID string) ([]models.User, error) {
	school, err := s.loadSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSchoolViewRoster, authz.Resource{School: school}); err != nil {
		return nil, err
	}
	teachers, err := s.repo.ListTeachers(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school teachers")
	}
	if teachers == nil {
		teachers = []models.User{}
	}
	return teachers, nil
}

// ListStudents returns the students enrolled in the school. Manager only.
func (s *SchoolService) ListStudents(ctx context.Context, actor authz.Actor, schoolID string) ([]models.User, error) {
	school, err := s.loadSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSchoolViewRoster, authz.Resource{School: school}); err != nil {
		return nil, err
	}
	students, err := s.repo.ListStudents(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school students")
	}
	if students == nil {
		students = []models.User{}
	}
	return students, nil
}

// ListClasses returns the classes of the school. Manager only.
func (s *SchoolService) ListClasses(ctx context.Context, actor authz.Actor, schoolID string) ([]models.ClassDetail, error) {
	school, err := s.loadSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSchoolViewRoster, authz.Resource{School: school}); err != nil {
		return nil, err
	}
	classes, err := s.repo.ListClasses(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school classes")
	}
	if classes == nil {
		classes = []models.ClassDetail{}
	}
	return classes, nil
}

// ListLessons returns the lessons taught across the school's classes. Manager
// only.
func (s *SchoolService) ListLessons(ctx context.Context, actor authz.Actor, schoolID string) ([]models.Lesson, error) {
	school, err := s.loadSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionSchoolViewRoster, authz.Resource{School: school}); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school lessons")
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	return lessons, nil
}

func (s *SchoolService) loadSchool(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}
