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

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.Scope, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	AddStudent(ctx context.Context, classID, studentID string) (bool, error)
	RemoveStudent(ctx context.Context, classID, studentID string) (bool, error)
	ListStudents(ctx context.Context, classID string) ([]models.User, error)
	AttachLesson(ctx context.Context, classID, lessonID string) (bool, error)
	ListLessons(ctx context.Context, classID string) ([]models.Lesson, error)
	IsStudentInClass(ctx context.Context, classID, userID string) (bool, error)
}

type classUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type classSchoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type classLessonRepository interface {
	GetOrCreateByName(ctx context.Context, name string) (*models.Lesson, error)
}

// ClassService provides class management use cases. Admins own the class
// lifecycle; teachers manage their roster by national identifier; the
// school's manager attaches lessons.
type ClassService struct {
	repo      classRepository
	users     classUserReader
	schools   classSchoolReader
	lessons   classLessonRepository
	engine    *authz.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, users classUserReader, schools classSchoolReader, lessons classLessonRepository, engine *authz.Engine, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, users: users, schools: schools, lessons: lessons, engine: engine, validator: validate, logger: logger}
}

func (s *ClassService) loadClass(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *ClassService) validateTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "teacher user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.HasRole(models.RoleTeacher) {
		return appErrors.Clone(appErrors.ErrValidation, "user does not hold the teacher role")
	}
	return nil
}

// Create creates a class. Admin only.
func (s *ClassService) Create(ctx context.Context, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if _, err := s.schools.FindByID(ctx, req.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if req.TeacherID != nil {
		if err := s.validateTeacher(ctx, *req.TeacherID); err != nil {
			return nil, err
		}
	}

	class := &models.Class{Name: req.Name, SchoolID: req.SchoolID, TeacherID: req.TeacherID}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update edits a class. Admin only.
func (s *ClassService) Update(ctx context.Context, id string, req models.UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.loadClass(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.TeacherID != nil {
		if *req.TeacherID != "" {
			if err := s.validateTeacher(ctx, *req.TeacherID); err != nil {
				return nil, err
			}
			class.TeacherID = req.TeacherID
		} else {
			class.TeacherID = nil
		}
	}

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class. Admin only.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// Get returns a class when the actor's scope covers it.
func (s *ClassService) Get(ctx context.Context, actor authz.Actor, id string) (*models.ClassDetail, error) {
	class, err := s.loadClass(ctx, id)
	if err != nil {
		return nil, err
	}

	scope := authz.ResolveClassScope(actor)
	visible := scope.All
	switch {
	case visible:
	case scope.TeacherID != "":
		visible = class.TeacherID != nil && *class.TeacherID == scope.TeacherID
	case scope.StudentID != "":
		enrolled, err := s.repo.IsStudentInClass(ctx, id, scope.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		visible = enrolled
	case scope.SchoolID != "":
		visible = class.SchoolID == scope.SchoolID
	}
	if !visible {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// List returns the classes visible to the actor.
func (s *ClassService) List(ctx context.Context, actor authz.Actor, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	scope := authz.ResolveClassScope(actor)
	classes, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// AddStudent enrolls a student located by national identifier. Class teacher
// only; enrolling an already-enrolled student fails.
func (s *ClassService) AddStudent(ctx context.Context, actor authz.Actor, classID string, req models.RosterChangeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionClassAddStudent, authz.Resource{Class: class}); err != nil {
		return err
	}

	student, err := s.users.FindByNationalID(ctx, req.NationalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no student with that national id")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.HasRole(models.RoleStudent) {
		return appErrors.Clone(appErrors.ErrNotFound, "no student with that national id")
	}

	added, err := s.repo.AddStudent(ctx, classID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if !added {
		return appErrors.Clone(appErrors.ErrValidation, "the student is already enrolled in the class")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionStudentAdd,
		Resource:   "class",
		ResourceID: &classID,
		NewValues:  []byte(`{"student_id":"` + student.ID + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
	return nil
}

// RemoveStudent drops a student located by national identifier from the
// roster. Class teacher only; removing a non-enrolled student fails.
func (s *ClassService) RemoveStudent(ctx context.Context, actor authz.Actor, classID string, req models.RosterChangeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionClassRemoveStudent, authz.Resource{Class: class}); err != nil {
		return err
	}

	student, err := s.users.FindByNationalID(ctx, req.NationalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no user with that national id")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	removed, err := s.repo.RemoveStudent(ctx, classID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrValidation, "the student is not enrolled in the class")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionStudentRemove,
		Resource:   "class",
		ResourceID: &classID,
		NewValues:  []byte(`{"student_id":"` + student.ID + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record roster audit log", zap.Error(err))
	}
	return nil
}

// ListStudents returns the class roster. Class teacher only.
func (s *ClassService) ListStudents(ctx context.Context, actor authz.Actor, classID string) ([]models.User, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionClassViewStudents, authz.Resource{Class: class}); err != nil {
		return nil, err
	}

	students, err := s.repo.ListStudents(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}
	if students == nil {
		students = []models.User{}
	}
	return students, nil
}

// AddLesson attaches a lesson by name, creating the catalogue entry when
// missing. School manager only.
func (s *ClassService) AddLesson(ctx context.Context, actor authz.Actor, classID string, req models.AddLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionClassAddLesson, authz.Resource{Class: class}); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.GetOrCreateByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve lesson")
	}
	attached, err := s.repo.AttachLesson(ctx, classID, lesson.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach lesson")
	}
	if !attached {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the lesson is already attached to the class")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionLessonAdd,
		Resource:   "class",
		ResourceID: &classID,
		NewValues:  []byte(`{"lesson_id":"` + lesson.ID + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record lesson audit log", zap.Error(err))
	}

	return lesson, nil
}

// ListLessons returns the lessons taught in the class. Visible to the class
// teacher, enrolled students and the school's manager.
func (s *ClassService) ListLessons(ctx context.Context, actor authz.Actor, classID string) ([]models.Lesson, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionClassViewLessons, authz.Resource{Class: class}); err != nil {
		return nil, err
	}

	lessons, err := s.repo.ListLessons(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class lessons")
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	return lessons, nil
}
