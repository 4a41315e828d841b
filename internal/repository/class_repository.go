package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
)

// ClassRepository provides database access for classes, their enrollment
// roster and the class-lesson relation. It also backs the membership
// questions permission predicates ask.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, school_id, teacher_id, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindDetailByID returns a class with school and teacher names joined in.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.name, c.school_id, c.teacher_id, c.created_at, c.updated_at, s.name AS school_name, t.username AS teacher_name
		FROM classes c
		JOIN schools s ON s.id = c.school_id
		LEFT JOIN users t ON t.id = c.teacher_id
		WHERE c.id = $1 LIMIT 1`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class detail: %w", err)
	}
	return &detail, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, name, school_id, teacher_id, created_at, updated_at) VALUES (:id, :name, :school_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update updates mutable fields of a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, school_id = :school_id, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns classes within the given scope with total count.
func (r *ClassRepository) List(ctx context.Context, scope authz.Scope, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	if scope.Empty {
		return []models.ClassDetail{}, 0, nil
	}

	whereClause := `WHERE 1=1`
	var conditions []string
	var args []interface{}

	switch {
	case scope.All:
	case scope.TeacherID != "":
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, scope.TeacherID)
	case scope.StudentID != "":
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM class_students cs WHERE cs.class_id = c.id AND cs.student_id = $%d)", len(args)+1))
		args = append(args, scope.StudentID)
	case scope.SchoolID != "":
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, scope.SchoolID)
	}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "created_at": true, "updated_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT c.id, c.name, c.school_id, c.teacher_id, c.created_at, c.updated_at, s.name AS school_name, t.username AS teacher_name
		FROM classes c
		JOIN schools s ON s.id = c.school_id
		LEFT JOIN users t ON t.id = c.teacher_id
		%s ORDER BY c.%s %s LIMIT %d OFFSET %d`,
		whereClause, sortBy, sortOrder, pageSize, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM classes c %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	return classes, total, nil
}

// AddStudent enrolls a student into a class. The insert is conditional so a
// repeated enrollment is a no-op; the returned flag reports whether a row was
// actually written.
func (r *ClassRepository) AddStudent(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `INSERT INTO class_students (class_id, student_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (class_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add student to class: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add student to class: %w", err)
	}
	return n > 0, nil
}

// RemoveStudent drops a student from a class roster. Removing a student who
// is not enrolled is a no-op; the flag reports whether a row was deleted.
func (r *ClassRepository) RemoveStudent(ctx context.Context, classID, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return false, fmt.Errorf("remove student from class: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove student from class: %w", err)
	}
	return n > 0, nil
}

// ListStudents returns the enrolled students of a class.
func (r *ClassRepository) ListStudents(ctx context.Context, classID string) ([]models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id IN (SELECT student_id FROM class_students WHERE class_id = $1)` +
		userGroupBy + ` ORDER BY u.username ASC`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}

// AttachLesson links a lesson to a class. Returns false when the lesson was
// already attached; the conditional insert keeps concurrent attaches safe.
func (r *ClassRepository) AttachLesson(ctx context.Context, classID, lessonID string) (bool, error) {
	const query = `INSERT INTO class_lessons (class_id, lesson_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (class_id, lesson_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classID, lessonID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("attach lesson to class: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach lesson to class: %w", err)
	}
	return inserted > 0, nil
}

// ListLessons returns the lessons taught in a class.
func (r *ClassRepository) ListLessons(ctx context.Context, classID string) ([]models.Lesson, error) {
	const query = `SELECT l.id, l.name, l.created_at FROM lessons l JOIN class_lessons cl ON cl.lesson_id = l.id WHERE cl.class_id = $1 ORDER BY l.name ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, classID); err != nil {
		return nil, fmt.Errorf("list class lessons: %w", err)
	}
	return lessons, nil
}

// IsStudentInClass reports whether the student is enrolled in the class.
func (r *ClassRepository) IsStudentInClass(ctx context.Context, classID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, userID); err != nil {
		return false, fmt.Errorf("check class enrollment: %w", err)
	}
	return exists, nil
}

// ClassHasLesson reports whether the lesson is taught in the class.
func (r *ClassRepository) ClassHasLesson(ctx context.Context, classID, lessonID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_lessons WHERE class_id = $1 AND lesson_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, lessonID); err != nil {
		return false, fmt.Errorf("check class lesson: %w", err)
	}
	return exists, nil
}
