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

// SchoolRepository provides database access for schools, their rosters and
// the geographic proximity search.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository creates a new instance of SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID returns a school by identifier.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, latitude, longitude, manager_id, created_at, updated_at FROM schools WHERE id = $1 LIMIT 1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school by id: %w", err)
	}
	return &school, nil
}

// FindDetailByID returns a school with the manager's username joined in.
func (r *SchoolRepository) FindDetailByID(ctx context.Context, id string) (*models.SchoolDetail, error) {
	const query = `SELECT s.id, s.name, s.latitude, s.longitude, s.manager_id, s.created_at, s.updated_at, m.username AS manager_name
		FROM schools s LEFT JOIN users m ON m.id = s.manager_id WHERE s.id = $1 LIMIT 1`
	var detail models.SchoolDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school detail: %w", err)
	}
	return &detail, nil
}

// FindByManagerID returns the school managed by the given user, if any.
func (r *SchoolRepository) FindByManagerID(ctx context.Context, managerID string) (*models.School, error) {
	const query = `SELECT id, name, latitude, longitude, manager_id, created_at, updated_at FROM schools WHERE manager_id = $1 LIMIT 1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, managerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school by manager: %w", err)
	}
	return &school, nil
}

// ManagerHasSchool reports whether the user already manages a school other
// than the one identified by excludeSchoolID.
func (r *SchoolRepository) ManagerHasSchool(ctx context.Context, managerID, excludeSchoolID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schools WHERE manager_id = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, managerID, excludeSchoolID); err != nil {
		return false, fmt.Errorf("check manager school: %w", err)
	}
	return exists, nil
}

// Create inserts a new school.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now

	const query = `INSERT INTO schools (id, name, latitude, longitude, manager_id, created_at, updated_at) VALUES (:id, :name, :latitude, :longitude, :manager_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update updates mutable fields of a school.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, latitude = :latitude, longitude = :longitude, manager_id = :manager_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return nil
}

// Delete removes a school.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns schools within the given scope with total count.
func (r *SchoolRepository) List(ctx context.Context, scope authz.Scope, filter models.SchoolFilter) ([]models.SchoolDetail, int, error) {
	if scope.Empty {
		return []models.SchoolDetail{}, 0, nil
	}

	whereClause := `WHERE 1=1`
	var conditions []string
	var args []interface{}

	if !scope.All && scope.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("s.id = $%d", len(args)+1))
		args = append(args, scope.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
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

	listQuery := fmt.Sprintf(`SELECT s.id, s.name, s.latitude, s.longitude, s.manager_id, s.created_at, s.updated_at, m.username AS manager_name
		FROM schools s LEFT JOIN users m ON m.id = s.manager_id %s ORDER BY s.%s %s LIMIT %d OFFSET %d`,
		whereClause, sortBy, sortOrder, pageSize, offset)

	var schools []models.SchoolDetail
	if err := r.db.SelectContext(ctx, &schools, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schools s %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}

	return schools, total, nil
}

// ListNearby returns schools within radiusKM of the given point, closest
// first. Distance uses the haversine great-circle formula evaluated in SQL.
func (r *SchoolRepository) ListNearby(ctx context.Context, lat, lon, radiusKM float64, limit int) ([]models.NearbySchool, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, name, latitude, longitude, manager_id, created_at, updated_at,
		(6371 * acos(LEAST(1, GREATEST(-1,
			cos(radians($1)) * cos(radians(latitude)) * cos(radians(longitude) - radians($2)) +
			sin(radians($1)) * sin(radians(latitude))
		)))) AS distance_km
		FROM schools
		WHERE (6371 * acos(LEAST(1, GREATEST(-1,
			cos(radians($1)) * cos(radians(latitude)) * cos(radians(longitude) - radians($2)) +
			sin(radians($1)) * sin(radians(latitude))
		)))) <= $3
		ORDER BY distance_km ASC
		LIMIT $4`
	var schools []models.NearbySchool
	if err := r.db.SelectContext(ctx, &schools, query, lat, lon, radiusKM, limit); err != nil {
		return nil, fmt.Errorf("list nearby schools: %w", err)
	}
	return schools, nil
}

// ListTeachers returns every teacher assigned to a class of the school.
func (r *SchoolRepository) ListTeachers(ctx context.Context, schoolID string) ([]models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id IN (SELECT DISTINCT c.teacher_id FROM classes c WHERE c.school_id = $1 AND c.teacher_id IS NOT NULL)` +
		userGroupBy + ` ORDER BY u.username ASC`
	var teachers []models.User
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school teachers: %w", err)
	}
	return teachers, nil
}

// ListStudents returns every student enrolled in a class of the school.
func (r *SchoolRepository) ListStudents(ctx context.Context, schoolID string) ([]models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id IN (SELECT DISTINCT cs.student_id FROM class_students cs JOIN classes c ON c.id = cs.class_id WHERE c.school_id = $1)` +
		userGroupBy + ` ORDER BY u.username ASC`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school students: %w", err)
	}
	return students, nil
}

// ListClasses returns the classes of the school with names joined in.
func (r *SchoolRepository) ListClasses(ctx context.Context, schoolID string) ([]models.ClassDetail, error) {
	const query = `SELECT c.id, c.name, c.school_id, c.teacher_id, c.created_at, c.updated_at, s.name AS school_name, t.username AS teacher_name
		FROM classes c
		JOIN schools s ON s.id = c.school_id
		LEFT JOIN users t ON t.id = c.teacher_id
		WHERE c.school_id = $1 ORDER BY c.name ASC`
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school classes: %w", err)
	}
	return classes, nil
}

// ListLessons returns every lesson taught in any class of the school.
func (r *SchoolRepository) ListLessons(ctx context.Context, schoolID string) ([]models.Lesson, error) {
	const query = `SELECT DISTINCT l.id, l.name, l.created_at
		FROM lessons l
		JOIN class_lessons cl ON cl.lesson_id = l.id
		JOIN classes c ON c.id = cl.class_id
		WHERE c.school_id = $1 ORDER BY l.name ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school lessons: %w", err)
	}
	return lessons, nil
}

// IsTeacherInSchool reports whether the user teaches any class of the school.
func (r *SchoolRepository) IsTeacherInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM classes WHERE school_id = $1 AND teacher_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, schoolID, userID); err != nil {
		return false, fmt.Errorf("check teacher in school: %w", err)
	}
	return exists, nil
}

// IsStudentInSchool reports whether the user is enrolled in any class of the
// school.
func (r *SchoolRepository) IsStudentInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_students cs JOIN classes c ON c.id = cs.class_id WHERE c.school_id = $1 AND cs.student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, schoolID, userID); err != nil {
		return false, fmt.Errorf("check student in school: %w", err)
	}
	return exists, nil
}
