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

// AssignmentRepository provides database access for assignments. Listing is
// scope-driven: the caller's resolved scope compiles straight into the WHERE
// clause, so rows outside it never leave the database.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new instance of AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, title, context, max_grade, deadline, attachment, answer_text, answer_file, lesson_id, class_id, created_at, last_modified FROM assignments WHERE id = $1 LIMIT 1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// FindDetailByID returns an assignment with lesson and class names joined in.
func (r *AssignmentRepository) FindDetailByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	const query = `SELECT a.id, a.title, a.context, a.max_grade, a.deadline, a.attachment, a.answer_text, a.answer_file, a.lesson_id, a.class_id, a.created_at, a.last_modified, l.name AS lesson_name, c.name AS class_name
		FROM assignments a
		JOIN lessons l ON l.id = a.lesson_id
		JOIN classes c ON c.id = a.class_id
		WHERE a.id = $1 LIMIT 1`
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment detail: %w", err)
	}
	return &detail, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.LastModified = now

	const query = `INSERT INTO assignments (id, title, context, max_grade, deadline, attachment, answer_text, answer_file, lesson_id, class_id, created_at, last_modified) VALUES (:id, :title, :context, :max_grade, :deadline, :attachment, :answer_text, :answer_file, :lesson_id, :class_id, :created_at, :last_modified)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update updates the content fields of an assignment.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.LastModified = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, context = :context, max_grade = :max_grade, deadline = :deadline, attachment = :attachment, last_modified = :last_modified WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// SetAnswer publishes the teacher's answer for a closed assignment.
func (r *AssignmentRepository) SetAnswer(ctx context.Context, id string, answerText, answerFile *string) error {
	const query = `UPDATE assignments SET answer_text = $2, answer_file = $3, last_modified = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, answerText, answerFile, time.Now().UTC()); err != nil {
		return fmt.Errorf("set assignment answer: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns assignments within the given scope with total count.
func (r *AssignmentRepository) List(ctx context.Context, scope authz.Scope, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	if scope.Empty {
		return []models.AssignmentDetail{}, 0, nil
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
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM class_students cs WHERE cs.class_id = a.class_id AND cs.student_id = $%d)", len(args)+1))
		args = append(args, scope.StudentID)
	case scope.SchoolID != "":
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, scope.SchoolID)
	}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.LessonID != "" {
		conditions = append(conditions, fmt.Sprintf("a.lesson_id = $%d", len(args)+1))
		args = append(args, filter.LessonID)
	}
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"title": true, "deadline": true, "created_at": true, "last_modified": true}
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

	listQuery := fmt.Sprintf(`SELECT a.id, a.title, a.context, a.max_grade, a.deadline, a.attachment, a.answer_text, a.answer_file, a.lesson_id, a.class_id, a.created_at, a.last_modified, l.name AS lesson_name, c.name AS class_name
		FROM assignments a
		JOIN lessons l ON l.id = a.lesson_id
		JOIN classes c ON c.id = a.class_id
		%s ORDER BY a.%s %s LIMIT %d OFFSET %d`,
		whereClause, sortBy, sortOrder, pageSize, offset)

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM assignments a JOIN classes c ON c.id = a.class_id %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}
