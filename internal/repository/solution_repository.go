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

// SolutionRepository provides database access for student submissions.
type SolutionRepository struct {
	db *sqlx.DB
}

// NewSolutionRepository creates a new instance of SolutionRepository.
func NewSolutionRepository(db *sqlx.DB) *SolutionRepository {
	return &SolutionRepository{db: db}
}

// FindByID returns a solution by identifier.
func (r *SolutionRepository) FindByID(ctx context.Context, id string) (*models.Solution, error) {
	const query = `SELECT id, context, attachment, grade, student_id, assignment_id, created_at, last_modified FROM solutions WHERE id = $1 LIMIT 1`
	var solution models.Solution
	if err := r.db.GetContext(ctx, &solution, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find solution by id: %w", err)
	}
	return &solution, nil
}

// FindDetailByID returns a solution with student and assignment info joined.
func (r *SolutionRepository) FindDetailByID(ctx context.Context, id string) (*models.SolutionDetail, error) {
	const query = `SELECT s.id, s.context, s.attachment, s.grade, s.student_id, s.assignment_id, s.created_at, s.last_modified, u.username AS student_name, a.title AS assignment_title
		FROM solutions s
		JOIN users u ON u.id = s.student_id
		JOIN assignments a ON a.id = s.assignment_id
		WHERE s.id = $1 LIMIT 1`
	var detail models.SolutionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find solution detail: %w", err)
	}
	return &detail, nil
}

// FindByStudentAndAssignment returns the student's submission for an
// assignment, if one exists.
func (r *SolutionRepository) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Solution, error) {
	const query = `SELECT id, context, attachment, grade, student_id, assignment_id, created_at, last_modified FROM solutions WHERE student_id = $1 AND assignment_id = $2 LIMIT 1`
	var solution models.Solution
	if err := r.db.GetContext(ctx, &solution, query, studentID, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find solution by student and assignment: %w", err)
	}
	return &solution, nil
}

// Create inserts a new solution.
func (r *SolutionRepository) Create(ctx context.Context, solution *models.Solution) error {
	if solution.ID == "" {
		solution.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if solution.CreatedAt.IsZero() {
		solution.CreatedAt = now
	}
	solution.LastModified = now

	const query = `INSERT INTO solutions (id, context, attachment, grade, student_id, assignment_id, created_at, last_modified) VALUES (:id, :context, :attachment, :grade, :student_id, :assignment_id, :created_at, :last_modified)`
	if _, err := r.db.NamedExecContext(ctx, query, solution); err != nil {
		return fmt.Errorf("create solution: %w", err)
	}
	return nil
}

// Update rewrites the content of a solution. Grade is untouched here; grading
// has its own statement.
func (r *SolutionRepository) Update(ctx context.Context, solution *models.Solution) error {
	solution.LastModified = time.Now().UTC()
	const query = `UPDATE solutions SET context = :context, attachment = :attachment, last_modified = :last_modified WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, solution); err != nil {
		return fmt.Errorf("update solution: %w", err)
	}
	return nil
}

// UpdateGrade records the teacher's grade for a solution.
func (r *SolutionRepository) UpdateGrade(ctx context.Context, id string, grade float64) error {
	const query = `UPDATE solutions SET grade = $2, last_modified = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("update solution grade: %w", err)
	}
	return nil
}

// ListByAssignment returns every submission for an assignment, for the class
// teacher's review and the grade-sheet export.
func (r *SolutionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SolutionDetail, error) {
	const query = `SELECT s.id, s.context, s.attachment, s.grade, s.student_id, s.assignment_id, s.created_at, s.last_modified, u.username AS student_name, a.title AS assignment_title
		FROM solutions s
		JOIN users u ON u.id = s.student_id
		JOIN assignments a ON a.id = s.assignment_id
		WHERE s.assignment_id = $1
		ORDER BY u.username ASC`
	var solutions []models.SolutionDetail
	if err := r.db.SelectContext(ctx, &solutions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list solutions by assignment: %w", err)
	}
	return solutions, nil
}

// List returns solutions within the given scope with total count.
func (r *SolutionRepository) List(ctx context.Context, scope authz.Scope, filter models.SolutionFilter) ([]models.SolutionDetail, int, error) {
	if scope.Empty {
		return []models.SolutionDetail{}, 0, nil
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
		conditions = append(conditions, fmt.Sprintf("s.student_id = $%d", len(args)+1))
		args = append(args, scope.StudentID)
	case scope.SchoolID != "":
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, scope.SchoolID)
	}

	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"created_at": true, "last_modified": true, "grade": true}
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

	listQuery := fmt.Sprintf(`SELECT s.id, s.context, s.attachment, s.grade, s.student_id, s.assignment_id, s.created_at, s.last_modified, u.username AS student_name, a.title AS assignment_title
		FROM solutions s
		JOIN users u ON u.id = s.student_id
		JOIN assignments a ON a.id = s.assignment_id
		JOIN classes c ON c.id = a.class_id
		%s ORDER BY s.%s %s LIMIT %d OFFSET %d`,
		whereClause, sortBy, sortOrder, pageSize, offset)

	var solutions []models.SolutionDetail
	if err := r.db.SelectContext(ctx, &solutions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list solutions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM solutions s JOIN assignments a ON a.id = s.assignment_id JOIN classes c ON c.id = a.class_id %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count solutions: %w", err)
	}

	return solutions, total, nil
}
