package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zahraAghaee77/School-Management-API/internal/models"
)

// LessonRepository provides database access for the lesson catalogue. Lessons
// are identified by name; attaching a lesson to a class reuses an existing
// row when one exists.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new instance of LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID returns a lesson by identifier.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, name, created_at FROM lessons WHERE id = $1 LIMIT 1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	return &lesson, nil
}

// GetOrCreateByName returns the lesson with the given name, inserting it
// first when missing. The upsert keeps concurrent callers from racing on the
// unique name constraint.
func (r *LessonRepository) GetOrCreateByName(ctx context.Context, name string) (*models.Lesson, error) {
	const upsert = `INSERT INTO lessons (id, name, created_at) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, upsert, uuid.NewString(), name, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	const query = `SELECT id, name, created_at FROM lessons WHERE name = $1 LIMIT 1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, name); err != nil {
		return nil, fmt.Errorf("find lesson by name: %w", err)
	}
	return &lesson, nil
}

// ListForTeacher returns the distinct lessons taught across the teacher's
// classes.
func (r *LessonRepository) ListForTeacher(ctx context.Context, teacherID string) ([]models.Lesson, error) {
	const query = `SELECT DISTINCT l.id, l.name, l.created_at
		FROM lessons l
		JOIN class_lessons cl ON cl.lesson_id = l.id
		JOIN classes c ON c.id = cl.class_id
		WHERE c.teacher_id = $1
		ORDER BY l.name ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher lessons: %w", err)
	}
	return lessons, nil
}

// ListForStudent returns the distinct lessons taught across the classes the
// student is enrolled in.
func (r *LessonRepository) ListForStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	const query = `SELECT DISTINCT l.id, l.name, l.created_at
		FROM lessons l
		JOIN class_lessons cl ON cl.lesson_id = l.id
		JOIN class_students cs ON cs.class_id = cl.class_id
		WHERE cs.student_id = $1
		ORDER BY l.name ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, studentID); err != nil {
		return nil, fmt.Errorf("list student lessons: %w", err)
	}
	return lessons, nil
}
