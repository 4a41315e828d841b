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

// NewsRepository provides database access for announcements. A news row
// points at exactly one of a school or a class; the CHECK constraint on the
// table backs the invariant the service enforces.
type NewsRepository struct {
	db *sqlx.DB
}

// NewNewsRepository creates a new instance of NewsRepository.
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// FindByID returns a news item by identifier.
func (r *NewsRepository) FindByID(ctx context.Context, id string) (*models.News, error) {
	const query = `SELECT id, title, content, creator_id, school_id, class_id, created_at, last_modified FROM news WHERE id = $1 LIMIT 1`
	var news models.News
	if err := r.db.GetContext(ctx, &news, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find news by id: %w", err)
	}
	return &news, nil
}

// FindDetailByID returns a news item with creator and scope names joined in.
func (r *NewsRepository) FindDetailByID(ctx context.Context, id string) (*models.NewsDetail, error) {
	const query = `SELECT n.id, n.title, n.content, n.creator_id, n.school_id, n.class_id, n.created_at, n.last_modified, u.username AS creator_name, s.name AS school_name, c.name AS class_name
		FROM news n
		JOIN users u ON u.id = n.creator_id
		LEFT JOIN schools s ON s.id = n.school_id
		LEFT JOIN classes c ON c.id = n.class_id
		WHERE n.id = $1 LIMIT 1`
	var detail models.NewsDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find news detail: %w", err)
	}
	return &detail, nil
}

// ContainingSchoolID resolves the school a news item ultimately belongs to,
// walking through the class for class-scoped items.
func (r *NewsRepository) ContainingSchoolID(ctx context.Context, newsID string) (string, error) {
	const query = `SELECT COALESCE(n.school_id, c.school_id) FROM news n LEFT JOIN classes c ON c.id = n.class_id WHERE n.id = $1`
	var schoolID string
	if err := r.db.GetContext(ctx, &schoolID, query, newsID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("resolve news school: %w", err)
	}
	return schoolID, nil
}

// Create inserts a new news item.
func (r *NewsRepository) Create(ctx context.Context, news *models.News) error {
	if news.ID == "" {
		news.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if news.CreatedAt.IsZero() {
		news.CreatedAt = now
	}
	news.LastModified = now

	const query = `INSERT INTO news (id, title, content, creator_id, school_id, class_id, created_at, last_modified) VALUES (:id, :title, :content, :creator_id, :school_id, :class_id, :created_at, :last_modified)`
	if _, err := r.db.NamedExecContext(ctx, query, news); err != nil {
		return fmt.Errorf("create news: %w", err)
	}
	return nil
}

// Update rewrites the title and content of a news item. The scope columns
// stay fixed after creation.
func (r *NewsRepository) Update(ctx context.Context, news *models.News) error {
	news.LastModified = time.Now().UTC()
	const query = `UPDATE news SET title = :title, content = :content, last_modified = :last_modified WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, news); err != nil {
		return fmt.Errorf("update news: %w", err)
	}
	return nil
}

// Delete removes a news item.
func (r *NewsRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns news within the given scope with total count. Teachers and
// students see the news of their classes plus the school-wide news of the
// schools those classes belong to; managers see their school's feed plus
// anything they authored.
func (r *NewsRepository) List(ctx context.Context, scope authz.Scope, filter models.NewsFilter) ([]models.NewsDetail, int, error) {
	if scope.Empty {
		return []models.NewsDetail{}, 0, nil
	}

	whereClause := `WHERE 1=1`
	var conditions []string
	var args []interface{}

	switch {
	case scope.All:
	case scope.TeacherID != "":
		cond := fmt.Sprintf(`(
			n.class_id IN (SELECT id FROM classes WHERE teacher_id = $%d)
			OR n.school_id IN (SELECT school_id FROM classes WHERE teacher_id = $%d)
		)`, len(args)+1, len(args)+1)
		conditions = append(conditions, cond)
		args = append(args, scope.TeacherID)
	case scope.StudentID != "":
		cond := fmt.Sprintf(`(
			n.class_id IN (SELECT class_id FROM class_students WHERE student_id = $%d)
			OR n.school_id IN (SELECT c.school_id FROM classes c JOIN class_students cs ON cs.class_id = c.id WHERE cs.student_id = $%d)
		)`, len(args)+1, len(args)+1)
		conditions = append(conditions, cond)
		args = append(args, scope.StudentID)
	case scope.SchoolID != "":
		cond := fmt.Sprintf(`(
			n.school_id = $%d
			OR n.class_id IN (SELECT id FROM classes WHERE school_id = $%d)
			OR n.creator_id = $%d
		)`, len(args)+1, len(args)+1, len(args)+2)
		conditions = append(conditions, cond)
		args = append(args, scope.SchoolID, scope.CreatorID)
	}

	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"title": true, "created_at": true, "last_modified": true}
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

	listQuery := fmt.Sprintf(`SELECT n.id, n.title, n.content, n.creator_id, n.school_id, n.class_id, n.created_at, n.last_modified, u.username AS creator_name, s.name AS school_name, c.name AS class_name
		FROM news n
		JOIN users u ON u.id = n.creator_id
		LEFT JOIN schools s ON s.id = n.school_id
		LEFT JOIN classes c ON c.id = n.class_id
		%s ORDER BY n.%s %s LIMIT %d OFFSET %d`,
		whereClause, sortBy, sortOrder, pageSize, offset)

	var items []models.NewsDetail
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list news: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM news n %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count news: %w", err)
	}

	return items, total, nil
}
