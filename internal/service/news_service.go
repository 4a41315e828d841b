package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

type newsRepository interface {
	FindByID(ctx context.Context, id string) (*models.News, error)
	FindDetailByID(ctx context.Context, id string) (*models.NewsDetail, error)
	ContainingSchoolID(ctx context.Context, newsID string) (string, error)
	Create(ctx context.Context, news *models.News) error
	Update(ctx context.Context, news *models.News) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope authz.Scope, filter models.NewsFilter) ([]models.NewsDetail, int, error)
}

type newsClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type newsSchoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type newsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cachedNewsPage struct {
	Items      []models.NewsDetail `json:"items"`
	Pagination models.Pagination   `json:"pagination"`
}

// NewsService provides announcement use cases. Feeds are cached per actor
// and page; any mutation invalidates the whole feed cache.
type NewsService struct {
	repo      newsRepository
	classes   newsClassReader
	schools   newsSchoolReader
	cache     newsCache
	cacheTTL  time.Duration
	engine    *authz.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNewsService constructs a NewsService instance. A nil cache disables
// feed caching.
func NewNewsService(repo newsRepository, classes newsClassReader, schools newsSchoolReader, cache newsCache, cacheTTL time.Duration, engine *authz.Engine, validate *validator.Validate, logger *zap.Logger) *NewsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &NewsService{repo: repo, classes: classes, schools: schools, cache: cache, cacheTTL: cacheTTL, engine: engine, validator: validate, logger: logger}
}

func (s *NewsService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "news:feed:*"); err != nil {
		s.logger.Warn("failed to invalidate news feed cache", zap.Error(err))
	}
}

// Create posts an announcement. Exactly one of school or class must be
// given: teachers post to their own class, managers to their own school.
func (s *NewsService) Create(ctx context.Context, actor authz.Actor, req models.CreateNewsRequest) (*models.News, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid news payload")
	}
	if (req.SchoolID == nil) == (req.ClassID == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of school_id or class_id must be set")
	}

	res := authz.Resource{}
	if req.ClassID != nil {
		class, err := s.classes.FindByID(ctx, *req.ClassID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
		res.Class = class
	} else {
		school, err := s.schools.FindByID(ctx, *req.SchoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
		}
		res.School = school
	}

	if err := s.engine.Allowed(ctx, actor, authz.ActionNewsCreate, res); err != nil {
		return nil, err
	}

	news := &models.News{
		Title:     req.Title,
		Content:   req.Content,
		CreatorID: actor.ID,
		SchoolID:  req.SchoolID,
		ClassID:   req.ClassID,
	}
	if err := s.repo.Create(ctx, news); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create news")
	}
	s.invalidateFeed(ctx)
	return news, nil
}

func (s *NewsService) loadNewsWithSchool(ctx context.Context, id string) (*models.News, string, error) {
	news, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "news not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load news")
	}
	schoolID, err := s.repo.ContainingSchoolID(ctx, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve news school")
	}
	return news, schoolID, nil
}

// Update edits an announcement. Creator or the containing school's manager.
func (s *NewsService) Update(ctx context.Context, actor authz.Actor, id string, req models.UpdateNewsRequest) (*models.News, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid news payload")
	}

	news, schoolID, err := s.loadNewsWithSchool(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionNewsUpdate, authz.Resource{News: news, SchoolID: schoolID}); err != nil {
		return nil, err
	}

	if req.Title != nil {
		news.Title = *req.Title
	}
	if req.Content != nil {
		news.Content = *req.Content
	}
	if err := s.repo.Update(ctx, news); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update news")
	}
	s.invalidateFeed(ctx)
	return news, nil
}

// Delete removes an announcement. Creator or the containing school's manager.
func (s *NewsService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	news, schoolID, err := s.loadNewsWithSchool(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionNewsDelete, authz.Resource{News: news, SchoolID: schoolID}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete news")
	}
	s.invalidateFeed(ctx)
	return nil
}

// Get returns a single announcement for actors in its audience.
func (s *NewsService) Get(ctx context.Context, actor authz.Actor, id string) (*models.NewsDetail, error) {
	news, _, err := s.loadNewsWithSchool(ctx, id)
	if err != nil {
		return nil, err
	}

	res := authz.Resource{News: news}
	if news.ClassID != nil {
		class, err := s.classes.FindByID(ctx, *news.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
		res.Class = class
	} else if news.SchoolID != nil {
		school, err := s.schools.FindByID(ctx, *news.SchoolID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
		}
		res.School = school
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionNewsView, res); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "news not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load news")
	}
	return detail, nil
}

// List returns the feed within the actor's resolved scope, served from the
// cache when a fresh page exists.
func (s *NewsService) List(ctx context.Context, actor authz.Actor, filter models.NewsFilter) ([]models.NewsDetail, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	cacheKey := fmt.Sprintf("news:feed:%s:%d:%d:%s:%s", actor.ID, page, pageSize, filter.SortBy, filter.SortOrder)
	if s.cache != nil {
		var cached cachedNewsPage
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached.Items, &cached.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("news feed cache read failed", zap.Error(err))
		}
	}

	scope := authz.ResolveNewsScope(actor)
	items, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list news")
	}

	pagination := models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cachedNewsPage{Items: items, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("news feed cache write failed", zap.Error(err))
		}
	}
	return items, &pagination, nil
}
