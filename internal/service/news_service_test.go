package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

type mockNewsRepo struct {
	byID      map[string]*models.News
	listCalls int
	deleted   []string
}

func newMockNewsRepo() *mockNewsRepo {
	return &mockNewsRepo{byID: make(map[string]*models.News)}
}

func (m *mockNewsRepo) FindByID(ctx context.Context, id string) (*models.News, error) {
	if n, ok := m.byID[id]; ok {
		return n, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNewsRepo) FindDetailByID(ctx context.Context, id string) (*models.NewsDetail, error) {
	if n, ok := m.byID[id]; ok {
		return &models.NewsDetail{News: *n, CreatorName: "author"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNewsRepo) ContainingSchoolID(ctx context.Context, newsID string) (string, error) {
	n, ok := m.byID[newsID]
	if !ok {
		return "", sql.ErrNoRows
	}
	if n.SchoolID != nil {
		return *n.SchoolID, nil
	}
	return newsSchoolID, nil
}

func (m *mockNewsRepo) Create(ctx context.Context, news *models.News) error {
	news.ID = "news-new"
	m.byID[news.ID] = news
	return nil
}

func (m *mockNewsRepo) Update(ctx context.Context, news *models.News) error {
	m.byID[news.ID] = news
	return nil
}

func (m *mockNewsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockNewsRepo) List(ctx context.Context, scope authz.Scope, filter models.NewsFilter) ([]models.NewsDetail, int, error) {
	m.listCalls++
	return []models.NewsDetail{{News: models.News{ID: "news-1", Title: "hello"}}}, 1, nil
}

type memoryCache struct {
	entries map[string][]byte
	purges  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.entries = make(map[string][]byte)
	c.purges++
	return nil
}

const (
	newsClassID  = "22222222-2222-4222-8222-222222222222"
	newsSchoolID = "11111111-1111-4111-8111-111111111111"
)

func newNewsFixture(cache newsCache) (*NewsService, *mockNewsRepo) {
	repo := newMockNewsRepo()
	classes := &mockClassReader{classes: map[string]*models.Class{
		newsClassID: {ID: newsClassID, SchoolID: newsSchoolID, TeacherID: ptrString("t-1")},
	}}
	schools := &mockSchoolReader{schools: map[string]*models.School{
		newsSchoolID: {ID: newsSchoolID, ManagerID: ptrString("mgr-1")},
	}}
	svc := NewNewsService(repo, classes, schools, cache, time.Minute, testEngine(nil, day(2026, 3, 9)), validator.New(), zap.NewNop())
	return svc, repo
}

func TestNewsCreateRequiresExactlyOneScope(t *testing.T) {
	svc, _ := newNewsFixture(nil)
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, err := svc.Create(context.Background(), teacher, models.CreateNewsRequest{Title: "x", Content: "y"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	both := models.CreateNewsRequest{
		Title:    "x",
		Content:  "y",
		SchoolID: ptrString(newsSchoolID),
		ClassID:  ptrString(newsClassID),
	}
	_, err = svc.Create(context.Background(), teacher, both)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNewsCreateClassScopeByTeacher(t *testing.T) {
	svc, repo := newNewsFixture(nil)
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	news, err := svc.Create(context.Background(), teacher, models.CreateNewsRequest{
		Title:   "exam moved",
		Content: "now on friday",
		ClassID: ptrString(newsClassID),
	})
	require.NoError(t, err)
	assert.Equal(t, "t-1", news.CreatorID)
	assert.NotNil(t, repo.byID[news.ID])
}

func TestNewsMutationByManagerOfContainingSchool(t *testing.T) {
	svc, repo := newNewsFixture(nil)
	repo.byID["news-1"] = &models.News{ID: "news-1", Title: "old", Content: "old", CreatorID: "t-1", ClassID: ptrString(newsClassID)}

	manager := authz.Actor{ID: "mgr-1", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: newsSchoolID}
	updated, err := svc.Update(context.Background(), manager, "news-1", models.UpdateNewsRequest{Title: ptrString("new")})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)

	outsider := authz.Actor{ID: "mgr-2", Roles: []models.UserRole{models.RoleManager}, ManagedSchoolID: "school-9"}
	err = svc.Delete(context.Background(), outsider, "news-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestNewsListCachesPages(t *testing.T) {
	cache := newMemoryCache()
	svc, repo := newNewsFixture(cache)
	student := authz.Actor{ID: "stu-1", Roles: []models.UserRole{models.RoleStudent}}

	items, pagination, err := svc.List(context.Background(), student, models.NewsFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, repo.listCalls)

	// Second read is served from the cache.
	items, _, err = svc.List(context.Background(), student, models.NewsFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, repo.listCalls)
}

func TestNewsMutationInvalidatesFeedCache(t *testing.T) {
	cache := newMemoryCache()
	svc, repo := newNewsFixture(cache)
	student := authz.Actor{ID: "stu-1", Roles: []models.UserRole{models.RoleStudent}}
	teacher := authz.Actor{ID: "t-1", Roles: []models.UserRole{models.RoleTeacher}}

	_, _, err := svc.List(context.Background(), student, models.NewsFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	_, err = svc.Create(context.Background(), teacher, models.CreateNewsRequest{
		Title:   "t",
		Content: "c",
		ClassID: ptrString(newsClassID),
	})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
	assert.Equal(t, 1, cache.purges)

	_, _, err = svc.List(context.Background(), student, models.NewsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}
