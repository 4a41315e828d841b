package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahraAghaee77/School-Management-API/internal/middleware"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
)

type fakeSchoolFinder struct {
	byManager map[string]*models.School
}

func (f *fakeSchoolFinder) FindByManagerID(ctx context.Context, managerID string) (*models.School, error) {
	if s, ok := f.byManager[managerID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestActorResolverRequiresClaims(t *testing.T) {
	resolver := NewActorResolver(&fakeSchoolFinder{})
	c, _ := testContext(t)

	_, err := resolver.Resolve(c)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestActorResolverFillsManagedSchool(t *testing.T) {
	resolver := NewActorResolver(&fakeSchoolFinder{byManager: map[string]*models.School{
		"mgr-1": {ID: "school-1", Name: "North High"},
	}})
	c, _ := testContext(t)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "mgr-1",
		Roles:  []models.UserRole{models.RoleManager},
	})

	actor, err := resolver.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, "school-1", actor.ManagedSchoolID)
	assert.True(t, actor.ManagesSchool("school-1"))
}

func TestActorResolverManagerWithoutSchool(t *testing.T) {
	resolver := NewActorResolver(&fakeSchoolFinder{})
	c, _ := testContext(t)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "mgr-2",
		Roles:  []models.UserRole{models.RoleManager},
	})

	actor, err := resolver.Resolve(c)
	require.NoError(t, err)
	assert.Empty(t, actor.ManagedSchoolID)
}

func TestActorResolverSkipsLookupForNonManagers(t *testing.T) {
	resolver := NewActorResolver(&fakeSchoolFinder{})
	c, _ := testContext(t)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "t-1",
		Roles:  []models.UserRole{models.RoleTeacher},
	})

	actor, err := resolver.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, "t-1", actor.ID)
	assert.True(t, actor.HasRole(models.RoleTeacher))
	assert.Empty(t, actor.ManagedSchoolID)
}
