package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/bizcore/backend/internal/tenantctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeEventRepo records the filter it was queried with
type fakeEventRepo struct {
	lastFilter audit.Filter
	events     []audit.Event
	total      int64
}

func (f *fakeEventRepo) Create(ctx context.Context, event *audit.Event) error { return nil }

func (f *fakeEventRepo) CreateBatch(ctx context.Context, events []*audit.Event) error { return nil }

func (f *fakeEventRepo) List(ctx context.Context, filter audit.Filter) ([]audit.Event, int64, error) {
	f.lastFilter = filter
	return f.events, f.total, nil
}

// withClaims injects authenticated claims and the tenant-scoped request
// context the way the auth middleware would
func withClaims(tenantID, userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &auth.Claims{
			TenantID: tenantID.String(),
			UserID:   userID.String(),
		})
		ctx, err := tenantctx.WithTenant(c.Request.Context(), tenantID)
		if err == nil {
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func TestAuditList(t *testing.T) {
	tenantID := uuid.New()
	repo := &fakeEventRepo{total: 3}
	h := NewAuditHandler(appaudit.NewQueryService(repo))

	engine := gin.New()
	engine.GET("/audit/events", withClaims(tenantID, uuid.New()), h.List)

	t.Run("forces the caller's tenant into the filter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/audit/events?category=admin&page=2&page_size=10", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, repo.lastFilter.TenantID)
		assert.Equal(t, tenantID, *repo.lastFilter.TenantID)
		require.NotNil(t, repo.lastFilter.Category)
		assert.Equal(t, audit.CategoryAdmin, *repo.lastFilter.Category)
		assert.Equal(t, 2, repo.lastFilter.Page)
		assert.Equal(t, 10, repo.lastFilter.PageSize)
	})

	t.Run("parses time bounds", func(t *testing.T) {
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/audit/events?from="+from.Format(time.RFC3339), nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, repo.lastFilter.From)
		assert.True(t, repo.lastFilter.From.Equal(from))
	})

	t.Run("filters by origin address and target type", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/audit/events?ip_address=203.0.113.9&target_type=items", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, repo.lastFilter.IPAddress)
		assert.Equal(t, "203.0.113.9", *repo.lastFilter.IPAddress)
		require.NotNil(t, repo.lastFilter.TargetType)
		assert.Equal(t, "items", *repo.lastFilter.TargetType)
	})

	t.Run("rejects malformed query values", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/audit/events?actor_id=not-a-uuid", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuditPlatformList(t *testing.T) {
	repo := &fakeEventRepo{}
	h := NewAuditHandler(appaudit.NewQueryService(repo))

	engine := gin.New()
	engine.GET("/platform/audit/events", h.PlatformList)

	t.Run("no tenant filter by default", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/platform/audit/events", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, repo.lastFilter.TenantID)
	})

	t.Run("narrows to one tenant when asked", func(t *testing.T) {
		target := uuid.New()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/platform/audit/events?tenant_id="+target.String(), nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, repo.lastFilter.TenantID)
		assert.Equal(t, target, *repo.lastFilter.TenantID)
	})
}
