package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/tenantctx"
)

func scopedCtx(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()
	ctx, err := tenantctx.WithTenant(context.Background(), tenantID)
	require.NoError(t, err)
	return ctx
}

func setupAuditRepo(t *testing.T) *GormAuditEventRepository {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?mode=memory&name="+uuid.NewString()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&audit.Event{}))
	return NewGormAuditEventRepository(gdb)
}

func adminEvent(t *testing.T, tenantID uuid.UUID, action audit.Action, at time.Time) *audit.Event {
	t.Helper()
	e, err := audit.NewEvent(audit.CategoryAdmin, action, "users")
	require.NoError(t, err)
	e.CreatedAt = at
	return e.WithTenant(tenantID)
}

func TestAuditEventRepositoryCreateBatch(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()
	tenantID := uuid.New()

	now := time.Now()
	batch := []*audit.Event{
		adminEvent(t, tenantID, audit.ActionRoleChange, now.Add(-2*time.Minute)),
		adminEvent(t, tenantID, audit.ActionBranchAssign, now.Add(-time.Minute)),
		adminEvent(t, tenantID, audit.ActionGroupAssign, now),
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	events, total, err := repo.List(ctx, audit.Filter{TenantID: &tenantID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, events, 3)
	// Newest first.
	assert.Equal(t, audit.ActionGroupAssign, events[0].Action)
	assert.Equal(t, audit.ActionRoleChange, events[2].Action)
}

func TestAuditEventRepositoryList(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()

	now := time.Now()
	require.NoError(t, repo.CreateBatch(ctx, []*audit.Event{
		adminEvent(t, tenantA, audit.ActionRoleChange, now.Add(-3*time.Hour)),
		adminEvent(t, tenantA, audit.ActionImpersonateStart, now.Add(-2*time.Hour)),
		adminEvent(t, tenantB, audit.ActionRoleChange, now.Add(-time.Hour)),
	}))

	t.Run("filter by tenant", func(t *testing.T) {
		events, total, err := repo.List(ctx, audit.Filter{TenantID: &tenantA})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, events, 2)
	})

	t.Run("filter by action", func(t *testing.T) {
		action := audit.ActionRoleChange
		events, total, err := repo.List(ctx, audit.Filter{Action: &action})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		for _, e := range events {
			assert.Equal(t, audit.ActionRoleChange, e.Action)
		}
	})

	t.Run("filter by time window", func(t *testing.T) {
		from := now.Add(-150 * time.Minute)
		to := now.Add(-30 * time.Minute)
		_, total, err := repo.List(ctx, audit.Filter{From: &from, To: &to})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.List(ctx, audit.Filter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, events, 1)
	})
}

func TestAuditEventRepositoryRetention(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()
	tenantID := uuid.New()

	now := time.Now()
	require.NoError(t, repo.CreateBatch(ctx, []*audit.Event{
		adminEvent(t, tenantID, audit.ActionRoleChange, now.Add(-48*time.Hour)),
		adminEvent(t, tenantID, audit.ActionRoleChange, now),
	}))

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, total, err := repo.List(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
