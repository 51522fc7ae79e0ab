package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
)

func setupSubscriptionRepo(t *testing.T) *GormSubscriptionRepository {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?mode=memory&name="+uuid.NewString()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&identity.Subscription{}))
	return NewGormSubscriptionRepository(gdb)
}

func TestSubscriptionRepository(t *testing.T) {
	repo := setupSubscriptionRepo(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := identity.NewSubscription(tenantID, identity.TenantPlanFree)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, sub))

	t.Run("find by tenant", func(t *testing.T) {
		found, err := repo.FindByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, identity.TenantPlanFree, found.Plan)
		assert.True(t, found.Overrides.IsEmpty())
	})

	t.Run("unknown tenant is not found", func(t *testing.T) {
		_, err := repo.FindByTenant(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("override round-trips including explicit zero", func(t *testing.T) {
		require.NoError(t, sub.SetOverride(identity.FieldBranchLimit, 0))
		require.NoError(t, sub.SetOverride(identity.FieldMultiBranch, false))
		require.NoError(t, repo.Update(ctx, sub))

		found, err := repo.FindByTenant(ctx, tenantID)
		require.NoError(t, err)
		require.NotNil(t, found.Overrides.BranchLimit)
		assert.Equal(t, 0, *found.Overrides.BranchLimit)
		require.NotNil(t, found.Overrides.MultiBranch)
		assert.False(t, *found.Overrides.MultiBranch)
	})

	t.Run("cleared override persists as NULL", func(t *testing.T) {
		require.NoError(t, sub.ClearOverride(identity.FieldBranchLimit))
		require.NoError(t, repo.Update(ctx, sub))

		found, err := repo.FindByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Nil(t, found.Overrides.BranchLimit)
		// The untouched override survives.
		require.NotNil(t, found.Overrides.MultiBranch)
	})

	t.Run("plan change keeps overrides", func(t *testing.T) {
		require.NoError(t, sub.ChangePlan(identity.TenantPlanEnterprise))
		require.NoError(t, repo.Update(ctx, sub))

		found, err := repo.FindByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, identity.TenantPlanEnterprise, found.Plan)
		require.NotNil(t, found.Overrides.MultiBranch)
		assert.False(t, found.Effective().MultiBranch)
	})
}
