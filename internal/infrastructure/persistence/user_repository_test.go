package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
)

func setupUserRepo(t *testing.T) *GormUserRepository {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?mode=memory&name="+uuid.NewString()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&identity.User{}))
	require.NoError(t, tenant.NewEnforcer().Register(gdb))
	return NewGormUserRepository(gdb)
}

func TestUserRepositoryIsolation(t *testing.T) {
	repo := setupUserRepo(t)
	tenantA := uuid.New()
	tenantB := uuid.New()

	userA, err := identity.NewUser(tenantA, "a@example.com", "A", "longenough", identity.RoleEmployee)
	require.NoError(t, err)
	require.NoError(t, repo.Create(scopedCtx(t, tenantA), userA))

	userB, err := identity.NewUser(tenantB, "b@example.com", "B", "longenough", identity.RoleOwner)
	require.NoError(t, err)
	require.NoError(t, repo.Create(scopedCtx(t, tenantB), userB))

	t.Run("lookup within the tenant succeeds", func(t *testing.T) {
		found, err := repo.FindByID(scopedCtx(t, tenantA), userA.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", found.Email)
	})

	t.Run("foreign lookup comes back not found", func(t *testing.T) {
		_, err := repo.FindByID(scopedCtx(t, tenantA), userB.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("list only sees the tenant's users", func(t *testing.T) {
		page, err := repo.List(scopedCtx(t, tenantB), shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "b@example.com", page.Items[0].Email)
	})

	t.Run("count is tenant scoped", func(t *testing.T) {
		count, err := repo.CountByTenant(scopedCtx(t, tenantA))
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("foreign delete comes back not found", func(t *testing.T) {
		err := repo.Delete(scopedCtx(t, tenantA), userB.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
