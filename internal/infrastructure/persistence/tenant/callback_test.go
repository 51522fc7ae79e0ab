package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bizcore/backend/internal/tenantctx"
)

type scopedRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string
}

type platformRecord struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string
}

func setupEnforcedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_fk=1&mode=memory&name="+uuid.NewString()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&scopedRecord{}, &platformRecord{}))
	require.NoError(t, NewEnforcer().Register(db))
	return db
}

func tenantContext(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()
	ctx, err := tenantctx.WithTenant(context.Background(), tenantID)
	require.NoError(t, err)
	return ctx
}

func TestEnforcerReadScoping(t *testing.T) {
	db := setupEnforcedDB(t)
	tenantA := uuid.New()
	tenantB := uuid.New()

	seed := []scopedRecord{
		{ID: uuid.New(), TenantID: tenantA, Name: "a1"},
		{ID: uuid.New(), TenantID: tenantA, Name: "a2"},
		{ID: uuid.New(), TenantID: tenantB, Name: "b1"},
	}
	require.NoError(t, db.WithContext(tenantctx.Bypass(context.Background())).Create(&seed).Error)

	t.Run("finds only the caller's rows", func(t *testing.T) {
		var rows []scopedRecord
		require.NoError(t, db.WithContext(tenantContext(t, tenantA)).Find(&rows).Error)
		assert.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, tenantA, row.TenantID)
		}
	})

	t.Run("foreign row lookup by primary key misses", func(t *testing.T) {
		var row scopedRecord
		err := db.WithContext(tenantContext(t, tenantB)).First(&row, "id = ?", seed[0].ID).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("bypass sees every tenant", func(t *testing.T) {
		var rows []scopedRecord
		require.NoError(t, db.WithContext(tenantctx.Bypass(context.Background())).Find(&rows).Error)
		assert.Len(t, rows, 3)
	})

	t.Run("missing tenant is an error", func(t *testing.T) {
		var rows []scopedRecord
		err := db.WithContext(context.Background()).Find(&rows).Error
		assert.ErrorIs(t, err, tenantctx.ErrTenantRequired)
	})

	t.Run("platform models are untouched", func(t *testing.T) {
		var rows []platformRecord
		assert.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)
	})
}

func TestEnforcerCreateStamping(t *testing.T) {
	db := setupEnforcedDB(t)
	tenantA := uuid.New()
	tenantB := uuid.New()

	t.Run("stamps the context tenant", func(t *testing.T) {
		rec := scopedRecord{ID: uuid.New(), Name: "fresh"}
		require.NoError(t, db.WithContext(tenantContext(t, tenantA)).Create(&rec).Error)
		assert.Equal(t, tenantA, rec.TenantID)
	})

	t.Run("matching tenant passes through", func(t *testing.T) {
		rec := scopedRecord{ID: uuid.New(), TenantID: tenantA, Name: "explicit"}
		assert.NoError(t, db.WithContext(tenantContext(t, tenantA)).Create(&rec).Error)
	})

	t.Run("foreign tenant is rejected", func(t *testing.T) {
		rec := scopedRecord{ID: uuid.New(), TenantID: tenantB, Name: "smuggled"}
		err := db.WithContext(tenantContext(t, tenantA)).Create(&rec).Error
		assert.ErrorIs(t, err, tenantctx.ErrIsolationViolation)
	})

	t.Run("batch create stamps every element", func(t *testing.T) {
		recs := []scopedRecord{
			{ID: uuid.New(), Name: "x"},
			{ID: uuid.New(), Name: "y"},
		}
		require.NoError(t, db.WithContext(tenantContext(t, tenantA)).Create(&recs).Error)
		for _, rec := range recs {
			assert.Equal(t, tenantA, rec.TenantID)
		}
	})
}

func TestEnforcerWriteScoping(t *testing.T) {
	db := setupEnforcedDB(t)
	tenantA := uuid.New()
	tenantB := uuid.New()

	foreign := scopedRecord{ID: uuid.New(), TenantID: tenantB, Name: "theirs"}
	mine := scopedRecord{ID: uuid.New(), TenantID: tenantA, Name: "mine"}
	require.NoError(t, db.WithContext(tenantctx.Bypass(context.Background())).Create(&[]scopedRecord{foreign, mine}).Error)

	t.Run("update on a foreign instance is rejected", func(t *testing.T) {
		rec := foreign
		rec.Name = "tampered"
		err := db.WithContext(tenantContext(t, tenantA)).Save(&rec).Error
		assert.ErrorIs(t, err, tenantctx.ErrIsolationViolation)
	})

	t.Run("bulk update only touches the caller's rows", func(t *testing.T) {
		res := db.WithContext(tenantContext(t, tenantA)).
			Model(&scopedRecord{}).
			Where("name IN ?", []string{"theirs", "mine"}).
			Update("name", "renamed")
		require.NoError(t, res.Error)
		assert.EqualValues(t, 1, res.RowsAffected)

		var untouched scopedRecord
		require.NoError(t, db.WithContext(tenantctx.Bypass(context.Background())).First(&untouched, "id = ?", foreign.ID).Error)
		assert.Equal(t, "theirs", untouched.Name)
	})

	t.Run("delete on a foreign instance is rejected", func(t *testing.T) {
		rec := foreign
		err := db.WithContext(tenantContext(t, tenantA)).Delete(&rec).Error
		assert.ErrorIs(t, err, tenantctx.ErrIsolationViolation)
	})

	t.Run("denied hook fires with the attempted tenant", func(t *testing.T) {
		var gotTable string
		var gotTenant uuid.UUID
		enforcer := NewEnforcer().OnDenied(func(_ context.Context, table string, attempted uuid.UUID) {
			gotTable = table
			gotTenant = attempted
		})
		fresh := setupPlainDB(t)
		require.NoError(t, enforcer.Register(fresh))

		rec := scopedRecord{ID: uuid.New(), TenantID: tenantB, Name: "probe"}
		err := fresh.WithContext(tenantContext(t, tenantA)).Create(&rec).Error
		assert.ErrorIs(t, err, tenantctx.ErrIsolationViolation)
		assert.Equal(t, "scoped_records", gotTable)
		assert.Equal(t, tenantB, gotTenant)
	})
}

func setupPlainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?mode=memory&name="+uuid.NewString()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&scopedRecord{}))
	return db
}

func TestEnforcerAfterReadVerification(t *testing.T) {
	db := setupEnforcedDB(t)
	tenantA := uuid.New()
	tenantB := uuid.New()

	foreign := scopedRecord{ID: uuid.New(), TenantID: tenantB, Name: "smuggled"}
	require.NoError(t, db.WithContext(tenantctx.Bypass(context.Background())).Create(&foreign).Error)

	t.Run("row loaded past the filter is rejected", func(t *testing.T) {
		var denied []uuid.UUID
		verifier := NewEnforcer().OnDenied(func(_ context.Context, _ string, attempted uuid.UUID) {
			denied = append(denied, attempted)
		})

		// A second connection without the before-query filter models a raw
		// or join query that slips a foreign row into the result set.
		raw, err := gorm.Open(sqlite.Dialector{Conn: mustConn(t, db)}, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err)
		require.NoError(t, raw.Callback().Query().After("gorm:query").Register("tenant:after_query", verifier.afterRead))

		var rows []scopedRecord
		err = raw.WithContext(tenantContext(t, tenantA)).Find(&rows).Error
		require.ErrorIs(t, err, tenantctx.ErrIsolationViolation)
		require.Len(t, denied, 1)
		assert.Equal(t, tenantB, denied[0])
	})

	t.Run("bypassed reads skip verification", func(t *testing.T) {
		var rows []scopedRecord
		require.NoError(t, db.WithContext(tenantctx.Bypass(context.Background())).Find(&rows).Error)
		assert.NotEmpty(t, rows)
	})
}

func mustConn(t *testing.T, db *gorm.DB) gorm.ConnPool {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	return sqlDB
}
