// Package integration exercises the persistence stack against a real
// PostgreSQL database started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bizcore/backend/internal/infrastructure/auditsink"
	"github.com/bizcore/backend/internal/infrastructure/persistence"
	"github.com/bizcore/backend/internal/infrastructure/persistence/capture"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
)

// TestDB is a migrated PostgreSQL database with the full persistence
// pipeline wired: tenant isolation, change capture, and the audit writer.
type TestDB struct {
	Database  *persistence.Database
	DB        *gorm.DB
	SqlDB     *sql.DB
	Events    *persistence.GormAuditEventRepository
	Deferred  *auditsink.DeferredSink
	Container testcontainers.Container
	t         *testing.T
}

// NewTestDB starts a fresh container, runs migrations, and wires the
// isolation and capture callbacks the way cmd/server does.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bizcore_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	gormDB, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := gormDB.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(5)

	runMigrations(t, sqlDB)

	log := zap.NewNop()
	db := persistence.NewDatabaseFromGorm(gormDB)

	events := persistence.NewGormAuditEventRepository(gormDB)
	deferred := auditsink.NewDeferredSink(events, log)
	db.SetAuditWriter(events, log)

	require.NoError(t, db.EnableIsolation(tenant.NewEnforcer()))
	require.NoError(t, db.EnableCapture(capture.NewCapturer(capture.NewRegistry(), deferred, log)))

	tdb := &TestDB{
		Database:  db,
		DB:        gormDB,
		SqlDB:     sqlDB,
		Events:    events,
		Deferred:  deferred,
		Container: container,
		t:         t,
	}

	t.Cleanup(func() {
		tdb.Close()
	})
	return tdb
}

// Close closes the connection and terminates the container.
func (tdb *TestDB) Close() {
	ctx := context.Background()
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(ctx); err != nil {
			tdb.t.Logf("Warning: failed to terminate container: %v", err)
		}
	}
}

// PurgeAuditEvents clears the audit trail between assertions.
func (tdb *TestDB) PurgeAuditEvents() {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.DB.Exec("DELETE FROM audit_events").Error)
}

func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "Could not find migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "Failed to create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "Failed to create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to run migrations")
	}
}

func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}
