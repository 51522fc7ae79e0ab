package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bizcore/backend/internal/infrastructure/auditsink"
	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/bizcore/backend/internal/infrastructure/persistence/capture"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
)

// Database holds the database connection plus the audit plumbing every
// unit of work flows through.
type Database struct {
	DB *gorm.DB

	auditWriter auditsink.EventWriter
	log         *zap.Logger
}

// NewDatabase opens a PostgreSQL connection with the given configuration
func NewDatabase(cfg config.DatabaseConfig, gormLogger gormlogger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, log: zap.NewNop()}, nil
}

// NewDatabaseFromGorm wraps an existing GORM handle. Used by tests.
func NewDatabaseFromGorm(db *gorm.DB) *Database {
	return &Database{DB: db, log: zap.NewNop()}
}

// EnableIsolation installs the tenant isolation callbacks
func (d *Database) EnableIsolation(enforcer *tenant.Enforcer) error {
	return enforcer.Register(d.DB)
}

// EnableCapture installs the change capture callbacks
func (d *Database) EnableCapture(capturer *capture.Capturer) error {
	return capturer.Register(d.DB)
}

// EnableTracing instruments every query with OpenTelemetry spans
func (d *Database) EnableTracing() error {
	return d.DB.Use(otelgorm.NewPlugin(otelgorm.WithoutQueryVariables()))
}

// SetAuditWriter wires the writer used to flush deferred audit events at
// commit time.
func (d *Database) SetAuditWriter(writer auditsink.EventWriter, log *zap.Logger) {
	d.auditWriter = writer
	if log != nil {
		d.log = log
	}
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

type txKey struct{}

// Transaction runs fn as one unit of work. Audit events recorded during fn
// are buffered and written just before commit, so a rollback discards them
// along with the data changes. A failed audit flush never fails the commit.
// Nested calls become savepoints on the enclosing transaction and share its
// buffer: the flush happens once at the outermost commit, and a nested
// rollback drops only the events the nested unit added.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	txCtx, buf := auditsink.WithBuffer(ctx)
	mark := buf.Len()

	handle, nested := d.DB, false
	if tx, ok := txCtx.Value(txKey{}).(*gorm.DB); ok {
		handle, nested = tx, true
	}

	err := handle.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		innerCtx := context.WithValue(txCtx, txKey{}, tx)
		if err := fn(innerCtx, tx.WithContext(innerCtx)); err != nil {
			return err
		}
		if !nested {
			auditsink.Flush(innerCtx, d.transactionalWriter(tx), d.log)
		}
		return nil
	})
	if err != nil {
		buf.TruncateTo(mark)
	}
	return err
}

// transactionalWriter binds the configured audit writer to the open
// transaction so flushed events commit atomically with the data changes.
func (d *Database) transactionalWriter(tx *gorm.DB) auditsink.EventWriter {
	if d.auditWriter == nil {
		return nil
	}
	if binder, ok := d.auditWriter.(interface {
		WithDB(db *gorm.DB) auditsink.EventWriter
	}); ok {
		return binder.WithDB(tx)
	}
	return d.auditWriter
}
