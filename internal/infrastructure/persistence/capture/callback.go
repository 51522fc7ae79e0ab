// Package capture turns row mutations into audit events. It hooks GORM's
// create, update and delete paths: before a mutation it snapshots the row
// as stored, afterwards it diffs old against new and hands a minimal
// field-level change event to the audit sink. Updates that change nothing
// produce no event.
package capture

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/tenantctx"
)

const beforeStateKey = "capture:before_state"

// Capturer records data-change audit events for instance-level mutations.
// Batch statements without a single primary key (bulk updates, slice
// deletes) are not captured; callers that need those audited record events
// explicitly.
type Capturer struct {
	registry *Registry
	sink     auditsink.Sink
	log      *zap.Logger
}

// NewCapturer creates a change capturer emitting into the given sink
func NewCapturer(registry *Registry, sink auditsink.Sink, log *zap.Logger) *Capturer {
	if registry == nil {
		registry = NewRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Capturer{registry: registry, sink: sink, log: log}
}

// Registry returns the exemption registry backing this capturer
func (c *Capturer) Registry() *Registry {
	return c.registry
}

// Register installs the capture callbacks on the DB instance
func (c *Capturer) Register(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("capture:after_create", c.afterCreate); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("capture:before_update", c.beforeMutation); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("capture:after_update", c.afterUpdate); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("capture:before_delete", c.beforeMutation); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("capture:after_delete", c.afterDelete)
}

// primaryKey returns the statement's single-row primary key, if the
// statement targets exactly one capturable instance.
func (c *Capturer) primaryKey(db *gorm.DB) (column string, value any, ok bool) {
	stmt := db.Statement
	if stmt.Schema == nil || stmt.Schema.PrioritizedPrimaryField == nil {
		return "", nil, false
	}
	if c.registry.TableExcluded(stmt.Table) {
		return "", nil, false
	}
	if stmt.ReflectValue.Kind() != reflect.Struct {
		return "", nil, false
	}
	field := stmt.Schema.PrioritizedPrimaryField
	value, zero := field.ValueOf(stmt.Context, stmt.ReflectValue)
	if zero {
		return "", nil, false
	}
	return field.DBName, value, true
}

// beforeMutation snapshots the stored row before an update or delete runs.
func (c *Capturer) beforeMutation(db *gorm.DB) {
	if db.Error != nil || db.DryRun {
		return
	}
	pkColumn, pk, ok := c.primaryKey(db)
	if !ok {
		return
	}
	if before, found := c.readRow(db, pkColumn, pk); found {
		db.InstanceSet(beforeStateKey, before)
	}
}

func (c *Capturer) afterCreate(db *gorm.DB) {
	if db.Error != nil || db.DryRun || db.RowsAffected == 0 {
		return
	}
	_, pk, ok := c.primaryKey(db)
	if !ok {
		return
	}
	stmt := db.Statement
	newValues := snapshot(stmt.Context, stmt.Schema, stmt.ReflectValue, c.registry)
	c.emit(db, audit.ActionCreate, pk, nil, newValues)
}

// afterUpdate re-reads the row and emits an event only when something
// actually changed.
func (c *Capturer) afterUpdate(db *gorm.DB) {
	if db.Error != nil || db.DryRun {
		return
	}
	pkColumn, pk, ok := c.primaryKey(db)
	if !ok {
		return
	}
	before, found := c.beforeState(db)
	if !found {
		return
	}
	after, found := c.readRow(db, pkColumn, pk)
	if !found {
		return
	}

	changes := audit.Diff(before, after)
	if changes.IsEmpty() {
		return
	}
	c.emit(db, audit.ActionUpdate, pk, changes.OldValues(), changes.NewValues())
}

func (c *Capturer) afterDelete(db *gorm.DB) {
	if db.Error != nil || db.DryRun || db.RowsAffected == 0 {
		return
	}
	_, pk, ok := c.primaryKey(db)
	if !ok {
		return
	}
	before, found := c.beforeState(db)
	if !found {
		return
	}
	c.emit(db, audit.ActionDelete, pk, before, nil)
}

func (c *Capturer) beforeState(db *gorm.DB) (map[string]any, bool) {
	raw, ok := db.InstanceGet(beforeStateKey)
	if !ok {
		return nil, false
	}
	state, ok := raw.(map[string]any)
	return state, ok
}

// readRow fetches the current stored state of the row. The read runs on the
// statement's connection, so inside a transaction it sees uncommitted
// writes, and it inherits the statement context, so tenant scoping applies.
func (c *Capturer) readRow(db *gorm.DB, pkColumn string, pk any) (map[string]any, bool) {
	stmt := db.Statement
	row := map[string]any{}
	tx := db.Session(&gorm.Session{NewDB: true}).
		WithContext(stmt.Context).
		Table(stmt.Table).
		Where(pkColumn+" = ?", pk).
		Limit(1).
		Find(&row)
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, false
	}
	return filterExcluded(stmt.Table, row, c.registry), true
}

func (c *Capturer) emit(db *gorm.DB, action audit.Action, pk any, oldValues, newValues map[string]any) {
	ctx := db.Statement.Context

	event, err := audit.NewEvent(audit.CategoryData, action, db.Statement.Table)
	if err != nil {
		logger.WithLogger(ctx, c.log).Error("failed to build change event", zap.Error(err))
		return
	}
	event = event.WithTarget(normalizeKey(pk))
	if tenantID, ok := tenantctx.CurrentTenant(ctx); ok {
		event = event.WithTenant(tenantID)
	}
	if actor := logger.GetActorID(ctx); actor != "" {
		if actorID, err := uuid.Parse(actor); err == nil {
			event = event.WithActor(actorID)
		}
	}
	if err := event.WithJSONValues(oldValues, newValues); err != nil {
		logger.WithLogger(ctx, c.log).Error("failed to serialize change payload", zap.Error(err))
		return
	}
	c.sink.Record(ctx, event)
}

func normalizeKey(pk any) string {
	switch v := normalize(pk).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
