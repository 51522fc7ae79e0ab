package tenant

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/bizcore/backend/internal/tenantctx"
)

// DeniedFunc is invoked when a write names a tenant other than the one
// bound to the context. Implementations must not fail the operation; the
// enforcer has already rejected it.
type DeniedFunc func(ctx context.Context, table string, attempted uuid.UUID)

// Enforcer installs GORM callbacks that scope every statement touching a
// tenant-carrying model to the context tenant.
type Enforcer struct {
	onDenied DeniedFunc
}

// NewEnforcer creates an isolation enforcer
func NewEnforcer() *Enforcer {
	return &Enforcer{}
}

// OnDenied sets a hook fired when a cross-tenant write is rejected
func (e *Enforcer) OnDenied(fn DeniedFunc) *Enforcer {
	e.onDenied = fn
	return e
}

// Register installs the enforcer's callbacks on the DB instance
func (e *Enforcer) Register(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant:before_query", e.beforeRead); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("tenant:after_query", e.afterRead); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant:before_row", e.beforeRead); err != nil {
		return err
	}
	if err := db.Callback().Create().Before("gorm:create").Register("tenant:before_create", e.beforeCreate); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant:before_update", e.beforeWrite); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", e.beforeWrite)
}

// tenantField returns the tenant discriminator field of the statement's
// model, or nil when the model is not tenant-scoped.
func tenantField(db *gorm.DB) *schema.Field {
	if db.Statement.Schema == nil {
		return nil
	}
	return db.Statement.Schema.LookUpField(Column)
}

// resolveTenant returns the tenant the statement must run under. The second
// return is false when the statement should pass through unscoped (bypass
// active or platform-level model).
func (e *Enforcer) resolveTenant(db *gorm.DB) (uuid.UUID, bool) {
	if tenantField(db) == nil {
		return uuid.Nil, false
	}
	ctx := db.Statement.Context
	if tenantctx.IsBypassed(ctx) {
		return uuid.Nil, false
	}
	tenantID, ok := tenantctx.CurrentTenant(ctx)
	if !ok {
		_ = db.AddError(tenantctx.ErrTenantRequired)
		return uuid.Nil, false
	}
	return tenantID, true
}

func (e *Enforcer) beforeRead(db *gorm.DB) {
	tenantID, ok := e.resolveTenant(db)
	if !ok {
		return
	}
	e.addFilter(db, tenantID)
}

// afterRead verifies that every loaded row belongs to the context tenant.
// The filter added in beforeRead already guarantees this for plain queries;
// this catches rows smuggled in through joins or raw SQL fragments.
func (e *Enforcer) afterRead(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	tenantID, ok := e.resolveTenant(db)
	if !ok {
		return
	}
	field := tenantField(db)

	check := func(rv reflect.Value) bool {
		value, zero := field.ValueOf(db.Statement.Context, rv)
		if zero {
			return true
		}
		if id, ok := value.(uuid.UUID); ok && id != uuid.Nil && id != tenantID {
			e.deny(db, id)
			return false
		}
		return true
	}

	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			if !check(db.Statement.ReflectValue.Index(i)) {
				return
			}
		}
	case reflect.Struct:
		check(db.Statement.ReflectValue)
	}
}

// beforeCreate stamps the context tenant onto new rows. A row that already
// names a different tenant is rejected: silently rewriting it would mask a
// logic error upstream.
func (e *Enforcer) beforeCreate(db *gorm.DB) {
	tenantID, ok := e.resolveTenant(db)
	if !ok {
		return
	}
	field := tenantField(db)

	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			rv := db.Statement.ReflectValue.Index(i)
			if !e.stampOrReject(db, field, rv, tenantID) {
				return
			}
		}
	default:
		e.stampOrReject(db, field, db.Statement.ReflectValue, tenantID)
	}
}

// beforeWrite guards updates and deletes. A model instance that carries a
// foreign tenant is rejected before any SQL runs; otherwise the statement
// gains the tenant filter so it can only ever touch the caller's rows.
func (e *Enforcer) beforeWrite(db *gorm.DB) {
	tenantID, ok := e.resolveTenant(db)
	if !ok {
		return
	}
	field := tenantField(db)

	rv := db.Statement.ReflectValue
	if rv.Kind() == reflect.Struct {
		if existing, zero := field.ValueOf(db.Statement.Context, rv); !zero {
			if id, ok := existing.(uuid.UUID); ok && id != uuid.Nil && id != tenantID {
				e.deny(db, id)
				return
			}
		}
	}

	e.addFilter(db, tenantID)
}

func (e *Enforcer) addFilter(db *gorm.DB, tenantID uuid.UUID) {
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: Column},
				Value:  tenantID,
			},
		},
	})
}

// stampOrReject fills a missing tenant_id or rejects a mismatched one.
func (e *Enforcer) stampOrReject(db *gorm.DB, field *schema.Field, rv reflect.Value, tenantID uuid.UUID) bool {
	ctx := db.Statement.Context
	existing, zero := field.ValueOf(ctx, rv)
	if !zero {
		if id, ok := existing.(uuid.UUID); ok && id != uuid.Nil {
			if id != tenantID {
				e.deny(db, id)
				return false
			}
			return true
		}
	}
	if err := field.Set(ctx, rv, tenantID); err != nil {
		_ = db.AddError(err)
		return false
	}
	return true
}

func (e *Enforcer) deny(db *gorm.DB, attempted uuid.UUID) {
	_ = db.AddError(tenantctx.ErrIsolationViolation)
	if e.onDenied != nil {
		e.onDenied(db.Statement.Context, db.Statement.Table, attempted)
	}
}
