package capture

import "sync"

// Registry records which tables and columns are exempt from change capture.
// The audit trail's own table is always exempt: capturing writes to it would
// recurse. Sensitive columns such as password hashes are exempt by default
// so their values never appear in audit payloads.
type Registry struct {
	mu              sync.RWMutex
	excludedTables  map[string]struct{}
	excludedFields  map[string]map[string]struct{}
	excludedColumns map[string]struct{}
}

// NewRegistry creates a registry with the built-in exemptions. The
// updated_at column is exempt everywhere: GORM bumps it on every save, and
// a timestamp-only diff would turn no-op updates into audit events.
func NewRegistry() *Registry {
	r := &Registry{
		excludedTables:  make(map[string]struct{}),
		excludedFields:  make(map[string]map[string]struct{}),
		excludedColumns: make(map[string]struct{}),
	}
	r.ExcludeTable("audit_events")
	r.ExcludeField("users", "password_hash")
	r.ExcludeColumn("updated_at")
	return r
}

// ExcludeColumn exempts a column name from capture in every table
func (r *Registry) ExcludeColumn(column string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excludedColumns[column] = struct{}{}
}

// ExcludeTable exempts a whole table from capture
func (r *Registry) ExcludeTable(table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excludedTables[table] = struct{}{}
}

// ExcludeField exempts a single column of a table from capture
func (r *Registry) ExcludeField(table, column string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.excludedFields[table] == nil {
		r.excludedFields[table] = make(map[string]struct{})
	}
	r.excludedFields[table][column] = struct{}{}
}

// TableExcluded reports whether the table is exempt
func (r *Registry) TableExcluded(table string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.excludedTables[table]
	return ok
}

// FieldExcluded reports whether a column of the table is exempt
func (r *Registry) FieldExcluded(table, column string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.excludedColumns[column]; ok {
		return true
	}
	fields, ok := r.excludedFields[table]
	if !ok {
		return false
	}
	_, ok = fields[column]
	return ok
}
