package capture

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm/schema"
)

// snapshot extracts the persisted columns of a model instance as a map of
// column name to a JSON-friendly value, skipping exempt columns.
func snapshot(ctx context.Context, sch *schema.Schema, rv reflect.Value, registry *Registry) map[string]any {
	values := make(map[string]any, len(sch.Fields))
	for _, field := range sch.Fields {
		if field.DBName == "" {
			continue
		}
		if registry.FieldExcluded(sch.Table, field.DBName) {
			continue
		}
		value, zero := field.ValueOf(ctx, rv)
		if zero {
			values[field.DBName] = nil
			continue
		}
		values[field.DBName] = normalize(value)
	}
	return values
}

// filterExcluded drops exempt columns from a column map read back from the
// database.
func filterExcluded(table string, row map[string]any, registry *Registry) map[string]any {
	values := make(map[string]any, len(row))
	for column, value := range row {
		if registry.FieldExcluded(table, column) {
			continue
		}
		values[column] = normalize(value)
	}
	return values
}

// normalize flattens driver-specific values so that the same logical value
// compares equal whether it came from a model instance or a row re-read.
func normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		return fmt.Sprintf("%v", value)
	}
}
