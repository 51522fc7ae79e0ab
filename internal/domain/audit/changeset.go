package audit

import "reflect"

// FieldChange is the before/after pair for a single field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// FieldChangeSet maps field names to their before/after values. Only fields
// whose serialized value actually differs belong in the set; an empty set
// means the mutation was a no-op and produces no audit event.
type FieldChangeSet map[string]FieldChange

// Diff compares two serialized snapshots of the same entity and returns the
// fields that changed. Fields present in only one snapshot are treated as
// changed from (or to) nil.
func Diff(before, after map[string]any) FieldChangeSet {
	changes := make(FieldChangeSet)
	for name, oldValue := range before {
		newValue, ok := after[name]
		if !ok {
			changes[name] = FieldChange{Old: oldValue, New: nil}
			continue
		}
		if !reflect.DeepEqual(oldValue, newValue) {
			changes[name] = FieldChange{Old: oldValue, New: newValue}
		}
	}
	for name, newValue := range after {
		if _, ok := before[name]; !ok {
			changes[name] = FieldChange{Old: nil, New: newValue}
		}
	}
	return changes
}

// IsEmpty reports whether no field changed.
func (cs FieldChangeSet) IsEmpty() bool {
	return len(cs) == 0
}

// OldValues returns the before side of the change set.
func (cs FieldChangeSet) OldValues() map[string]any {
	result := make(map[string]any, len(cs))
	for name, change := range cs {
		result[name] = change.Old
	}
	return result
}

// NewValues returns the after side of the change set.
func (cs FieldChangeSet) NewValues() map[string]any {
	result := make(map[string]any, len(cs))
	for name, change := range cs {
		result[name] = change.New
	}
	return result
}
