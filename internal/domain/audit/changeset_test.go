package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	t.Run("identical snapshots produce empty set", func(t *testing.T) {
		snapshot := map[string]any{"sku": "R-1", "qty": 5}
		changes := Diff(snapshot, map[string]any{"sku": "R-1", "qty": 5})
		assert.True(t, changes.IsEmpty())
	})

	t.Run("single changed field", func(t *testing.T) {
		changes := Diff(
			map[string]any{"sku": "R-1", "qty": 5},
			map[string]any{"sku": "R-1", "qty": 3},
		)
		assert.Len(t, changes, 1)
		assert.Equal(t, FieldChange{Old: 5, New: 3}, changes["qty"])
	})

	t.Run("nil values are preserved", func(t *testing.T) {
		changes := Diff(
			map[string]any{"deleted_at": nil},
			map[string]any{"deleted_at": "2026-01-02T15:04:05Z"},
		)
		assert.Equal(t, FieldChange{Old: nil, New: "2026-01-02T15:04:05Z"}, changes["deleted_at"])
	})

	t.Run("field missing from one side", func(t *testing.T) {
		changes := Diff(
			map[string]any{"sku": "R-1"},
			map[string]any{"sku": "R-1", "qty": 5},
		)
		assert.Equal(t, FieldChange{Old: nil, New: 5}, changes["qty"])

		changes = Diff(
			map[string]any{"sku": "R-1", "qty": 5},
			map[string]any{"sku": "R-1"},
		)
		assert.Equal(t, FieldChange{Old: 5, New: nil}, changes["qty"])
	})
}

func TestFieldChangeSetSides(t *testing.T) {
	changes := FieldChangeSet{
		"qty":  {Old: 5, New: 3},
		"name": {Old: "a", New: "b"},
	}

	assert.Equal(t, map[string]any{"qty": 5, "name": "a"}, changes.OldValues())
	assert.Equal(t, map[string]any{"qty": 3, "name": "b"}, changes.NewValues())
}
