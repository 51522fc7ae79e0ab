package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscription(t *testing.T) {
	t.Run("creates a subscription without overrides", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), TenantPlanBasic)
		require.NoError(t, err)
		assert.Equal(t, TenantPlanBasic, sub.Plan)
		assert.True(t, sub.Overrides.IsEmpty())
		assert.Equal(t, DefaultPlanLimits(TenantPlanBasic), sub.Effective())
	})

	t.Run("rejects nil tenant", func(t *testing.T) {
		_, err := NewSubscription(uuid.Nil, TenantPlanFree)
		assert.Error(t, err)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		_, err := NewSubscription(uuid.New(), TenantPlan("gold"))
		assert.Error(t, err)
	})
}

func TestSubscriptionOverrides(t *testing.T) {
	t.Run("override wins over the plan default", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), TenantPlanFree)
		require.NoError(t, err)

		require.NoError(t, sub.SetOverride(FieldUserLimit, 50))
		assert.Equal(t, 50, sub.Effective().UserLimit)
		assert.Equal(t, 1, sub.Effective().BranchLimit)
	})

	t.Run("clearing reverts to the plan default, not a frozen copy", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), TenantPlanFree)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(FieldUserLimit, 50))
		require.NoError(t, sub.ClearOverride(FieldUserLimit))

		assert.Equal(t, 5, sub.Effective().UserLimit)

		// After a plan change the cleared field tracks the new plan.
		require.NoError(t, sub.ChangePlan(TenantPlanPro))
		assert.Equal(t, 50, sub.Effective().UserLimit)
	})

	t.Run("plan change preserves overrides", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), TenantPlanFree)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(FieldUserLimit, 100))
		require.NoError(t, sub.SetOverride(FieldMultiBranch, false))

		require.NoError(t, sub.ChangePlan(TenantPlanEnterprise))

		effective := sub.Effective()
		assert.Equal(t, 100, effective.UserLimit)
		assert.False(t, effective.MultiBranch)
		assert.True(t, effective.AdvancedReporting)
	})

	t.Run("change to the same plan is rejected", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), TenantPlanPro)
		require.NoError(t, err)
		assert.Error(t, sub.ChangePlan(TenantPlanPro))
	})

	t.Run("clear all overrides", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), TenantPlanBasic)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(FieldUserLimit, 1))
		require.NoError(t, sub.SetOverride(FieldAPIAccess, true))

		sub.ClearAllOverrides()
		assert.True(t, sub.Overrides.IsEmpty())
		assert.Equal(t, DefaultPlanLimits(TenantPlanBasic), sub.Effective())
	})
}
