package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlanLimits(t *testing.T) {
	t.Run("free plan is the fallback", func(t *testing.T) {
		free := DefaultPlanLimits(TenantPlanFree)
		assert.Equal(t, 5, free.UserLimit)
		assert.Equal(t, 1, free.BranchLimit)
		assert.False(t, free.MultiBranch)
		assert.Equal(t, free, DefaultPlanLimits(TenantPlan("garbage")))
	})

	t.Run("limits grow with the plan tier", func(t *testing.T) {
		basic := DefaultPlanLimits(TenantPlanBasic)
		pro := DefaultPlanLimits(TenantPlanPro)
		enterprise := DefaultPlanLimits(TenantPlanEnterprise)

		assert.Greater(t, pro.UserLimit, basic.UserLimit)
		assert.Greater(t, enterprise.UserLimit, pro.UserLimit)
		assert.True(t, basic.MultiBranch)
		assert.False(t, basic.APIAccess)
		assert.True(t, pro.APIAccess)
		assert.True(t, enterprise.PrioritySupport)
	})
}

func TestLimitField(t *testing.T) {
	t.Run("validity", func(t *testing.T) {
		for _, f := range AllLimitFields() {
			assert.True(t, f.IsValid(), f.String())
		}
		assert.False(t, LimitField("seat_count").IsValid())
	})

	t.Run("boolean classification", func(t *testing.T) {
		assert.True(t, FieldMultiBranch.IsBoolean())
		assert.True(t, FieldAPIAccess.IsBoolean())
		assert.False(t, FieldUserLimit.IsBoolean())
		assert.False(t, FieldAPICallsPerMonth.IsBoolean())
	})
}

func TestLimitOverrides(t *testing.T) {
	t.Run("set and resolve a numeric override", func(t *testing.T) {
		var o LimitOverrides
		require.NoError(t, o.Set(FieldUserLimit, 25))

		effective := o.ApplyTo(DefaultPlanLimits(TenantPlanFree))
		assert.Equal(t, 25, effective.UserLimit)
		assert.Equal(t, 1, effective.BranchLimit)
	})

	t.Run("explicit zero beats the plan default", func(t *testing.T) {
		var o LimitOverrides
		require.NoError(t, o.Set(FieldBranchLimit, 0))

		effective := o.ApplyTo(DefaultPlanLimits(TenantPlanPro))
		assert.Equal(t, 0, effective.BranchLimit)
	})

	t.Run("explicit false beats an enabled flag", func(t *testing.T) {
		var o LimitOverrides
		require.NoError(t, o.Set(FieldMultiBranch, false))

		effective := o.ApplyTo(DefaultPlanLimits(TenantPlanEnterprise))
		assert.False(t, effective.MultiBranch)
		assert.True(t, effective.AdvancedReporting)
	})

	t.Run("clear falls back to the plan default", func(t *testing.T) {
		var o LimitOverrides
		require.NoError(t, o.Set(FieldUserLimit, 100))
		require.NoError(t, o.Clear(FieldUserLimit))

		effective := o.ApplyTo(DefaultPlanLimits(TenantPlanBasic))
		assert.Equal(t, 10, effective.UserLimit)
		assert.True(t, o.IsEmpty())
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		var o LimitOverrides
		require.NoError(t, o.Clear(FieldAPIAccess))
		require.NoError(t, o.Clear(FieldAPIAccess))
		assert.True(t, o.IsEmpty())
	})

	t.Run("type mismatches are rejected", func(t *testing.T) {
		var o LimitOverrides
		assert.Error(t, o.Set(FieldUserLimit, true))
		assert.Error(t, o.Set(FieldMultiBranch, 3))
		assert.Error(t, o.Set(FieldUserLimit, -1))
		assert.Error(t, o.Set(LimitField("bogus"), 1))
		assert.Error(t, o.Clear(LimitField("bogus")))
		assert.True(t, o.IsEmpty())
	})

	t.Run("get reports presence", func(t *testing.T) {
		var o LimitOverrides
		_, ok := o.Get(FieldUserLimit)
		assert.False(t, ok)

		require.NoError(t, o.Set(FieldUserLimit, 0))
		v, ok := o.Get(FieldUserLimit)
		assert.True(t, ok)
		assert.Equal(t, 0, v)

		require.NoError(t, o.Set(FieldCustomBranding, false))
		v, ok = o.Get(FieldCustomBranding)
		assert.True(t, ok)
		assert.Equal(t, false, v)
	})

	t.Run("clear all", func(t *testing.T) {
		var o LimitOverrides
		require.NoError(t, o.Set(FieldUserLimit, 7))
		require.NoError(t, o.Set(FieldPrioritySupport, true))
		o.ClearAll()
		assert.True(t, o.IsEmpty())
	})
}
