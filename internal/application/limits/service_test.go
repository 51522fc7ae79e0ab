package limits

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/domain/identity"
	"github.com/bizcore/backend/internal/domain/shared"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
	"github.com/bizcore/backend/internal/tenantctx"
)

type fakeSubscriptionRepo struct {
	subs    map[uuid.UUID]*identity.Subscription
	updates int
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*identity.Subscription)}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *identity.Subscription) error {
	copied := *sub
	r.subs[sub.TenantID] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) (*identity.Subscription, error) {
	sub, ok := r.subs[tenantID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, sub *identity.Subscription) error {
	if _, ok := r.subs[sub.TenantID]; !ok {
		return shared.ErrNotFound
	}
	copied := *sub
	r.subs[sub.TenantID] = &copied
	r.updates++
	return nil
}

type fakeUserRepo struct {
	identity.UserRepository
	count int64
	err   error
}

func (r *fakeUserRepo) CountByTenant(context.Context) (int64, error) {
	return r.count, r.err
}

type fakeCache struct {
	entries     map[uuid.UUID]identity.EffectiveLimits
	gets        int
	hits        int
	invalidated []uuid.UUID
	getErr      error
	setErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]identity.EffectiveLimits)}
}

func (c *fakeCache) Get(_ context.Context, tenantID uuid.UUID) (*identity.EffectiveLimits, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	limits, ok := c.entries[tenantID]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &limits, nil
}

func (c *fakeCache) Set(_ context.Context, tenantID uuid.UUID, limits identity.EffectiveLimits) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[tenantID] = limits
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.invalidated = append(c.invalidated, tenantID)
	delete(c.entries, tenantID)
	return nil
}

type recordingSink struct {
	events []*audit.Event
}

func (s *recordingSink) Record(_ context.Context, event *audit.Event) {
	s.events = append(s.events, event)
}

func tenantContext(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()
	ctx, err := tenantctx.WithTenant(context.Background(), tenantID)
	require.NoError(t, err)
	return ctx
}

func seedSubscription(t *testing.T, repo *fakeSubscriptionRepo, plan identity.TenantPlan) uuid.UUID {
	t.Helper()
	tenantID := uuid.New()
	sub, err := identity.NewSubscription(tenantID, plan)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), sub))
	return tenantID
}

func TestEffective(t *testing.T) {
	t.Run("cache miss reads the subscription and populates the cache", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		cache := newFakeCache()
		tenantID := seedSubscription(t, repo, identity.TenantPlanBasic)
		service := NewService(repo, &fakeUserRepo{}, cache, nil, nil)

		effective, err := service.Effective(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, identity.DefaultPlanLimits(identity.TenantPlanBasic), effective)
		assert.Contains(t, cache.entries, tenantID)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		cache := newFakeCache()
		tenantID := uuid.New()
		cached := identity.DefaultPlanLimits(identity.TenantPlanPro)
		cache.entries[tenantID] = cached
		// empty repo: a repository read would fail with not found
		service := NewService(newFakeSubscriptionRepo(), &fakeUserRepo{}, cache, nil, nil)

		effective, err := service.Effective(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, cached, effective)
		assert.Equal(t, 1, cache.hits)
	})

	t.Run("cache errors degrade to a repository read", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		cache := newFakeCache()
		cache.getErr = errors.New("redis down")
		cache.setErr = errors.New("redis down")
		tenantID := seedSubscription(t, repo, identity.TenantPlanFree)
		service := NewService(repo, &fakeUserRepo{}, cache, nil, nil)

		effective, err := service.Effective(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, identity.DefaultPlanLimits(identity.TenantPlanFree), effective)
	})

	t.Run("overrides win over plan defaults", func(t *testing.T) {
		repo := newFakeSubscriptionRepo()
		tenantID := seedSubscription(t, repo, identity.TenantPlanFree)
		sub, err := repo.FindByTenant(context.Background(), tenantID)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(identity.FieldUserLimit, 0))
		require.NoError(t, sub.SetOverride(identity.FieldAPIAccess, true))
		require.NoError(t, repo.Update(context.Background(), sub))
		service := NewService(repo, &fakeUserRepo{}, nil, nil, nil)

		effective, err := service.Effective(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, 0, effective.UserLimit, "explicit zero is a value, not an unset marker")
		assert.True(t, effective.APIAccess)
	})

	t.Run("unknown tenant returns not found", func(t *testing.T) {
		service := NewService(newFakeSubscriptionRepo(), &fakeUserRepo{}, nil, nil, nil)
		_, err := service.Effective(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestEffectiveForCurrent(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	tenantID := seedSubscription(t, repo, identity.TenantPlanPro)
	service := NewService(repo, &fakeUserRepo{}, nil, nil, nil)

	t.Run("resolves the context tenant", func(t *testing.T) {
		ctx := tenantContext(t, tenantID)
		effective, err := service.EffectiveForCurrent(ctx)
		require.NoError(t, err)
		assert.True(t, effective.AdvancedReporting)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		_, err := service.EffectiveForCurrent(context.Background())
		assert.ErrorIs(t, err, tenantctx.ErrTenantRequired)
	})
}

func TestOverrideMutations(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	cache := newFakeCache()
	sink := &recordingSink{}
	recorder := appaudit.NewRecorder(sink, sink)
	tenantID := seedSubscription(t, repo, identity.TenantPlanBasic)
	actorID := uuid.New()
	service := NewService(repo, &fakeUserRepo{}, cache, recorder, nil)
	ctx := context.Background()

	t.Run("set override persists, records, and invalidates", func(t *testing.T) {
		require.NoError(t, service.SetOverride(ctx, actorID, tenantID, identity.FieldUserLimit, 3, appaudit.RequestMeta{}))

		effective, err := service.Effective(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, 3, effective.UserLimit)
		assert.Contains(t, cache.invalidated, tenantID)
		require.NotEmpty(t, sink.events)
		assert.Equal(t, audit.ActionOverrideSet, sink.events[len(sink.events)-1].Action)
	})

	t.Run("clear override reverts to the plan default", func(t *testing.T) {
		require.NoError(t, service.ClearOverride(ctx, actorID, tenantID, identity.FieldUserLimit, appaudit.RequestMeta{}))

		effective, err := service.Effective(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, identity.DefaultPlanLimits(identity.TenantPlanBasic).UserLimit, effective.UserLimit)
		assert.Equal(t, audit.ActionOverrideCleared, sink.events[len(sink.events)-1].Action)
	})

	t.Run("plan change preserves overrides and invalidates", func(t *testing.T) {
		require.NoError(t, service.SetOverride(ctx, actorID, tenantID, identity.FieldBranchLimit, 99, appaudit.RequestMeta{}))
		before := len(cache.invalidated)

		require.NoError(t, service.ChangePlan(ctx, actorID, tenantID, identity.TenantPlanPro, appaudit.RequestMeta{}))

		effective, err := service.Effective(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, 99, effective.BranchLimit, "override survives the plan change")
		assert.Equal(t, identity.DefaultPlanLimits(identity.TenantPlanPro).UserLimit, effective.UserLimit)
		assert.Greater(t, len(cache.invalidated), before)
		assert.Equal(t, audit.ActionPlanChanged, sink.events[len(sink.events)-1].Action)
	})

	t.Run("clear all overrides reverts every field and invalidates once", func(t *testing.T) {
		require.NoError(t, service.SetOverride(ctx, actorID, tenantID, identity.FieldUserLimit, 1, appaudit.RequestMeta{}))
		require.NoError(t, service.SetOverride(ctx, actorID, tenantID, identity.FieldMultiBranch, true, appaudit.RequestMeta{}))
		before := len(cache.invalidated)

		require.NoError(t, service.ClearAllOverrides(ctx, actorID, tenantID, appaudit.RequestMeta{}))

		sub, err := repo.FindByTenant(ctx, tenantID)
		require.NoError(t, err)
		effective, err := service.Effective(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, identity.DefaultPlanLimits(sub.Plan), effective)
		assert.Equal(t, before+1, len(cache.invalidated))
		last := sink.events[len(sink.events)-1]
		assert.Equal(t, audit.ActionOverrideCleared, last.Action)
		assert.Equal(t, "All limit overrides cleared", last.Description)
	})

	t.Run("clear all overrides on an unknown tenant fails", func(t *testing.T) {
		assert.ErrorIs(t,
			service.ClearAllOverrides(ctx, actorID, uuid.New(), appaudit.RequestMeta{}),
			shared.ErrNotFound)
	})

	t.Run("invalid override value is rejected before persisting", func(t *testing.T) {
		updatesBefore := repo.updates
		err := service.SetOverride(ctx, actorID, tenantID, identity.FieldUserLimit, "ten", appaudit.RequestMeta{})
		require.Error(t, err)
		assert.Equal(t, updatesBefore, repo.updates)
	})

	t.Run("unknown tenant fails", func(t *testing.T) {
		err := service.ChangePlan(ctx, actorID, uuid.New(), identity.TenantPlanFree, appaudit.RequestMeta{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCheckUserLimit(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	tenantID := seedSubscription(t, repo, identity.TenantPlanFree) // user limit 5
	ctx := tenantContext(t, tenantID)

	t.Run("below the cap", func(t *testing.T) {
		service := NewService(repo, &fakeUserRepo{count: 4}, nil, nil, nil)
		assert.NoError(t, service.CheckUserLimit(ctx))
	})

	t.Run("at the cap", func(t *testing.T) {
		service := NewService(repo, &fakeUserRepo{count: 5}, nil, nil, nil)
		assert.ErrorIs(t, service.CheckUserLimit(ctx), shared.ErrLimitExceeded)
	})

	t.Run("override of zero blocks every signup", func(t *testing.T) {
		sub, err := repo.FindByTenant(context.Background(), tenantID)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(identity.FieldUserLimit, 0))
		require.NoError(t, repo.Update(context.Background(), sub))

		service := NewService(repo, &fakeUserRepo{count: 0}, nil, nil, nil)
		assert.ErrorIs(t, service.CheckUserLimit(ctx), shared.ErrLimitExceeded)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		service := NewService(repo, &fakeUserRepo{}, nil, nil, nil)
		assert.ErrorIs(t, service.CheckUserLimit(context.Background()), tenantctx.ErrTenantRequired)
	})
}

func TestRequireFeature(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	tenantID := seedSubscription(t, repo, identity.TenantPlanFree)
	ctx := tenantContext(t, tenantID)
	service := NewService(repo, &fakeUserRepo{}, nil, nil, nil)

	t.Run("disabled flag is forbidden", func(t *testing.T) {
		assert.ErrorIs(t, service.RequireFeature(ctx, identity.FieldMultiBranch), shared.ErrForbidden)
	})

	t.Run("explicit false override beats an enabled plan", func(t *testing.T) {
		proTenant := seedSubscription(t, repo, identity.TenantPlanPro)
		sub, err := repo.FindByTenant(context.Background(), proTenant)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(identity.FieldAPIAccess, false))
		require.NoError(t, repo.Update(context.Background(), sub))

		proCtx := tenantContext(t, proTenant)
		assert.ErrorIs(t, service.RequireFeature(proCtx, identity.FieldAPIAccess), shared.ErrForbidden)
	})

	t.Run("enabled flag passes", func(t *testing.T) {
		sub, err := repo.FindByTenant(context.Background(), tenantID)
		require.NoError(t, err)
		require.NoError(t, sub.SetOverride(identity.FieldMultiBranch, true))
		require.NoError(t, repo.Update(context.Background(), sub))

		assert.NoError(t, service.RequireFeature(ctx, identity.FieldMultiBranch))
	})

	t.Run("numeric field is invalid input", func(t *testing.T) {
		assert.ErrorIs(t, service.RequireFeature(ctx, identity.FieldUserLimit), shared.ErrInvalidInput)
	})
}

var _ auditsink.Sink = (*recordingSink)(nil)
