package food

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/pending"
	"github.com/nullithstudios/bestsupplies/supplies/reward"
)

type memCooldowns struct {
	next map[string]int64
}

func (m *memCooldowns) NextEligibleAt(_ context.Context, accountID, packID string) (int64, error) {
	return m.next[accountID+"|"+packID], nil
}

func (m *memCooldowns) SetNextEligibleAt(_ context.Context, accountID, packID string, at int64) error {
	m.next[accountID+"|"+packID] = at
	return nil
}

func (m *memCooldowns) Reset(_ context.Context, accountID, packID string) error {
	delete(m.next, accountID+"|"+packID)
	return nil
}

func (m *memCooldowns) ResetAll(_ context.Context, accountID string) error {
	for key := range m.next {
		if len(key) > len(accountID) && key[:len(accountID)+1] == accountID+"|" {
			delete(m.next, key)
		}
	}
	return nil
}

type memPendingRepo struct {
	entries []*models.PendingEntry
	nextID  int64
}

func (m *memPendingRepo) Add(_ context.Context, accountID string, kind models.PendingKind, payload string) (*models.PendingEntry, error) {
	m.nextID++
	entry := &models.PendingEntry{
		ID:        m.nextID,
		AccountID: accountID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memPendingRepo) ListByAccount(_ context.Context, accountID string) ([]*models.PendingEntry, error) {
	var out []*models.PendingEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memPendingRepo) Remove(_ context.Context, id int64) error {
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memPendingRepo) Count(_ context.Context, accountID string) (int, error) {
	n := 0
	for _, e := range m.entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

type memEntitlements struct {
	grants map[string]map[string]bool
}

func (m *memEntitlements) Has(_ context.Context, accountID, entitlement string) (bool, error) {
	return m.grants[accountID][entitlement], nil
}

func testTiers() *catalog.Catalog {
	basic := catalog.Pack{ID: "basic", DisplayName: "Basic Rations",
		Items: []catalog.Item{{Material: "BREAD", Amount: 16}}}
	deluxe := catalog.Pack{ID: "deluxe", DisplayName: "Deluxe Crate",
		Items: []catalog.Item{{Material: "GOLDEN_APPLE", Amount: 4}}}

	tiers := []*catalog.Tier{
		{
			ID:           "default",
			PackCooldown: 24 * time.Hour,
			Packs:        map[string]catalog.Pack{"basic": basic},
		},
		{
			ID:           "vip",
			Entitlements: []string{"supplies.tier.vip"},
			PackCooldown: 6 * time.Hour,
			Packs:        map[string]catalog.Pack{"basic": basic, "deluxe": deluxe},
		},
	}
	return catalog.New(nil, nil, nil, []string{"vip", "default"}, tiers)
}

type testEnv struct {
	svc       *Service
	inventory *delivery.Inventory
	cooldowns *memCooldowns
	now       *time.Time
}

func newTestEnv(t *testing.T, grants map[string]map[string]bool) *testEnv {
	t.Helper()

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	clk := clock.NewAt(clock.Config{Timezone: "UTC", ResetDay: "MONDAY"}, func() time.Time {
		return now
	})

	if grants == nil {
		grants = map[string]map[string]bool{}
	}
	resolver := catalog.NewResolver(testTiers(), &memEntitlements{grants: grants})

	inventory := delivery.NewInventory(0)
	wallet := delivery.NewLogWallet()
	pendingSvc := pending.NewService(&memPendingRepo{}, inventory)
	rewards := reward.NewService(testTiers(), inventory, wallet, pendingSvc)
	cooldowns := &memCooldowns{next: make(map[string]int64)}

	env := &testEnv{
		svc:       NewService(cooldowns, clk, resolver, rewards),
		inventory: inventory,
		cooldowns: cooldowns,
		now:       &now,
	}
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.now = e.now.Add(d)
}

func TestClaimPack_CooldownCycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	outcome, err := env.svc.ClaimPack(ctx, "alice", "basic")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)

	items := env.inventory.Items("alice")
	require.Len(t, items, 1)
	assert.Equal(t, "BREAD", items[0].Material)
	assert.Equal(t, 16, items[0].Amount)

	// Immediately again: full 24h default-tier cooldown.
	outcome, err = env.svc.ClaimPack(ctx, "alice", "basic")
	require.NoError(t, err)
	assert.Equal(t, OnCooldown, outcome.Result)
	assert.InDelta(t, 24*time.Hour, outcome.Remaining, float64(time.Minute))

	// Not quite there yet.
	env.advance(23 * time.Hour)
	outcome, err = env.svc.ClaimPack(ctx, "alice", "basic")
	require.NoError(t, err)
	assert.Equal(t, OnCooldown, outcome.Result)

	env.advance(time.Hour)
	outcome, err = env.svc.ClaimPack(ctx, "alice", "basic")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
}

func TestClaimPack_TierCooldownAndUnlocks(t *testing.T) {
	grants := map[string]map[string]bool{"bob": {"supplies.tier.vip": true}}
	env := newTestEnv(t, grants)
	ctx := context.Background()

	// The deluxe pack is vip-only.
	outcome, err := env.svc.ClaimPack(ctx, "bob", "deluxe")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)

	outcome, err = env.svc.ClaimPack(ctx, "carol", "deluxe")
	require.NoError(t, err)
	assert.Equal(t, NotAvailable, outcome.Result)

	// vip waits only its tier's 6h, not the default 24h.
	env.advance(6 * time.Hour)
	outcome, err = env.svc.ClaimPack(ctx, "bob", "deluxe")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
}

func TestClaimPack_UnknownPack(t *testing.T) {
	env := newTestEnv(t, nil)

	outcome, err := env.svc.ClaimPack(context.Background(), "dave", "nonsense")
	require.NoError(t, err)
	assert.Equal(t, NotAvailable, outcome.Result)
}

func TestPackStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	status, remaining, err := env.svc.PackStatus(ctx, "erin", "basic")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Zero(t, remaining)

	_, err = env.svc.ClaimPack(ctx, "erin", "basic")
	require.NoError(t, err)

	status, remaining, err = env.svc.PackStatus(ctx, "erin", "basic")
	require.NoError(t, err)
	assert.Equal(t, StatusCooldown, status)
	assert.Greater(t, remaining, time.Duration(0))

	status, _, err = env.svc.PackStatus(ctx, "erin", "deluxe")
	require.NoError(t, err)
	assert.Equal(t, StatusNotAvailable, status)
}

func TestResetCooldown(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.ClaimPack(ctx, "frank", "basic")
	require.NoError(t, err)

	require.NoError(t, env.svc.ResetCooldown(ctx, "frank", "basic"))

	outcome, err := env.svc.ClaimPack(ctx, "frank", "basic")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)

	require.NoError(t, env.svc.ResetAllCooldowns(ctx, "frank"))
	available, err := env.svc.IsPackAvailable(ctx, "frank", "basic")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestAvailablePacks_SortedPerTier(t *testing.T) {
	grants := map[string]map[string]bool{"gina": {"supplies.tier.vip": true}}
	env := newTestEnv(t, grants)
	ctx := context.Background()

	packs, err := env.svc.AvailablePacks(ctx, "gina")
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "basic", packs[0].ID)
	assert.Equal(t, "deluxe", packs[1].ID)

	packs, err = env.svc.AvailablePacks(ctx, "hank")
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "basic", packs[0].ID)
}
