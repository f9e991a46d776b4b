package bank

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/nullithstudios/bestsupplies/supplies/database/repositories"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/pending"
)

type memAccounts struct {
	states map[string]*models.AccountState
}

func (m *memAccounts) Get(_ context.Context, accountID string) (*models.AccountState, error) {
	if state, ok := m.states[accountID]; ok {
		copied := *state
		return &copied, nil
	}
	return &models.AccountState{AccountID: accountID}, nil
}

func (m *memAccounts) Save(_ context.Context, state *models.AccountState) error {
	copied := *state
	m.states[state.AccountID] = &copied
	return nil
}

type memClaims struct {
	weekly map[string]bool
}

func (m *memClaims) HasDailyClaim(_ context.Context, _, _ string) (bool, error) { return false, nil }
func (m *memClaims) TryClaimDaily(_ context.Context, _, _ string) (bool, error) { return true, nil }
func (m *memClaims) ResetDailyClaim(_ context.Context, _, _ string) error       { return nil }

func (m *memClaims) HasWeeklyClaim(_ context.Context, accountID, weekKey string) (bool, error) {
	return m.weekly[accountID+"|"+weekKey], nil
}

func (m *memClaims) TryClaimWeekly(_ context.Context, accountID, weekKey string) (bool, error) {
	key := accountID + "|" + weekKey
	if m.weekly[key] {
		return false, nil
	}
	m.weekly[key] = true
	return true, nil
}

func (m *memClaims) ResetWeeklyClaim(_ context.Context, accountID, weekKey string) error {
	delete(m.weekly, accountID+"|"+weekKey)
	return nil
}

type memCheques struct {
	cheques map[string]*models.Cheque
}

func (m *memCheques) Save(_ context.Context, cheque *models.Cheque) error {
	copied := *cheque
	m.cheques[cheque.ChequeID] = &copied
	return nil
}

func (m *memCheques) Get(_ context.Context, chequeID string) (*models.Cheque, error) {
	cheque, ok := m.cheques[chequeID]
	if !ok {
		return nil, repositories.ErrChequeNotFound
	}
	copied := *cheque
	return &copied, nil
}

func (m *memCheques) Redeem(_ context.Context, chequeID string, redeemedAt int64) error {
	cheque, ok := m.cheques[chequeID]
	if !ok {
		return repositories.ErrChequeNotFound
	}
	if cheque.Redeemed {
		return repositories.ErrChequeAlreadyRedeemed
	}
	cheque.Redeemed = true
	cheque.RedeemedAt = redeemedAt
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
	tiers := []*catalog.Tier{
		{ID: "default", DisplayName: "Citizen", WeeklyAmount: 500},
		{ID: "vip", DisplayName: "VIP", Entitlements: []string{"supplies.tier.vip"}, WeeklyAmount: 4000},
		{ID: "broke", DisplayName: "Broke", Entitlements: []string{"supplies.tier.broke"}, WeeklyAmount: 0},
	}
	return catalog.New(nil, nil, nil, []string{"vip", "broke", "default"}, tiers)
}

type testEnv struct {
	svc       *Service
	inventory *delivery.Inventory
	wallet    *delivery.LogWallet
	pending   *pending.Service
	cheques   *memCheques
	claims    *memClaims
}

func newTestEnv(t *testing.T, slots int, useCheque bool, grants map[string]map[string]bool) *testEnv {
	t.Helper()

	clk := clock.NewAt(clock.Config{Timezone: "UTC", ResetDay: "MONDAY"}, func() time.Time {
		return time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	})

	if grants == nil {
		grants = map[string]map[string]bool{}
	}
	resolver := catalog.NewResolver(testTiers(), &memEntitlements{grants: grants})

	inventory := delivery.NewInventory(slots)
	wallet := delivery.NewLogWallet()
	pendingSvc := pending.NewService(&memPendingRepo{}, inventory)
	claims := &memClaims{weekly: make(map[string]bool)}
	cheques := &memCheques{cheques: make(map[string]*models.Cheque)}
	accounts := &memAccounts{states: make(map[string]*models.AccountState)}

	return &testEnv{
		svc: NewService(accounts, claims, cheques, clk, resolver,
			inventory, wallet, pendingSvc, useCheque),
		inventory: inventory,
		wallet:    wallet,
		pending:   pendingSvc,
		cheques:   cheques,
		claims:    claims,
	}
}

func TestClaimWeekly_ChequeDelivered(t *testing.T) {
	grants := map[string]map[string]bool{"alice": {"supplies.tier.vip": true}}
	env := newTestEnv(t, 0, true, grants)
	ctx := context.Background()

	outcome, err := env.svc.ClaimWeekly(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
	assert.Equal(t, 4000.0, outcome.Amount)
	assert.Equal(t, "2025-06-02_00-00", outcome.WeekKey)
	assert.NotEmpty(t, outcome.ChequeID)
	assert.False(t, outcome.Buffered)

	held := env.inventory.Cheques("alice")
	require.Len(t, held, 1)
	assert.Equal(t, outcome.ChequeID, held[0].ChequeID)
	assert.Equal(t, "alice", held[0].AccountID)

	claimed, err := env.svc.HasClaimedWeekly(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, claimed)

	again, err := env.svc.ClaimWeekly(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, AlreadyClaimed, again.Result)
}

func TestClaimWeekly_DirectDeposit(t *testing.T) {
	env := newTestEnv(t, 0, false, nil)
	ctx := context.Background()

	outcome, err := env.svc.ClaimWeekly(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
	assert.Equal(t, 500.0, outcome.Amount)
	assert.Empty(t, outcome.ChequeID)
	assert.Equal(t, 500.0, env.wallet.Balance("bob"))
}

func TestClaimWeekly_NoReward(t *testing.T) {
	grants := map[string]map[string]bool{"carol": {"supplies.tier.broke": true}}
	env := newTestEnv(t, 0, true, grants)

	outcome, err := env.svc.ClaimWeekly(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, NoReward, outcome.Result)

	// A zero payout must not burn the period's claim.
	claimed, err := env.svc.HasClaimedWeekly(context.Background(), "carol")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestClaimWeekly_FullStorageGoesPending(t *testing.T) {
	env := newTestEnv(t, 1, true, nil)
	ctx := context.Background()

	// Occupy the single slot.
	_, err := env.inventory.DeliverItems(ctx, "dave", []catalog.Item{{Material: "BREAD", Amount: 1}})
	require.NoError(t, err)

	outcome, err := env.svc.ClaimWeekly(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
	assert.True(t, outcome.Buffered)
	assert.Empty(t, env.inventory.Cheques("dave"))

	count, err := env.pending.Count(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedeemCheque(t *testing.T) {
	env := newTestEnv(t, 0, true, nil)
	ctx := context.Background()

	claim, err := env.svc.ClaimWeekly(ctx, "erin")
	require.NoError(t, err)
	require.Equal(t, ClaimSuccess, claim.Result)

	artifact := env.inventory.Cheques("erin")[0]

	outcome, err := env.svc.RedeemCheque(ctx, "erin", artifact)
	require.NoError(t, err)
	assert.Equal(t, RedeemSuccess, outcome.Result)
	assert.Equal(t, 500.0, outcome.Amount)
	assert.Equal(t, 500.0, env.wallet.Balance("erin"))

	// Redeeming the same cheque again is rejected, balance untouched.
	outcome, err = env.svc.RedeemCheque(ctx, "erin", artifact)
	require.NoError(t, err)
	assert.Equal(t, AlreadyRedeemed, outcome.Result)
	assert.Equal(t, 500.0, env.wallet.Balance("erin"))
}

func TestRedeemCheque_Rejections(t *testing.T) {
	env := newTestEnv(t, 0, true, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		account  string
		artifact delivery.ChequeArtifact
		want     RedeemResult
	}{
		{
			name:     "no embedded cheque id",
			account:  "frank",
			artifact: delivery.ChequeArtifact{},
			want:     NotACheque,
		},
		{
			name:     "someone else's cheque",
			account:  "frank",
			artifact: delivery.ChequeArtifact{ChequeID: "whatever", AccountID: "gina", Count: 1},
			want:     NotOwner,
		},
		{
			name:     "unknown cheque id",
			account:  "frank",
			artifact: delivery.ChequeArtifact{ChequeID: "nonexistent", AccountID: "frank", Count: 1},
			want:     Invalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := env.svc.RedeemCheque(ctx, tt.account, tt.artifact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome.Result)
			assert.Equal(t, 0.0, env.wallet.Balance(tt.account))
		})
	}
}

func TestResetWeekly_ReenablesClaim(t *testing.T) {
	env := newTestEnv(t, 0, true, nil)
	ctx := context.Background()

	_, err := env.svc.ClaimWeekly(ctx, "hank")
	require.NoError(t, err)

	require.NoError(t, env.svc.ResetWeekly(ctx, "hank"))

	outcome, err := env.svc.ClaimWeekly(ctx, "hank")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
}

func TestGrantCheque(t *testing.T) {
	env := newTestEnv(t, 0, true, nil)
	ctx := context.Background()

	outcome, err := env.svc.GrantCheque(ctx, "iris", 1234)
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome.Result)
	assert.NotEmpty(t, outcome.ChequeID)

	// A granted cheque never burns the weekly claim.
	claimed, err := env.svc.HasClaimedWeekly(ctx, "iris")
	require.NoError(t, err)
	assert.False(t, claimed)

	redeemed, err := env.svc.RedeemCheque(ctx, "iris", env.inventory.Cheques("iris")[0])
	require.NoError(t, err)
	assert.Equal(t, RedeemSuccess, redeemed.Result)
	assert.Equal(t, 1234.0, env.wallet.Balance("iris"))

	granted, err := env.svc.GrantCheque(ctx, "iris", 0)
	require.NoError(t, err)
	assert.Equal(t, NoReward, granted.Result)
}
