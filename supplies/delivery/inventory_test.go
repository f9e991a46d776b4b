package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
)

func TestDeliverItems_StackingAndRemainder(t *testing.T) {
	inv := NewInventory(2)
	ctx := context.Background()

	// 100 units of one material: one full stack plus 36 in a second slot.
	remainder, err := inv.DeliverItems(ctx, "alice", []catalog.Item{{Material: "BREAD", Amount: 100}})
	require.NoError(t, err)
	assert.Empty(t, remainder)

	free, err := inv.FreeSlots(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, free)

	// The second slot still has stack headroom: top-up before remainder.
	remainder, err = inv.DeliverItems(ctx, "alice", []catalog.Item{{Material: "BREAD", Amount: 30}})
	require.NoError(t, err)
	assert.Empty(t, remainder)

	// Now 128/128 held; anything more comes straight back.
	remainder, err = inv.DeliverItems(ctx, "alice", []catalog.Item{{Material: "BREAD", Amount: 5}})
	require.NoError(t, err)
	require.Len(t, remainder, 1)
	assert.Equal(t, 5, remainder[0].Amount)

	items := inv.Items("alice")
	require.Len(t, items, 1)
	assert.Equal(t, 128, items[0].Amount)
}

func TestDeliverItems_DifferentMaterialsNeedOwnSlots(t *testing.T) {
	inv := NewInventory(1)
	ctx := context.Background()

	remainder, err := inv.DeliverItems(ctx, "bob", []catalog.Item{
		{Material: "BREAD", Amount: 10},
		{Material: "STONE", Amount: 10},
	})
	require.NoError(t, err)
	require.Len(t, remainder, 1)
	assert.Equal(t, "STONE", remainder[0].Material)
	assert.Equal(t, 10, remainder[0].Amount)
}

func TestDeliverCheque_CapacityAndAccounting(t *testing.T) {
	inv := NewInventory(1)
	ctx := context.Background()

	artifact := ChequeArtifact{ChequeID: "c-1", AccountID: "carol", Amount: 500, Count: 1}
	require.NoError(t, inv.DeliverCheque(ctx, "carol", artifact))

	// Cheques occupy slots like items do.
	free, err := inv.FreeSlots(ctx, "carol")
	require.NoError(t, err)
	assert.Zero(t, free)

	err = inv.DeliverCheque(ctx, "carol", ChequeArtifact{ChequeID: "c-2", Count: 1})
	assert.ErrorIs(t, err, ErrNoCapacity)

	held := inv.Cheques("carol")
	require.Len(t, held, 1)
	assert.Equal(t, artifact, held[0])
}

func TestChequeArtifact_IsCheque(t *testing.T) {
	assert.True(t, ChequeArtifact{ChequeID: "x"}.IsCheque())
	assert.False(t, ChequeArtifact{}.IsCheque())
}

func TestAccountsAreIsolated(t *testing.T) {
	inv := NewInventory(1)
	ctx := context.Background()

	_, err := inv.DeliverItems(ctx, "dave", []catalog.Item{{Material: "BREAD", Amount: 64}})
	require.NoError(t, err)

	free, err := inv.FreeSlots(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, 1, free)
	assert.Empty(t, inv.Items("erin"))
}
