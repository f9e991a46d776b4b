package delivery

import (
	"context"
	"errors"
	"sync"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
)

var ErrNoCapacity = errors.New("no delivery capacity")

const defaultStackSize = 64

// Inventory is a slot-based in-memory Delivery implementation: each slot
// holds one stack of a single material up to the stack size. It backs local
// runs and tests; production deployments plug the game server in behind the
// same interface.
type Inventory struct {
	mu        sync.Mutex
	slots     int
	stackSize int
	contents  map[string][]slot
	cheques   map[string][]ChequeArtifact
}

type slot struct {
	material string
	amount   int
}

func NewInventory(slots int) *Inventory {
	if slots <= 0 {
		slots = 36
	}
	return &Inventory{
		slots:     slots,
		stackSize: defaultStackSize,
		contents:  make(map[string][]slot),
		cheques:   make(map[string][]ChequeArtifact),
	}
}

func (inv *Inventory) used(accountID string) int {
	return len(inv.contents[accountID]) + len(inv.cheques[accountID])
}

func (inv *Inventory) FreeSlots(_ context.Context, accountID string) (int, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	free := inv.slots - inv.used(accountID)
	if free < 0 {
		free = 0
	}
	return free, nil
}

func (inv *Inventory) DeliverItems(_ context.Context, accountID string, items []catalog.Item) ([]catalog.Item, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var remainder []catalog.Item
	for _, item := range items {
		left := item.Amount
		for left > 0 {
			// Top up an existing stack of the same material first.
			topped := false
			slots := inv.contents[accountID]
			for i := range slots {
				if slots[i].material == item.Material && slots[i].amount < inv.stackSize {
					space := inv.stackSize - slots[i].amount
					if space > left {
						space = left
					}
					slots[i].amount += space
					left -= space
					topped = true
					break
				}
			}
			if topped {
				continue
			}

			if inv.used(accountID) >= inv.slots {
				break
			}

			amount := left
			if amount > inv.stackSize {
				amount = inv.stackSize
			}
			inv.contents[accountID] = append(inv.contents[accountID], slot{
				material: item.Material,
				amount:   amount,
			})
			left -= amount
		}

		if left > 0 {
			remainder = append(remainder, catalog.Item{Material: item.Material, Amount: left})
		}
	}

	return remainder, nil
}

func (inv *Inventory) DeliverCheque(_ context.Context, accountID string, artifact ChequeArtifact) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.used(accountID) >= inv.slots {
		return ErrNoCapacity
	}

	inv.cheques[accountID] = append(inv.cheques[accountID], artifact)
	return nil
}

// Items returns the account's stored items, aggregated per material.
func (inv *Inventory) Items(accountID string) []catalog.Item {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	totals := make(map[string]int)
	var order []string
	for _, s := range inv.contents[accountID] {
		if _, seen := totals[s.material]; !seen {
			order = append(order, s.material)
		}
		totals[s.material] += s.amount
	}

	items := make([]catalog.Item, 0, len(order))
	for _, material := range order {
		items = append(items, catalog.Item{Material: material, Amount: totals[material]})
	}
	return items
}

// Cheques returns the account's stored cheque artifacts.
func (inv *Inventory) Cheques(accountID string) []ChequeArtifact {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make([]ChequeArtifact, len(inv.cheques[accountID]))
	copy(out, inv.cheques[accountID])
	return out
}
