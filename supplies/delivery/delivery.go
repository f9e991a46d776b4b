// Package delivery defines the outbound collaborator contracts: handing
// items or cheque artifacts to an account's storage, and depositing money
// into its wallet. The engines branch on the three-way delivery result
// (full, partial with remainder, no capacity) to decide pending fallback.
package delivery

import (
	"context"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
)

// ChequeArtifact is the physical embodiment of a cheque: the value object
// serialized onto the artifact at the delivery boundary. The domain never
// touches the physical representation beyond this struct.
type ChequeArtifact struct {
	ChequeID  string  `json:"cheque_id"`
	AccountID string  `json:"account_id"`
	WeekKey   string  `json:"week_key"`
	Amount    float64 `json:"amount"`
	Count     int     `json:"count"`
}

// IsCheque reports whether the artifact carries an embedded cheque id.
func (a ChequeArtifact) IsCheque() bool {
	return a.ChequeID != ""
}

// Delivery hands rewards to an account's storage.
//
// DeliverItems returns the items that did not fit; an empty remainder is
// full success, a remainder equal to the input is total failure. Delivery
// never errors for capacity, only for transport/storage trouble.
type Delivery interface {
	FreeSlots(ctx context.Context, accountID string) (int, error)
	DeliverItems(ctx context.Context, accountID string, items []catalog.Item) (remainder []catalog.Item, err error)
	DeliverCheque(ctx context.Context, accountID string, artifact ChequeArtifact) error
}

// Wallet deposits money into an account balance. Fire-and-forget from the
// engines' perspective: failures are logged, never retried.
type Wallet interface {
	Deposit(ctx context.Context, accountID string, amount float64) error
}
