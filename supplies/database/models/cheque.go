package models

import (
	"github.com/uptrace/bun"
)

// Cheque is a transferable claim right for a fixed amount, minted at most
// once per successful weekly claim (or admin grant). Immutable except for
// the one-way redeemed transition.
type Cheque struct {
	bun.BaseModel `bun:"table:cheques,alias:ch"`

	ChequeID   string  `bun:"cheque_id,pk"`
	AccountID  string  `bun:"account_id,notnull"`
	WeekKey    string  `bun:"week_key,notnull"`
	Amount     float64 `bun:"amount,notnull"`
	Redeemed   bool    `bun:"redeemed,notnull,default:false"`
	RedeemedAt int64   `bun:"redeemed_at,notnull,default:0"`
}
