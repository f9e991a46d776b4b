package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PendingKind string

const (
	PendingItemBatch PendingKind = "ITEM_BATCH"
	PendingCheque    PendingKind = "CLAIM_TOKEN"
)

// PendingEntry is one queued undeliverable reward. Entries are withdrawn
// oldest first; a partially delivered batch is deleted and re-inserted with
// only the remainder, so the id is not stable across partial withdrawals.
type PendingEntry struct {
	bun.BaseModel `bun:"table:pending_entries,alias:pe"`

	ID        int64       `bun:"id,pk,autoincrement"`
	AccountID string      `bun:"account_id,notnull"`
	Kind      PendingKind `bun:"kind,notnull"`
	Payload   string      `bun:"payload,notnull"`
	CreatedAt time.Time   `bun:"created_at,notnull,default:current_timestamp"`
}
