package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AccountState carries the per-account streak machine state. Created lazily
// with zero values on first lookup and only ever overwritten, never deleted.
// Invariant: Streak > 0 implies LastDailyDate is set.
type AccountState struct {
	bun.BaseModel `bun:"table:account_states,alias:acs"`

	AccountID     string    `bun:"account_id,pk"`
	Streak        int       `bun:"streak,notnull,default:0"`
	LastDailyDate string    `bun:"last_daily_date,nullzero"`
	LastSeenDate  string    `bun:"last_seen_date,nullzero"`
	LastTier      string    `bun:"last_tier,nullzero"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
