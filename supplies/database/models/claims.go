package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DailyClaim records one claimed daily reward: one row per account per
// calendar day in the configured timezone. Insert-once; the composite
// primary key makes the claim write conditional.
type DailyClaim struct {
	bun.BaseModel `bun:"table:daily_claims,alias:dc"`

	AccountID string    `bun:"account_id,pk"`
	DateKey   string    `bun:"date_key,pk"`
	ClaimedAt time.Time `bun:"claimed_at,notnull,default:current_timestamp"`
}

// WeeklyClaim records one claimed weekly stipend per reset-anchored period.
// Deleting a row (admin reset) makes the period claimable again.
type WeeklyClaim struct {
	bun.BaseModel `bun:"table:weekly_claims,alias:wc"`

	AccountID string    `bun:"account_id,pk"`
	WeekKey   string    `bun:"week_key,pk"`
	ClaimedAt time.Time `bun:"claimed_at,notnull,default:current_timestamp"`
}

// PackCooldown holds the next instant a ration pack becomes claimable for an
// account, in epoch millis. A missing row means eligible immediately.
type PackCooldown struct {
	bun.BaseModel `bun:"table:pack_cooldowns,alias:pc"`

	AccountID      string `bun:"account_id,pk"`
	PackID         string `bun:"pack_id,pk"`
	NextEligibleAt int64  `bun:"next_eligible_at,notnull,default:0"`
}
