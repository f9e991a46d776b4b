package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EntitlementGrant marks one account as holding one entitlement key. Tier
// resolution checks these against the tier's required keys.
type EntitlementGrant struct {
	bun.BaseModel `bun:"table:entitlement_grants"`

	AccountID   string    `bun:"account_id,pk"`
	Entitlement string    `bun:"entitlement,pk"`
	GrantedAt   time.Time `bun:"granted_at,notnull,default:current_timestamp"`
}
