package catalog

import (
	"context"
	"log/slog"
)

// Entitlements answers whether an account holds an entitlement key. It is an
// external collaborator (a permission system, a subscription backend).
type Entitlements interface {
	Has(ctx context.Context, accountID string, entitlement string) (bool, error)
}

// Resolver detects the highest-priority tier whose entitlements an account
// holds, falling back to the default tier.
type Resolver struct {
	catalog      *Catalog
	entitlements Entitlements
}

func NewResolver(catalog *Catalog, entitlements Entitlements) *Resolver {
	return &Resolver{catalog: catalog, entitlements: entitlements}
}

// Resolve walks the priority list highest first and returns the first tier
// the account is entitled to. Tiers without entitlement keys are skipped in
// the walk and only reachable as the "default" fallback. Returns nil when no
// tier matches and no default exists.
func (r *Resolver) Resolve(ctx context.Context, accountID string) (*Tier, error) {
	for _, tierID := range r.catalog.TierPriority() {
		tier := r.catalog.Tier(tierID)
		if tier == nil {
			continue
		}
		if !tier.HasEntitlements() {
			continue
		}

		for _, entitlement := range tier.Entitlements {
			if entitlement == "" {
				continue
			}
			ok, err := r.entitlements.Has(ctx, accountID, entitlement)
			if err != nil {
				return nil, err
			}
			if ok {
				slog.Debug("Tier resolved",
					slog.String("type", "sys"),
					slog.String("account_id", accountID),
					slog.String("tier", tierID))
				return tier, nil
			}
		}
	}

	if def := r.catalog.Tier("default"); def != nil {
		return def, nil
	}

	// No default configured: fall back to the lowest-priority tier.
	priority := r.catalog.TierPriority()
	if len(priority) > 0 {
		return r.catalog.Tier(priority[len(priority)-1]), nil
	}

	return nil, nil
}

// ResolveID returns the resolved tier id or "default".
func (r *Resolver) ResolveID(ctx context.Context, accountID string) (string, error) {
	tier, err := r.Resolve(ctx, accountID)
	if err != nil {
		return "", err
	}
	if tier == nil {
		return "default", nil
	}
	return tier.ID, nil
}
