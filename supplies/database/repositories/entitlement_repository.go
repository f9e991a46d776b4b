package repositories

import (
	"context"
	"fmt"

	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/uptrace/bun"
)

// EntitlementRepository stores which entitlement keys an account holds.
// It satisfies the tier resolver's Entitlements collaborator.
type EntitlementRepository interface {
	Has(ctx context.Context, accountID, entitlement string) (bool, error)
	Grant(ctx context.Context, accountID, entitlement string) error
	Revoke(ctx context.Context, accountID, entitlement string) error
	List(ctx context.Context, accountID string) ([]string, error)
}

type entitlementRepository struct {
	db *bun.DB
}

func NewEntitlementRepository(db *bun.DB) EntitlementRepository {
	return &entitlementRepository{db: db}
}

func (r *entitlementRepository) Has(ctx context.Context, accountID, entitlement string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.EntitlementGrant)(nil)).
		Where("account_id = ? AND entitlement = ?", accountID, entitlement).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check entitlement: %w", err)
	}
	return exists, nil
}

func (r *entitlementRepository) Grant(ctx context.Context, accountID, entitlement string) error {
	grant := &models.EntitlementGrant{
		AccountID:   accountID,
		Entitlement: entitlement,
	}
	_, err := r.db.NewInsert().
		Model(grant).
		On("CONFLICT (account_id, entitlement) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to grant entitlement: %w", err)
	}
	return nil
}

func (r *entitlementRepository) Revoke(ctx context.Context, accountID, entitlement string) error {
	_, err := r.db.NewDelete().
		Model((*models.EntitlementGrant)(nil)).
		Where("account_id = ? AND entitlement = ?", accountID, entitlement).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke entitlement: %w", err)
	}
	return nil
}

func (r *entitlementRepository) List(ctx context.Context, accountID string) ([]string, error) {
	var grants []models.EntitlementGrant
	err := r.db.NewSelect().
		Model(&grants).
		Where("account_id = ?", accountID).
		Order("entitlement ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	keys := make([]string, 0, len(grants))
	for _, g := range grants {
		keys = append(keys, g.Entitlement)
	}
	return keys, nil
}
