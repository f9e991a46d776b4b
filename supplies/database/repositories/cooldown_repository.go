package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/uptrace/bun"
)

// CooldownRepository tracks per (account, pack) ration cooldowns as epoch
// millis. A missing row reads as zero: eligible immediately.
type CooldownRepository interface {
	NextEligibleAt(ctx context.Context, accountID, packID string) (int64, error)
	SetNextEligibleAt(ctx context.Context, accountID, packID string, at int64) error
	Reset(ctx context.Context, accountID, packID string) error
	ResetAll(ctx context.Context, accountID string) error
}

type cooldownRepository struct {
	db *bun.DB
}

func NewCooldownRepository(db *bun.DB) CooldownRepository {
	return &cooldownRepository{db: db}
}

func (r *cooldownRepository) NextEligibleAt(ctx context.Context, accountID, packID string) (int64, error) {
	cooldown := new(models.PackCooldown)
	err := r.db.NewSelect().
		Model(cooldown).
		Where("account_id = ? AND pack_id = ?", accountID, packID).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get pack cooldown: %w", err)
	}

	return cooldown.NextEligibleAt, nil
}

func (r *cooldownRepository) SetNextEligibleAt(ctx context.Context, accountID, packID string, at int64) error {
	cooldown := &models.PackCooldown{
		AccountID:      accountID,
		PackID:         packID,
		NextEligibleAt: at,
	}

	_, err := r.db.NewInsert().
		Model(cooldown).
		On("CONFLICT (account_id, pack_id) DO UPDATE").
		Set("next_eligible_at = EXCLUDED.next_eligible_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set pack cooldown: %w", err)
	}

	return nil
}

func (r *cooldownRepository) Reset(ctx context.Context, accountID, packID string) error {
	_, err := r.db.NewDelete().
		Model((*models.PackCooldown)(nil)).
		Where("account_id = ? AND pack_id = ?", accountID, packID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset pack cooldown: %w", err)
	}

	return nil
}

func (r *cooldownRepository) ResetAll(ctx context.Context, accountID string) error {
	_, err := r.db.NewDelete().
		Model((*models.PackCooldown)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset pack cooldowns: %w", err)
	}

	return nil
}
