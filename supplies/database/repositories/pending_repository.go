package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/uptrace/bun"
)

// PendingRepository is the overflow queue store. Listing is oldest first so
// withdrawal is fair across entries.
type PendingRepository interface {
	Add(ctx context.Context, accountID string, kind models.PendingKind, payload string) (*models.PendingEntry, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.PendingEntry, error)
	Remove(ctx context.Context, id int64) error
	Count(ctx context.Context, accountID string) (int, error)
}

type pendingRepository struct {
	db *bun.DB
}

func NewPendingRepository(db *bun.DB) PendingRepository {
	return &pendingRepository{db: db}
}

func (r *pendingRepository) Add(ctx context.Context, accountID string, kind models.PendingKind, payload string) (*models.PendingEntry, error) {
	entry := &models.PendingEntry{
		AccountID: accountID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(entry).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to add pending entry: %w", err)
	}

	return entry, nil
}

func (r *pendingRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.PendingEntry, error) {
	var entries []*models.PendingEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}

	return entries, nil
}

func (r *pendingRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.NewDelete().
		Model((*models.PendingEntry)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove pending entry: %w", err)
	}

	return nil
}

func (r *pendingRepository) Count(ctx context.Context, accountID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.PendingEntry)(nil)).
		Where("account_id = ?", accountID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}

	return count, nil
}
