package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/uptrace/bun"
)

type AccountRepository interface {
	Get(ctx context.Context, accountID string) (*models.AccountState, error)
	Save(ctx context.Context, state *models.AccountState) error
}

type accountRepository struct {
	db *bun.DB
}

func NewAccountRepository(db *bun.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Get returns the account state, creating the zero-value default in memory
// when no row exists yet. The default is not persisted until the first Save.
func (r *accountRepository) Get(ctx context.Context, accountID string) (*models.AccountState, error) {
	state := new(models.AccountState)
	err := r.db.NewSelect().
		Model(state).
		Where("account_id = ?", accountID).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return &models.AccountState{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account state: %w", err)
	}

	return state, nil
}

func (r *accountRepository) Save(ctx context.Context, state *models.AccountState) error {
	state.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(state).
		On("CONFLICT (account_id) DO UPDATE").
		Set("streak = EXCLUDED.streak").
		Set("last_daily_date = EXCLUDED.last_daily_date").
		Set("last_seen_date = EXCLUDED.last_seen_date").
		Set("last_tier = EXCLUDED.last_tier").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save account state: %w", err)
	}

	return nil
}
