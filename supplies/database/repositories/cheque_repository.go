package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrChequeNotFound        = errors.New("cheque not found")
	ErrChequeAlreadyRedeemed = errors.New("cheque already redeemed")
)

type ChequeRepository interface {
	Save(ctx context.Context, cheque *models.Cheque) error
	Get(ctx context.Context, chequeID string) (*models.Cheque, error)
	Redeem(ctx context.Context, chequeID string, redeemedAt int64) error
}

type chequeRepository struct {
	db *bun.DB
}

func NewChequeRepository(db *bun.DB) ChequeRepository {
	return &chequeRepository{db: db}
}

func (r *chequeRepository) Save(ctx context.Context, cheque *models.Cheque) error {
	_, err := r.db.NewInsert().
		Model(cheque).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save cheque: %w", err)
	}

	return nil
}

func (r *chequeRepository) Get(ctx context.Context, chequeID string) (*models.Cheque, error) {
	cheque := new(models.Cheque)
	err := r.db.NewSelect().
		Model(cheque).
		Where("cheque_id = ?", chequeID).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChequeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cheque: %w", err)
	}

	return cheque, nil
}

// Redeem flips the redeemed flag in one conditional UPDATE. The WHERE
// redeemed = false guard means two racing redemptions of the same cheque id
// resolve deterministically: one wins, the other gets
// ErrChequeAlreadyRedeemed.
func (r *chequeRepository) Redeem(ctx context.Context, chequeID string, redeemedAt int64) error {
	result, err := r.db.NewUpdate().
		Model((*models.Cheque)(nil)).
		Set("redeemed = true").
		Set("redeemed_at = ?", redeemedAt).
		Where("cheque_id = ? AND redeemed = false", chequeID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to redeem cheque: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read redeem result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: either unknown id or already redeemed.
	exists, err := r.db.NewSelect().
		Model((*models.Cheque)(nil)).
		Where("cheque_id = ?", chequeID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check cheque: %w", err)
	}
	if !exists {
		return ErrChequeNotFound
	}
	return ErrChequeAlreadyRedeemed
}
