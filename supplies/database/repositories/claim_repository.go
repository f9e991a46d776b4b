package repositories

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/uptrace/bun"
)

const claimCacheSize = 4096

// ClaimRepository records daily and weekly claim flags. The TryClaim methods
// are single conditional writes: the composite primary key plus
// ON CONFLICT DO NOTHING makes check-then-set one atomic statement, so two
// concurrent claims for the same key deterministically see one winner.
type ClaimRepository interface {
	HasDailyClaim(ctx context.Context, accountID, dateKey string) (bool, error)
	TryClaimDaily(ctx context.Context, accountID, dateKey string) (bool, error)
	ResetDailyClaim(ctx context.Context, accountID, dateKey string) error

	HasWeeklyClaim(ctx context.Context, accountID, weekKey string) (bool, error)
	TryClaimWeekly(ctx context.Context, accountID, weekKey string) (bool, error)
	ResetWeeklyClaim(ctx context.Context, accountID, weekKey string) error
}

type claimRepository struct {
	db *bun.DB

	// Caches only positive flags. A claimed period never becomes unclaimed
	// except through the admin resets below, which invalidate.
	dailyCache  *lru.Cache
	weeklyCache *lru.Cache
}

func NewClaimRepository(db *bun.DB) ClaimRepository {
	dailyCache, _ := lru.New(claimCacheSize)
	weeklyCache, _ := lru.New(claimCacheSize)
	return &claimRepository{
		db:          db,
		dailyCache:  dailyCache,
		weeklyCache: weeklyCache,
	}
}

func claimCacheKey(accountID, periodKey string) string {
	return accountID + "|" + periodKey
}

func (r *claimRepository) HasDailyClaim(ctx context.Context, accountID, dateKey string) (bool, error) {
	key := claimCacheKey(accountID, dateKey)
	if _, ok := r.dailyCache.Get(key); ok {
		return true, nil
	}

	exists, err := r.db.NewSelect().
		Model((*models.DailyClaim)(nil)).
		Where("account_id = ? AND date_key = ?", accountID, dateKey).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check daily claim: %w", err)
	}

	if exists {
		r.dailyCache.Add(key, struct{}{})
	}
	return exists, nil
}

// TryClaimDaily records the claim and reports whether this call won it.
// false means the day was already claimed; no row is modified.
func (r *claimRepository) TryClaimDaily(ctx context.Context, accountID, dateKey string) (bool, error) {
	claim := &models.DailyClaim{
		AccountID: accountID,
		DateKey:   dateKey,
	}

	result, err := r.db.NewInsert().
		Model(claim).
		On("CONFLICT (account_id, date_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim daily: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}

	r.dailyCache.Add(claimCacheKey(accountID, dateKey), struct{}{})
	return affected > 0, nil
}

func (r *claimRepository) ResetDailyClaim(ctx context.Context, accountID, dateKey string) error {
	_, err := r.db.NewDelete().
		Model((*models.DailyClaim)(nil)).
		Where("account_id = ? AND date_key = ?", accountID, dateKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset daily claim: %w", err)
	}

	r.dailyCache.Remove(claimCacheKey(accountID, dateKey))
	return nil
}

func (r *claimRepository) HasWeeklyClaim(ctx context.Context, accountID, weekKey string) (bool, error) {
	key := claimCacheKey(accountID, weekKey)
	if _, ok := r.weeklyCache.Get(key); ok {
		return true, nil
	}

	exists, err := r.db.NewSelect().
		Model((*models.WeeklyClaim)(nil)).
		Where("account_id = ? AND week_key = ?", accountID, weekKey).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check weekly claim: %w", err)
	}

	if exists {
		r.weeklyCache.Add(key, struct{}{})
	}
	return exists, nil
}

func (r *claimRepository) TryClaimWeekly(ctx context.Context, accountID, weekKey string) (bool, error) {
	claim := &models.WeeklyClaim{
		AccountID: accountID,
		WeekKey:   weekKey,
	}

	result, err := r.db.NewInsert().
		Model(claim).
		On("CONFLICT (account_id, week_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim weekly: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}

	r.weeklyCache.Add(claimCacheKey(accountID, weekKey), struct{}{})
	return affected > 0, nil
}

func (r *claimRepository) ResetWeeklyClaim(ctx context.Context, accountID, weekKey string) error {
	_, err := r.db.NewDelete().
		Model((*models.WeeklyClaim)(nil)).
		Where("account_id = ? AND week_key = ?", accountID, weekKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset weekly claim: %w", err)
	}

	r.weeklyCache.Remove(claimCacheKey(accountID, weekKey))
	return nil
}
