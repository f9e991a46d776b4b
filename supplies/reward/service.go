// Package reward applies streak bonuses and milestone extras and routes the
// resulting payout through the wallet and delivery collaborators, falling
// back to the pending queue for anything that does not fit.
package reward

import (
	"context"
	"log/slog"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/pending"
)

type Service struct {
	catalog  *catalog.Catalog
	delivery delivery.Delivery
	wallet   delivery.Wallet
	pending  *pending.Service
}

func NewService(cat *catalog.Catalog, del delivery.Delivery, wallet delivery.Wallet, pend *pending.Service) *Service {
	return &Service{
		catalog:  cat,
		delivery: del,
		wallet:   wallet,
		pending:  pend,
	}
}

// GrantDaily pays out a daily reward at the given streak: money is boosted
// by the streak multiplier, the item list gains the streak's extra items,
// and an exact-match milestone grants its additive bonus on top.
func (s *Service) GrantDaily(ctx context.Context, accountID string, reward *catalog.DailyReward, streak int) error {
	if reward == nil {
		return nil
	}

	multiplier := s.catalog.BonusMultiplier(streak)
	extraItems := s.catalog.BonusItems(streak)

	if reward.HasMoney() {
		total := reward.Money + reward.Money*multiplier
		if err := s.wallet.Deposit(ctx, accountID, total); err != nil {
			slog.Warn("Wallet deposit failed",
				slog.String("type", "sys"),
				slog.String("account_id", accountID),
				slog.Float64("amount", total),
				slog.Any("error", err))
		}
	}

	if reward.HasItems() {
		items := make([]catalog.Item, len(reward.Items))
		copy(items, reward.Items)

		// Extra copies cycle through the reward's items, one unit each.
		for i := 0; i < extraItems && len(reward.Items) > 0; i++ {
			base := reward.Items[i%len(reward.Items)]
			items = append(items, catalog.Item{Material: base.Material, Amount: 1})
		}

		if _, err := s.DeliverOrPending(ctx, accountID, items); err != nil {
			return err
		}
	}

	if milestone := s.catalog.Milestone(streak); milestone != nil {
		if err := s.grantMilestone(ctx, accountID, milestone); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) grantMilestone(ctx context.Context, accountID string, milestone *catalog.Milestone) error {
	slog.Info("Granting streak milestone",
		slog.String("type", "sys"),
		slog.String("account_id", accountID),
		slog.Int("streak", milestone.Streak))

	if milestone.HasMoney() {
		if err := s.wallet.Deposit(ctx, accountID, milestone.Money); err != nil {
			slog.Warn("Milestone deposit failed",
				slog.String("type", "sys"),
				slog.String("account_id", accountID),
				slog.Any("error", err))
		}
	}

	if milestone.HasItems() {
		if _, err := s.DeliverOrPending(ctx, accountID, milestone.Items); err != nil {
			return err
		}
	}

	return nil
}

// DeliverOrPending hands items over and queues whatever does not fit,
// reporting whether anything was buffered. No reward is ever dropped for
// lack of capacity.
func (s *Service) DeliverOrPending(ctx context.Context, accountID string, items []catalog.Item) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}

	remainder, err := s.delivery.DeliverItems(ctx, accountID, items)
	if err != nil {
		// Delivery transport failed outright: buffer the whole batch.
		slog.Warn("Delivery failed, buffering full batch",
			slog.String("type", "sys"),
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return true, s.pending.SaveItems(ctx, accountID, items)
	}

	if len(remainder) > 0 {
		return true, s.pending.SaveItems(ctx, accountID, remainder)
	}

	return false, nil
}
