// Package bank is the weekly stipend engine: one idempotent claim per
// reset-anchored period, paid either as a direct wallet deposit or as a
// transferable cheque redeemable exactly once.
package bank

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/nullithstudios/bestsupplies/supplies/database/repositories"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/locks"
	"github.com/nullithstudios/bestsupplies/supplies/pending"
)

type ClaimResult int

const (
	ClaimSuccess ClaimResult = iota
	AlreadyClaimed
	NoTier
	NoReward
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimSuccess:
		return "SUCCESS"
	case AlreadyClaimed:
		return "ALREADY_CLAIMED"
	case NoTier:
		return "NO_RANK"
	case NoReward:
		return "NO_REWARD"
	}
	return "UNKNOWN"
}

type RedeemResult int

const (
	RedeemSuccess RedeemResult = iota
	NotACheque
	Invalid
	NotOwner
	AlreadyRedeemed
)

func (r RedeemResult) String() string {
	switch r {
	case RedeemSuccess:
		return "SUCCESS"
	case NotACheque:
		return "NOT_A_CHEQUE"
	case Invalid:
		return "INVALID"
	case NotOwner:
		return "NOT_OWNER"
	case AlreadyRedeemed:
		return "ALREADY_REDEEMED"
	}
	return "UNKNOWN"
}

// ClaimOutcome reports one weekly claim: the amount entitled, the period it
// covers, the minted cheque id when cheques are in use, and whether the
// artifact had to be buffered in the pending queue.
type ClaimOutcome struct {
	Result   ClaimResult
	Amount   float64
	WeekKey  string
	ChequeID string
	Buffered bool
}

type RedeemOutcome struct {
	Result RedeemResult
	Amount float64
}

type Service struct {
	accounts  repositories.AccountRepository
	claims    repositories.ClaimRepository
	cheques   repositories.ChequeRepository
	clock     *clock.Service
	resolver  *catalog.Resolver
	delivery  delivery.Delivery
	wallet    delivery.Wallet
	pending   *pending.Service
	locks     *locks.KeyedMutex
	useCheque bool
}

func NewService(
	accounts repositories.AccountRepository,
	claims repositories.ClaimRepository,
	cheques repositories.ChequeRepository,
	clk *clock.Service,
	resolver *catalog.Resolver,
	del delivery.Delivery,
	wallet delivery.Wallet,
	pend *pending.Service,
	useCheque bool,
) *Service {
	return &Service{
		accounts:  accounts,
		claims:    claims,
		cheques:   cheques,
		clock:     clk,
		resolver:  resolver,
		delivery:  del,
		wallet:    wallet,
		pending:   pend,
		locks:     locks.NewKeyedMutex(),
		useCheque: useCheque,
	}
}

// HasClaimedWeekly reports whether the current period is already claimed.
func (s *Service) HasClaimedWeekly(ctx context.Context, accountID string) (bool, error) {
	return s.claims.HasWeeklyClaim(ctx, accountID, s.clock.WeekPeriodKey())
}

// WeeklyAmount returns the stipend the account's tier entitles it to.
func (s *Service) WeeklyAmount(ctx context.Context, accountID string) (float64, error) {
	tier, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if tier == nil {
		return 0, nil
	}
	return tier.WeeklyAmount, nil
}

// TimeUntilReset is the cosmetic countdown to the next weekly reset.
func (s *Service) TimeUntilReset() time.Duration {
	return s.clock.TimeUntilWeeklyReset()
}

// ClaimWeekly claims the current period's stipend. The claim record is
// committed before any delivery attempt, so delivery trouble can never
// re-enable the claim; an undeliverable cheque goes to the pending queue.
func (s *Service) ClaimWeekly(ctx context.Context, accountID string) (ClaimOutcome, error) {
	unlock := s.locks.Lock("weekly:" + accountID)
	defer unlock()

	weekKey := s.clock.WeekPeriodKey()

	claimed, err := s.claims.HasWeeklyClaim(ctx, accountID, weekKey)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if claimed {
		return ClaimOutcome{Result: AlreadyClaimed, WeekKey: weekKey}, nil
	}

	tier, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if tier == nil {
		return ClaimOutcome{Result: NoTier, WeekKey: weekKey}, nil
	}

	amount := tier.WeeklyAmount
	if amount <= 0 {
		return ClaimOutcome{Result: NoReward, WeekKey: weekKey}, nil
	}

	won, err := s.claims.TryClaimWeekly(ctx, accountID, weekKey)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if !won {
		return ClaimOutcome{Result: AlreadyClaimed, WeekKey: weekKey}, nil
	}

	s.rememberTier(ctx, accountID, tier.ID)

	outcome := ClaimOutcome{
		Result:  ClaimSuccess,
		Amount:  amount,
		WeekKey: weekKey,
	}

	if !s.useCheque {
		if err := s.wallet.Deposit(ctx, accountID, amount); err != nil {
			// The claim is committed; the missing deposit is the one
			// loud-log case rather than a rollback.
			slog.Error("Weekly deposit failed after claim commit",
				slog.String("type", "error"),
				slog.String("account_id", accountID),
				slog.Float64("amount", amount),
				slog.Any("error", err))
			return outcome, err
		}

		slog.Info("Weekly stipend deposited",
			slog.String("type", "cmd"),
			slog.String("op", "claim-weekly"),
			slog.String("account_id", accountID),
			slog.Float64("amount", amount))
		return outcome, nil
	}

	chequeID, buffered, err := s.mintAndDeliver(ctx, accountID, weekKey, amount)
	if err != nil {
		return outcome, err
	}
	outcome.ChequeID = chequeID
	outcome.Buffered = buffered

	slog.Info("Weekly cheque claimed",
		slog.String("type", "cmd"),
		slog.String("op", "claim-weekly"),
		slog.String("account_id", accountID),
		slog.String("cheque_id", chequeID),
		slog.Float64("amount", amount),
		slog.Bool("buffered", buffered))

	return outcome, nil
}

// mintAndDeliver saves the cheque record, then hands the artifact over or
// buffers it. Returns the cheque id and whether pending fallback happened.
func (s *Service) mintAndDeliver(ctx context.Context, accountID, weekKey string, amount float64) (string, bool, error) {
	chequeID := uuid.NewString()

	cheque := &models.Cheque{
		ChequeID:  chequeID,
		AccountID: accountID,
		WeekKey:   weekKey,
		Amount:    amount,
	}
	if err := s.cheques.Save(ctx, cheque); err != nil {
		return "", false, err
	}

	artifact := delivery.ChequeArtifact{
		ChequeID:  chequeID,
		AccountID: accountID,
		WeekKey:   weekKey,
		Amount:    amount,
		Count:     1,
	}

	if err := s.delivery.DeliverCheque(ctx, accountID, artifact); err != nil {
		if saveErr := s.pending.SaveCheque(ctx, accountID, artifact); saveErr != nil {
			// The cheque row exists and is redeemable; only its physical
			// artifact is in limbo. Log loudly, never drop silently.
			slog.Error("Cheque undeliverable and pending save failed",
				slog.String("type", "error"),
				slog.String("account_id", accountID),
				slog.String("cheque_id", chequeID),
				slog.Any("error", saveErr))
			return chequeID, false, saveErr
		}
		return chequeID, true, nil
	}

	return chequeID, false, nil
}

func (s *Service) rememberTier(ctx context.Context, accountID, tierID string) {
	state, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		slog.Warn("Failed to remember tier",
			slog.String("type", "db"),
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return
	}
	if state.LastTier == tierID {
		return
	}
	state.LastTier = tierID
	if err := s.accounts.Save(ctx, state); err != nil {
		slog.Warn("Failed to remember tier",
			slog.String("type", "db"),
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}
}

// RedeemCheque redeems the cheque embodied by an artifact for the redeeming
// account. The redeemed transition is one-way and serialized per cheque id;
// the caller decrements the physical artifact count by one on SUCCESS.
func (s *Service) RedeemCheque(ctx context.Context, accountID string, artifact delivery.ChequeArtifact) (RedeemOutcome, error) {
	if !artifact.IsCheque() {
		return RedeemOutcome{Result: NotACheque}, nil
	}

	// Ownership rejection happens before any state mutation.
	if artifact.AccountID != "" && artifact.AccountID != accountID {
		return RedeemOutcome{Result: NotOwner}, nil
	}

	unlock := s.locks.Lock("cheque:" + artifact.ChequeID)
	defer unlock()

	cheque, err := s.cheques.Get(ctx, artifact.ChequeID)
	if errors.Is(err, repositories.ErrChequeNotFound) {
		return RedeemOutcome{Result: Invalid}, nil
	}
	if err != nil {
		return RedeemOutcome{}, err
	}

	err = s.cheques.Redeem(ctx, cheque.ChequeID, s.clock.Now().UnixMilli())
	if errors.Is(err, repositories.ErrChequeAlreadyRedeemed) {
		return RedeemOutcome{Result: AlreadyRedeemed}, nil
	}
	if errors.Is(err, repositories.ErrChequeNotFound) {
		return RedeemOutcome{Result: Invalid}, nil
	}
	if err != nil {
		return RedeemOutcome{}, err
	}

	if err := s.wallet.Deposit(ctx, accountID, cheque.Amount); err != nil {
		slog.Error("Deposit failed after cheque redeem commit",
			slog.String("type", "error"),
			slog.String("account_id", accountID),
			slog.String("cheque_id", cheque.ChequeID),
			slog.Float64("amount", cheque.Amount),
			slog.Any("error", err))
		return RedeemOutcome{Result: RedeemSuccess, Amount: cheque.Amount}, err
	}

	slog.Info("Cheque redeemed",
		slog.String("type", "cmd"),
		slog.String("op", "redeem-cheque"),
		slog.String("account_id", accountID),
		slog.String("cheque_id", cheque.ChequeID),
		slog.Float64("amount", cheque.Amount))

	return RedeemOutcome{Result: RedeemSuccess, Amount: cheque.Amount}, nil
}

// ResetWeekly clears the current period's claim flag (admin).
func (s *Service) ResetWeekly(ctx context.Context, accountID string) error {
	return s.claims.ResetWeeklyClaim(ctx, accountID, s.clock.WeekPeriodKey())
}

// GrantCheque mints a cheque outside the weekly claim flow (admin), with the
// same deliver-or-pending routing.
func (s *Service) GrantCheque(ctx context.Context, accountID string, amount float64) (ClaimOutcome, error) {
	if amount <= 0 {
		return ClaimOutcome{Result: NoReward}, nil
	}

	weekKey := s.clock.WeekPeriodKey()
	chequeID, buffered, err := s.mintAndDeliver(ctx, accountID, weekKey, amount)
	if err != nil {
		return ClaimOutcome{}, err
	}

	slog.Info("Cheque granted",
		slog.String("type", "cmd"),
		slog.String("op", "grant-cheque"),
		slog.String("account_id", accountID),
		slog.String("cheque_id", chequeID),
		slog.Float64("amount", amount))

	return ClaimOutcome{
		Result:   ClaimSuccess,
		Amount:   amount,
		WeekKey:  weekKey,
		ChequeID: chequeID,
		Buffered: buffered,
	}, nil
}
