// Package daily is the streak state machine: at most one claim per calendar
// day in the configured timezone, a streak that grows on consecutive days
// and breaks after any full missed day, and a passive check-and-repair step
// that zeroes a broken streak on observation.
package daily

import (
	"context"
	"log/slog"
	"time"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/database/repositories"
	"github.com/nullithstudios/bestsupplies/supplies/locks"
	"github.com/nullithstudios/bestsupplies/supplies/reward"
)

type ClaimResult int

const (
	ClaimSuccess ClaimResult = iota
	AlreadyClaimed
	NoReward
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimSuccess:
		return "SUCCESS"
	case AlreadyClaimed:
		return "ALREADY_CLAIMED"
	case NoReward:
		return "NO_REWARD"
	}
	return "UNKNOWN"
}

// DayStatus is the display eligibility of one weekday in the current cycle.
type DayStatus int

const (
	StatusAvailable DayStatus = iota // today, unclaimed
	StatusClaimed                    // today, claimed
	StatusExpired                    // earlier weekday in the cycle
	StatusLocked                     // later weekday
)

func (s DayStatus) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusClaimed:
		return "CLAIMED"
	case StatusExpired:
		return "EXPIRED"
	case StatusLocked:
		return "LOCKED"
	}
	return "UNKNOWN"
}

// ClaimOutcome carries the claim result plus the post-claim streak values
// callers display.
type ClaimOutcome struct {
	Result       ClaimResult
	Streak       int
	BonusPercent int
}

type Service struct {
	accounts repositories.AccountRepository
	claims   repositories.ClaimRepository
	clock    *clock.Service
	catalog  *catalog.Catalog
	rewards  *reward.Service
	locks    *locks.KeyedMutex
}

func NewService(
	accounts repositories.AccountRepository,
	claims repositories.ClaimRepository,
	clk *clock.Service,
	cat *catalog.Catalog,
	rewards *reward.Service,
) *Service {
	return &Service{
		accounts: accounts,
		claims:   claims,
		clock:    clk,
		catalog:  cat,
		rewards:  rewards,
		locks:    locks.NewKeyedMutex(),
	}
}

// Streak returns the account's current streak.
func (s *Service) Streak(ctx context.Context, accountID string) (int, error) {
	state, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return state.Streak, nil
}

// HasClaimedToday reports whether today's reward is already claimed.
func (s *Service) HasClaimedToday(ctx context.Context, accountID string) (bool, error) {
	return s.claims.HasDailyClaim(ctx, accountID, s.clock.TodayKey())
}

// TodayReward returns the reward configured for today's weekday, or nil.
func (s *Service) TodayReward() *catalog.DailyReward {
	return s.catalog.DailyReward(s.clock.Weekday())
}

// TimeUntilTomorrow is the cosmetic countdown to the next daily window.
func (s *Service) TimeUntilTomorrow() time.Duration {
	return s.clock.TimeUntil(s.clock.StartOfTomorrow())
}

// isoWeekday orders weekdays Monday=1 .. Sunday=7, matching a week cycle
// that starts on Monday.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// DayStatus reports one weekday's display eligibility. Only today is ever
// claimable; earlier weekdays in the cycle are expired, later ones locked.
func (s *Service) DayStatus(ctx context.Context, accountID string, day time.Weekday) (DayStatus, error) {
	today := s.clock.Weekday()

	if day == today {
		claimed, err := s.HasClaimedToday(ctx, accountID)
		if err != nil {
			return StatusLocked, err
		}
		if claimed {
			return StatusClaimed, nil
		}
		return StatusAvailable, nil
	}

	if isoWeekday(day) < isoWeekday(today) {
		return StatusExpired, nil
	}
	return StatusLocked, nil
}

// CheckAndRepairStreak zeroes the streak when two or more full days passed
// since the last claim. Called on login or menu open, independent of any
// claim attempt. Returns whether a repair happened.
func (s *Service) CheckAndRepairStreak(ctx context.Context, accountID string) (bool, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	state, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return false, err
	}

	todayKey := s.clock.TodayKey()
	lastDaily := state.LastDailyDate

	if lastDaily == "" {
		return false, nil
	}
	if lastDaily == todayKey {
		return false, nil
	}
	if s.clock.WasYesterday(lastDaily) {
		// Streak continues when they claim today.
		return false, nil
	}

	if state.Streak == 0 {
		return false, nil
	}

	slog.Debug("Streak broken by absence",
		slog.String("type", "sys"),
		slog.String("account_id", accountID),
		slog.Int("streak", state.Streak),
		slog.String("last_daily", lastDaily))

	state.Streak = 0
	state.LastSeenDate = todayKey
	if err := s.accounts.Save(ctx, state); err != nil {
		return false, err
	}

	return true, nil
}

// ClaimDaily claims today's reward. Same-day re-claims are a strict no-op;
// the claim record write is a single conditional insert, so concurrent
// duplicates resolve to one winner.
func (s *Service) ClaimDaily(ctx context.Context, accountID string) (ClaimOutcome, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	todayKey := s.clock.TodayKey()

	claimed, err := s.claims.HasDailyClaim(ctx, accountID, todayKey)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if claimed {
		return ClaimOutcome{Result: AlreadyClaimed}, nil
	}

	dayReward := s.catalog.DailyReward(s.clock.Weekday())
	if dayReward == nil {
		slog.Warn("No reward configured for weekday",
			slog.String("type", "sys"),
			slog.String("weekday", s.clock.Weekday().String()))
		return ClaimOutcome{Result: NoReward}, nil
	}

	won, err := s.claims.TryClaimDaily(ctx, accountID, todayKey)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if !won {
		return ClaimOutcome{Result: AlreadyClaimed}, nil
	}

	state, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return ClaimOutcome{}, err
	}

	switch {
	case state.LastDailyDate == todayKey:
		// Today already counted (the claim flag was admin-reset); keep the
		// established streak instead of collapsing it.
		if state.Streak == 0 {
			state.Streak = 1
		}
	case state.LastDailyDate != "" && s.clock.WasYesterday(state.LastDailyDate):
		state.Streak++
	default:
		// First ever claim, or the streak was broken.
		state.Streak = 1
	}

	state.LastDailyDate = todayKey
	state.LastSeenDate = todayKey
	if err := s.accounts.Save(ctx, state); err != nil {
		return ClaimOutcome{}, err
	}

	// Claim flag and state are committed; delivery trouble from here on
	// routes to the pending queue instead of re-enabling the claim.
	if err := s.rewards.GrantDaily(ctx, accountID, dayReward, state.Streak); err != nil {
		return ClaimOutcome{}, err
	}

	slog.Info("Daily reward claimed",
		slog.String("type", "cmd"),
		slog.String("op", "claim-daily"),
		slog.String("account_id", accountID),
		slog.Int("streak", state.Streak))

	return ClaimOutcome{
		Result:       ClaimSuccess,
		Streak:       state.Streak,
		BonusPercent: s.catalog.BonusPercent(state.Streak),
	}, nil
}

// ResetToday clears today's claim flag for an account (admin).
func (s *Service) ResetToday(ctx context.Context, accountID string) error {
	return s.claims.ResetDailyClaim(ctx, accountID, s.clock.TodayKey())
}

// ResetStreak zeroes an account's streak and forgets its last claim date
// (admin).
func (s *Service) ResetStreak(ctx context.Context, accountID string) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	state, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}

	state.Streak = 0
	state.LastDailyDate = ""
	return s.accounts.Save(ctx, state)
}
