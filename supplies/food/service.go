// Package food is the ration pack engine: per-pack cooldown timers whose
// length comes from the claiming account's tier, not from the pack.
package food

import (
	"context"
	"sort"
	"time"

	"log/slog"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/database/repositories"
	"github.com/nullithstudios/bestsupplies/supplies/locks"
	"github.com/nullithstudios/bestsupplies/supplies/reward"
)

// DefaultCooldown applies when the account resolves to no tier at all.
const DefaultCooldown = 24 * time.Hour

type ClaimResult int

const (
	ClaimSuccess ClaimResult = iota
	NotAvailable
	OnCooldown
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimSuccess:
		return "SUCCESS"
	case NotAvailable:
		return "NOT_AVAILABLE"
	case OnCooldown:
		return "COOLDOWN"
	}
	return "UNKNOWN"
}

type PackStatus int

const (
	StatusNotAvailable PackStatus = iota
	StatusReady
	StatusCooldown
)

func (s PackStatus) String() string {
	switch s {
	case StatusNotAvailable:
		return "NOT_AVAILABLE"
	case StatusReady:
		return "READY"
	case StatusCooldown:
		return "COOLDOWN"
	}
	return "UNKNOWN"
}

// ClaimOutcome reports one pack claim attempt. Remaining is populated only
// on COOLDOWN; Buffered reports whether items overflowed to pending.
type ClaimOutcome struct {
	Result    ClaimResult
	Remaining time.Duration
	Buffered  bool
}

// PackView is one pack as seen by an account: identity plus timer state.
type PackView struct {
	Pack      catalog.Pack
	Status    PackStatus
	Remaining time.Duration
}

type Service struct {
	cooldowns repositories.CooldownRepository
	clock     *clock.Service
	resolver  *catalog.Resolver
	rewards   *reward.Service
	locks     *locks.KeyedMutex
}

func NewService(
	cooldowns repositories.CooldownRepository,
	clk *clock.Service,
	resolver *catalog.Resolver,
	rewards *reward.Service,
) *Service {
	return &Service{
		cooldowns: cooldowns,
		clock:     clk,
		resolver:  resolver,
		rewards:   rewards,
		locks:     locks.NewKeyedMutex(),
	}
}

// CooldownDuration is the cooldown the account's tier imposes on its packs.
func (s *Service) CooldownDuration(ctx context.Context, accountID string) (time.Duration, error) {
	tier, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if tier == nil || tier.PackCooldown <= 0 {
		return DefaultCooldown, nil
	}
	return tier.PackCooldown, nil
}

// AvailablePacks lists the packs the account's tier unlocks, sorted by id.
func (s *Service) AvailablePacks(ctx context.Context, accountID string) ([]catalog.Pack, error) {
	tier, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, nil
	}
	packs := make([]catalog.Pack, 0, len(tier.Packs))
	for _, p := range tier.Packs {
		packs = append(packs, p)
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs, nil
}

// IsPackAvailable reports whether the pack's cooldown has elapsed. It says
// nothing about whether the tier grants the pack.
func (s *Service) IsPackAvailable(ctx context.Context, accountID, packID string) (bool, error) {
	next, err := s.cooldowns.NextEligibleAt(ctx, accountID, packID)
	if err != nil {
		return false, err
	}
	return s.clock.Now().UnixMilli() >= next, nil
}

// TimeUntilAvailable is the remaining cooldown, zero when ready.
func (s *Service) TimeUntilAvailable(ctx context.Context, accountID, packID string) (time.Duration, error) {
	next, err := s.cooldowns.NextEligibleAt(ctx, accountID, packID)
	if err != nil {
		return 0, err
	}
	remaining := time.Duration(next-s.clock.Now().UnixMilli()) * time.Millisecond
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// PackStatus classifies one pack for one account.
func (s *Service) PackStatus(ctx context.Context, accountID, packID string) (PackStatus, time.Duration, error) {
	tier, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		return StatusNotAvailable, 0, err
	}
	if tier == nil {
		return StatusNotAvailable, 0, nil
	}
	if _, ok := tier.Pack(packID); !ok {
		return StatusNotAvailable, 0, nil
	}
	remaining, err := s.TimeUntilAvailable(ctx, accountID, packID)
	if err != nil {
		return StatusNotAvailable, 0, err
	}
	if remaining > 0 {
		return StatusCooldown, remaining, nil
	}
	return StatusReady, 0, nil
}

// Packs lists the account's packs with their timer state, for status views.
func (s *Service) Packs(ctx context.Context, accountID string) ([]PackView, error) {
	packs, err := s.AvailablePacks(ctx, accountID)
	if err != nil {
		return nil, err
	}
	views := make([]PackView, 0, len(packs))
	for _, p := range packs {
		remaining, err := s.TimeUntilAvailable(ctx, accountID, p.ID)
		if err != nil {
			return nil, err
		}
		status := StatusReady
		if remaining > 0 {
			status = StatusCooldown
		}
		views = append(views, PackView{Pack: p, Status: status, Remaining: remaining})
	}
	return views, nil
}

// ClaimPack claims one pack: entitlement check, cooldown check, cooldown
// stamp, then delivery with pending overflow. The stamp lands before the
// delivery attempt so a delivery wobble cannot shorten the cooldown.
func (s *Service) ClaimPack(ctx context.Context, accountID, packID string) (ClaimOutcome, error) {
	unlock := s.locks.Lock("pack:" + accountID + "|" + packID)
	defer unlock()

	tier, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if tier == nil {
		return ClaimOutcome{Result: NotAvailable}, nil
	}
	pack, ok := tier.Pack(packID)
	if !ok {
		return ClaimOutcome{Result: NotAvailable}, nil
	}

	now := s.clock.Now()
	next, err := s.cooldowns.NextEligibleAt(ctx, accountID, packID)
	if err != nil {
		return ClaimOutcome{}, err
	}
	if now.UnixMilli() < next {
		remaining := time.Duration(next-now.UnixMilli()) * time.Millisecond
		return ClaimOutcome{Result: OnCooldown, Remaining: remaining}, nil
	}

	cooldown := tier.PackCooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if err := s.cooldowns.SetNextEligibleAt(ctx, accountID, packID, now.Add(cooldown).UnixMilli()); err != nil {
		return ClaimOutcome{}, err
	}

	buffered, err := s.rewards.DeliverOrPending(ctx, accountID, pack.Items)
	if err != nil {
		return ClaimOutcome{}, err
	}

	slog.Info("Ration pack claimed",
		slog.String("type", "cmd"),
		slog.String("op", "claim-pack"),
		slog.String("account_id", accountID),
		slog.String("pack_id", packID),
		slog.Bool("buffered", buffered))

	return ClaimOutcome{Result: ClaimSuccess, Buffered: buffered}, nil
}

// ResetCooldown clears one pack's cooldown (admin).
func (s *Service) ResetCooldown(ctx context.Context, accountID, packID string) error {
	return s.cooldowns.Reset(ctx, accountID, packID)
}

// ResetAllCooldowns clears every pack cooldown for the account (admin).
func (s *Service) ResetAllCooldowns(ctx context.Context, accountID string) error {
	return s.cooldowns.ResetAll(ctx, accountID)
}
