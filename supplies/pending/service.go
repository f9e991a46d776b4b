// Package pending buffers rewards that could not be delivered at grant time
// until the recipient has capacity again. Entries are withdrawn oldest
// first; a partial delivery re-queues exactly the undelivered remainder.
package pending

import (
	"context"
	"log/slog"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/database/models"
	"github.com/nullithstudios/bestsupplies/supplies/database/repositories"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
)

type WithdrawStatus int

const (
	// Withdrawn: the entry is gone; everything in it was delivered (or it
	// was an invalid entry that got dropped).
	Withdrawn WithdrawStatus = iota
	// PartiallyWithdrawn: some items were delivered and the remainder was
	// re-queued as a fresh entry.
	PartiallyWithdrawn
	// NoCapacity: nothing was delivered; the entry is untouched.
	NoCapacity
)

// WithdrawOutcome separates "the call worked" from "how much moved".
type WithdrawOutcome struct {
	Status    WithdrawStatus
	Remaining []catalog.Item
}

type Service struct {
	repo     repositories.PendingRepository
	delivery delivery.Delivery
}

func NewService(repo repositories.PendingRepository, del delivery.Delivery) *Service {
	return &Service{repo: repo, delivery: del}
}

// SaveItems queues an undeliverable item batch.
func (s *Service) SaveItems(ctx context.Context, accountID string, items []catalog.Item) error {
	if len(items) == 0 {
		return nil
	}

	payload, err := encodeItems(items)
	if err != nil {
		return err
	}

	if _, err := s.repo.Add(ctx, accountID, models.PendingItemBatch, payload); err != nil {
		return err
	}

	slog.Info("Items saved to pending",
		slog.String("type", "sys"),
		slog.String("account_id", accountID),
		slog.Int("items", len(items)))
	return nil
}

// SaveCheque queues an undeliverable cheque artifact.
func (s *Service) SaveCheque(ctx context.Context, accountID string, artifact delivery.ChequeArtifact) error {
	payload, err := encodeCheque(artifact)
	if err != nil {
		return err
	}

	if _, err := s.repo.Add(ctx, accountID, models.PendingCheque, payload); err != nil {
		return err
	}

	slog.Info("Cheque saved to pending",
		slog.String("type", "sys"),
		slog.String("account_id", accountID),
		slog.String("cheque_id", artifact.ChequeID),
		slog.Float64("amount", artifact.Amount))
	return nil
}

// Entries lists the account's pending entries oldest first.
func (s *Service) Entries(ctx context.Context, accountID string) ([]*models.PendingEntry, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *Service) Count(ctx context.Context, accountID string) (int, error) {
	return s.repo.Count(ctx, accountID)
}

func (s *Service) HasPending(ctx context.Context, accountID string) (bool, error) {
	count, err := s.repo.Count(ctx, accountID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WithdrawOne attempts to deliver one pending entry.
func (s *Service) WithdrawOne(ctx context.Context, accountID string, entry *models.PendingEntry) (WithdrawOutcome, error) {
	switch entry.Kind {
	case models.PendingItemBatch:
		return s.withdrawItems(ctx, accountID, entry)
	case models.PendingCheque:
		return s.withdrawCheque(ctx, accountID, entry)
	}

	// Unknown kind: drop the entry rather than wedge the queue.
	slog.Warn("Dropping pending entry of unknown kind",
		slog.String("type", "sys"),
		slog.Int64("entry_id", entry.ID),
		slog.String("kind", string(entry.Kind)))
	if err := s.repo.Remove(ctx, entry.ID); err != nil {
		return WithdrawOutcome{Status: NoCapacity}, err
	}
	return WithdrawOutcome{Status: Withdrawn}, nil
}

func (s *Service) withdrawItems(ctx context.Context, accountID string, entry *models.PendingEntry) (WithdrawOutcome, error) {
	items, err := decodeItems(entry.Payload)
	if err != nil || len(items) == 0 {
		// Invalid entry, just remove it.
		if removeErr := s.repo.Remove(ctx, entry.ID); removeErr != nil {
			return WithdrawOutcome{Status: NoCapacity}, removeErr
		}
		return WithdrawOutcome{Status: Withdrawn}, nil
	}

	remainder, err := s.delivery.DeliverItems(ctx, accountID, items)
	if err != nil {
		return WithdrawOutcome{Status: NoCapacity}, err
	}

	if len(remainder) == len(items) && totalAmount(remainder) == totalAmount(items) {
		return WithdrawOutcome{Status: NoCapacity, Remaining: remainder}, nil
	}

	// Something was delivered: the old entry goes away and, on partial
	// delivery, a fresh entry holds only the remainder. The entry id is not
	// stable across this rewrite.
	if err := s.repo.Remove(ctx, entry.ID); err != nil {
		return WithdrawOutcome{Status: NoCapacity}, err
	}

	if len(remainder) == 0 {
		return WithdrawOutcome{Status: Withdrawn}, nil
	}

	payload, err := encodeItems(remainder)
	if err != nil {
		return WithdrawOutcome{Status: PartiallyWithdrawn, Remaining: remainder}, err
	}
	if _, err := s.repo.Add(ctx, accountID, models.PendingItemBatch, payload); err != nil {
		return WithdrawOutcome{Status: PartiallyWithdrawn, Remaining: remainder}, err
	}

	return WithdrawOutcome{Status: PartiallyWithdrawn, Remaining: remainder}, nil
}

func (s *Service) withdrawCheque(ctx context.Context, accountID string, entry *models.PendingEntry) (WithdrawOutcome, error) {
	artifact, err := decodeCheque(entry.Payload)
	if err != nil || !artifact.IsCheque() {
		if removeErr := s.repo.Remove(ctx, entry.ID); removeErr != nil {
			return WithdrawOutcome{Status: NoCapacity}, removeErr
		}
		return WithdrawOutcome{Status: Withdrawn}, nil
	}

	free, err := s.delivery.FreeSlots(ctx, accountID)
	if err != nil {
		return WithdrawOutcome{Status: NoCapacity}, err
	}
	if free < 1 {
		return WithdrawOutcome{Status: NoCapacity}, nil
	}

	if err := s.delivery.DeliverCheque(ctx, accountID, artifact); err != nil {
		return WithdrawOutcome{Status: NoCapacity}, err
	}

	if err := s.repo.Remove(ctx, entry.ID); err != nil {
		return WithdrawOutcome{Status: Withdrawn}, err
	}
	return WithdrawOutcome{Status: Withdrawn}, nil
}

// WithdrawAll processes entries oldest first and stops as soon as the
// delivery collaborator reports no remaining capacity. Returns the number of
// entries fully cleared.
func (s *Service) WithdrawAll(ctx context.Context, accountID string) (int, error) {
	entries, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	withdrawn := 0
	for _, entry := range entries {
		free, err := s.delivery.FreeSlots(ctx, accountID)
		if err != nil {
			return withdrawn, err
		}
		if free < 1 {
			break
		}

		outcome, err := s.WithdrawOne(ctx, accountID, entry)
		if err != nil {
			return withdrawn, err
		}

		switch outcome.Status {
		case Withdrawn:
			withdrawn++
		case PartiallyWithdrawn, NoCapacity:
			// Capacity exhausted; later entries cannot fare better.
			return withdrawn, nil
		}
	}

	return withdrawn, nil
}

func totalAmount(items []catalog.Item) int {
	total := 0
	for _, item := range items {
		total += item.Amount
	}
	return total
}
