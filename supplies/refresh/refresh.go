// Package refresh pushes countdown updates to open status sessions on a
// fixed cron cadence, so a viewer watching a reset timer sees it tick
// without re-querying.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/food"
)

// Snapshot is one recomputed view of an account's timers.
type Snapshot struct {
	AccountID      string
	UntilTomorrow  time.Duration
	UntilWeekReset time.Duration
	Packs          []food.PackView
	At             time.Time
}

// Sink receives snapshots for one session. A Sink returning false is
// treated as closed and unregistered; updates are never sent to it again.
type Sink func(Snapshot) bool

type session struct {
	accountID string
	sink      Sink
}

// Service owns the registry of open sessions and the cron entry that
// refreshes them.
type Service struct {
	clock *clock.Service
	food  *food.Service
	cron  *cron.Cron

	mu       sync.Mutex
	sessions map[int64]session
	nextID   int64
}

// New builds the service with a cron runner pinned to the reset timezone so
// schedule arithmetic and period keys agree.
func New(clk *clock.Service, foodSvc *food.Service) *Service {
	return &Service{
		clock:    clk,
		food:     foodSvc,
		cron:     cron.New(cron.WithLocation(clk.Location())),
		sessions: make(map[int64]session),
	}
}

// Start registers the refresh entry and starts the runner. Interval is
// clamped to one second minimum.
func (s *Service) Start(interval time.Duration) error {
	if interval < time.Second {
		interval = time.Second
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.cron.Start()

	slog.Info("Session refresh started",
		slog.String("type", "sys"),
		slog.Duration("interval", interval))
	return nil
}

// Stop halts the runner and waits for an in-flight tick to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// Register adds a session and returns its id for Unregister. The sink gets
// its first snapshot on the next tick, not immediately.
func (s *Service) Register(accountID string, sink Sink) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.sessions[id] = session{accountID: accountID, sink: sink}
	return id
}

func (s *Service) Unregister(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// SessionCount is exposed for the status surface.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) tick() {
	s.mu.Lock()
	active := make(map[int64]session, len(s.sessions))
	for id, sess := range s.sessions {
		active[id] = sess
	}
	s.mu.Unlock()

	if len(active) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := s.clock.Now()
	var closed []int64
	for id, sess := range active {
		packs, err := s.food.Packs(ctx, sess.accountID)
		if err != nil {
			slog.Warn("Refresh pack lookup failed",
				slog.String("type", "sys"),
				slog.String("account_id", sess.accountID),
				slog.Any("error", err))
			continue
		}
		snap := Snapshot{
			AccountID:      sess.accountID,
			UntilTomorrow:  s.clock.TimeUntil(s.clock.StartOfTomorrow()),
			UntilWeekReset: s.clock.TimeUntilWeeklyReset(),
			Packs:          packs,
			At:             now,
		}
		if !sess.sink(snap) {
			closed = append(closed, id)
		}
	}

	if len(closed) > 0 {
		s.mu.Lock()
		for _, id := range closed {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
	}
}
