package delivery

import (
	"context"
	"log/slog"
	"sync"
)

// LogWallet records deposits in memory and logs them. Stands in for the
// external economy service in local runs and tests.
type LogWallet struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewLogWallet() *LogWallet {
	return &LogWallet{balances: make(map[string]float64)}
}

func (w *LogWallet) Deposit(_ context.Context, accountID string, amount float64) error {
	w.mu.Lock()
	w.balances[accountID] += amount
	w.mu.Unlock()

	slog.Info("Deposit",
		slog.String("type", "sys"),
		slog.String("account_id", accountID),
		slog.Float64("amount", amount))
	return nil
}

func (w *LogWallet) Balance(accountID string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[accountID]
}
