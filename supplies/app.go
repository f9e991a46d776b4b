// Package supplies wires configuration, storage, and the claim engines into
// one application aggregate.
package supplies

import (
	"context"
	"log/slog"

	"github.com/nullithstudios/bestsupplies/supplies/bank"
	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/daily"
	"github.com/nullithstudios/bestsupplies/supplies/database"
	"github.com/nullithstudios/bestsupplies/supplies/database/repositories"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/food"
	"github.com/nullithstudios/bestsupplies/supplies/pending"
	"github.com/nullithstudios/bestsupplies/supplies/refresh"
	"github.com/nullithstudios/bestsupplies/supplies/reward"
)

func New(cfg *Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type App struct {
	Cfg     *Config
	Version string
	Commit  string

	DB      *database.DB
	Catalog *catalog.Catalog
	Clock   *clock.Service

	AccountRepository     repositories.AccountRepository
	ClaimRepository       repositories.ClaimRepository
	CooldownRepository    repositories.CooldownRepository
	ChequeRepository      repositories.ChequeRepository
	PendingRepository     repositories.PendingRepository
	EntitlementRepository repositories.EntitlementRepository

	Delivery delivery.Delivery
	Wallet   delivery.Wallet

	Resolver *catalog.Resolver
	Pending  *pending.Service
	Rewards  *reward.Service
	Daily    *daily.Service
	Bank     *bank.Service
	Food     *food.Service
	Refresh  *refresh.Service
}

// Setup connects storage and builds every engine. Delivery and wallet are
// injected so the HTTP surface and tests can swap transports.
func (a *App) Setup(ctx context.Context, del delivery.Delivery, wallet delivery.Wallet) error {
	cat, err := BuildCatalog(a.Cfg)
	if err != nil {
		return err
	}
	a.Catalog = cat
	a.Clock = clock.New(a.Cfg.Clock)

	db, err := database.New(ctx, a.Cfg.DB)
	if err != nil {
		return err
	}
	a.DB = db

	if err := db.InitializeSchema(ctx); err != nil {
		return err
	}

	bunDB := db.BunDB()
	a.AccountRepository = repositories.NewAccountRepository(bunDB)
	a.ClaimRepository = repositories.NewClaimRepository(bunDB)
	a.CooldownRepository = repositories.NewCooldownRepository(bunDB)
	a.ChequeRepository = repositories.NewChequeRepository(bunDB)
	a.PendingRepository = repositories.NewPendingRepository(bunDB)
	a.EntitlementRepository = repositories.NewEntitlementRepository(bunDB)

	a.Delivery = del
	a.Wallet = wallet

	a.Resolver = catalog.NewResolver(a.Catalog, a.EntitlementRepository)
	a.Pending = pending.NewService(a.PendingRepository, a.Delivery)
	a.Rewards = reward.NewService(a.Catalog, a.Delivery, a.Wallet, a.Pending)
	a.Daily = daily.NewService(a.AccountRepository, a.ClaimRepository, a.Clock, a.Catalog, a.Rewards)
	a.Bank = bank.NewService(a.AccountRepository, a.ClaimRepository, a.ChequeRepository,
		a.Clock, a.Resolver, a.Delivery, a.Wallet, a.Pending, a.Cfg.Bank.UseChequeItem)
	a.Food = food.NewService(a.CooldownRepository, a.Clock, a.Resolver, a.Rewards)
	a.Refresh = refresh.New(a.Clock, a.Food)

	slog.Info("Supplies app ready",
		slog.String("type", "sys"),
		slog.String("version", a.Version),
		slog.String("commit", a.Commit))

	return nil
}

// StartRefresh begins the session countdown ticker.
func (a *App) StartRefresh() error {
	return a.Refresh.Start(a.Cfg.Refresh.Interval.Std())
}

// Close stops background work and releases storage.
func (a *App) Close() {
	if a.Refresh != nil {
		a.Refresh.Stop()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
