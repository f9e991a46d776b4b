package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nullithstudios/bestsupplies/server"
	"github.com/nullithstudios/bestsupplies/supplies"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := supplies.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(parseLevel(cfg.Log.Level))))

	slog.Info("Starting BestSupplies",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	app := supplies.New(cfg, version, commit)
	if err := app.Setup(ctx, delivery.NewInventory(0), delivery.NewLogWallet()); err != nil {
		cancel()
		slog.Error("Failed to set up application", slog.Any("error", err))
		os.Exit(-1)
	}
	cancel()
	defer app.Close()

	if err := app.StartRefresh(); err != nil {
		slog.Error("Failed to start session refresh", slog.Any("error", err))
		os.Exit(-1)
	}

	srv := server.New(app)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return srv.Listen(cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", slog.String("type", "sys"))
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", slog.Any("error", err))
		os.Exit(-1)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
