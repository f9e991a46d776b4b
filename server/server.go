// Package server exposes the claim engines over HTTP. It is a thin trigger
// surface: every route parses, calls one engine operation, and maps the
// outcome; no reward logic lives here.
package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nullithstudios/bestsupplies/supplies"
)

type Server struct {
	app      *supplies.App
	fiberApp *fiber.App
}

func New(app *supplies.App) *Server {
	fiberApp := fiber.New(fiber.Config{
		AppName:               "bestsupplies",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	s := &Server{app: app, fiberApp: fiberApp}

	fiberApp.Use(recover.New())
	fiberApp.Use(loggingMiddleware())

	fiberApp.Get("/health", s.handleHealth)

	api := fiberApp.Group("/api/v1")

	accounts := api.Group("/accounts/:account_id")
	accounts.Get("/status", s.handleStatus)
	accounts.Get("/daily/days", s.handleDailyDays)
	accounts.Post("/daily/claim", s.handleDailyClaim)
	accounts.Post("/weekly/claim", s.handleWeeklyClaim)
	accounts.Post("/cheques/redeem", s.handleRedeemCheque)
	accounts.Get("/packs", s.handlePacks)
	accounts.Post("/packs/:pack_id/claim", s.handlePackClaim)
	accounts.Get("/pending", s.handlePendingList)
	accounts.Post("/pending/withdraw", s.handlePendingWithdraw)

	admin := api.Group("/admin/accounts/:account_id")
	admin.Post("/daily/reset", s.handleAdminResetDaily)
	admin.Post("/streak/reset", s.handleAdminResetStreak)
	admin.Post("/weekly/reset", s.handleAdminResetWeekly)
	admin.Post("/cheques/grant", s.handleAdminGrantCheque)
	admin.Post("/cooldowns/reset", s.handleAdminResetCooldowns)
	admin.Get("/entitlements", s.handleAdminListEntitlements)
	admin.Post("/entitlements/:entitlement", s.handleAdminGrantEntitlement)
	admin.Delete("/entitlements/:entitlement", s.handleAdminRevokeEntitlement)

	return s
}

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen(addr string) error {
	slog.Info("HTTP server listening",
		slog.String("type", "sys"),
		slog.String("addr", addr))
	return s.fiberApp.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.fiberApp.Shutdown()
}

func loggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		slog.Log(c.UserContext(), level, "HTTP request",
			slog.String("type", "cmd"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)))
		return err
	}
}
