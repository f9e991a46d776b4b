package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nullithstudios/bestsupplies/supplies/bank"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/daily"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
	"github.com/nullithstudios/bestsupplies/supplies/logger"
)

// storageError hides storage detail behind one generic unavailable response.
func storageError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "storage unavailable, try again later",
	})
}

func accountID(c *fiber.Ctx) string {
	return c.Params("account_id")
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.app.Version,
	})
}

type dayView struct {
	Weekday     string   `json:"weekday"`
	DisplayName string   `json:"display_name,omitempty"`
	Description []string `json:"description,omitempty"`
	Status      string   `json:"status"`
}

func (s *Server) weekGrid(c *fiber.Ctx, account string) ([]dayView, error) {
	// ISO order, Monday first.
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	grid := make([]dayView, 0, len(order))
	for _, day := range order {
		status, err := s.app.Daily.DayStatus(c.UserContext(), account, day)
		if err != nil {
			return nil, err
		}
		view := dayView{Weekday: day.String(), Status: status.String()}
		if reward := s.app.Catalog.DailyReward(day); reward != nil {
			view.DisplayName = reward.DisplayName
			view.Description = reward.Description
		}
		grid = append(grid, view)
	}
	return grid, nil
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	account := accountID(c)

	// Status observation is the passive repair point for broken streaks.
	if _, err := s.app.Daily.CheckAndRepairStreak(ctx, account); err != nil {
		return storageError(c)
	}

	streak, err := s.app.Daily.Streak(ctx, account)
	if err != nil {
		return storageError(c)
	}
	claimedToday, err := s.app.Daily.HasClaimedToday(ctx, account)
	if err != nil {
		return storageError(c)
	}
	claimedWeekly, err := s.app.Bank.HasClaimedWeekly(ctx, account)
	if err != nil {
		return storageError(c)
	}
	weeklyAmount, err := s.app.Bank.WeeklyAmount(ctx, account)
	if err != nil {
		return storageError(c)
	}
	packs, err := s.app.Food.Packs(ctx, account)
	if err != nil {
		return storageError(c)
	}
	pendingCount, err := s.app.Pending.Count(ctx, account)
	if err != nil {
		return storageError(c)
	}
	grid, err := s.weekGrid(c, account)
	if err != nil {
		return storageError(c)
	}

	packViews := make([]fiber.Map, 0, len(packs))
	for _, p := range packs {
		packViews = append(packViews, fiber.Map{
			"pack_id":      p.Pack.ID,
			"display_name": p.Pack.DisplayName,
			"status":       p.Status.String(),
			"remaining":    clock.FormatDuration(p.Remaining),
		})
	}

	return c.JSON(fiber.Map{
		"account_id":       account,
		"streak":           streak,
		"claimed_today":    claimedToday,
		"until_tomorrow":   clock.FormatDuration(s.app.Daily.TimeUntilTomorrow()),
		"days":             grid,
		"weekly_claimed":   claimedWeekly,
		"weekly_amount":    weeklyAmount,
		"until_week_reset": clock.FormatDuration(s.app.Bank.TimeUntilReset()),
		"packs":            packViews,
		"pending_count":    pendingCount,
	})
}

func (s *Server) handleDailyDays(c *fiber.Ctx) error {
	grid, err := s.weekGrid(c, accountID(c))
	if err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"days": grid})
}

func (s *Server) handleDailyClaim(c *fiber.Ctx) error {
	start := time.Now()
	outcome, err := s.app.Daily.ClaimDaily(c.UserContext(), accountID(c))
	logger.LogOperation("claim-daily", accountID(c), time.Since(start), err)
	if err != nil {
		return storageError(c)
	}

	body := fiber.Map{
		"result": outcome.Result.String(),
		"streak": outcome.Streak,
	}
	if outcome.Result == daily.ClaimSuccess {
		body["bonus_percent"] = outcome.BonusPercent
	}
	if outcome.Result == daily.AlreadyClaimed {
		body["until_tomorrow"] = clock.FormatDuration(s.app.Daily.TimeUntilTomorrow())
	}
	return c.JSON(body)
}

func (s *Server) handleWeeklyClaim(c *fiber.Ctx) error {
	start := time.Now()
	outcome, err := s.app.Bank.ClaimWeekly(c.UserContext(), accountID(c))
	logger.LogOperation("claim-weekly", accountID(c), time.Since(start), err)
	if err != nil {
		return storageError(c)
	}

	body := fiber.Map{"result": outcome.Result.String()}
	switch outcome.Result {
	case bank.ClaimSuccess:
		body["amount"] = outcome.Amount
		body["buffered"] = outcome.Buffered
		if outcome.ChequeID != "" {
			body["cheque_id"] = outcome.ChequeID
		}
	case bank.AlreadyClaimed:
		body["until_reset"] = clock.FormatDuration(s.app.Bank.TimeUntilReset())
	}
	return c.JSON(body)
}

type redeemRequest struct {
	ChequeID string  `json:"cheque_id"`
	OwnerID  string  `json:"owner_id"`
	WeekKey  string  `json:"week_key"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

func (s *Server) handleRedeemCheque(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	artifact := delivery.ChequeArtifact{
		ChequeID:  req.ChequeID,
		AccountID: req.OwnerID,
		WeekKey:   req.WeekKey,
		Amount:    req.Amount,
		Count:     count,
	}

	outcome, err := s.app.Bank.RedeemCheque(c.UserContext(), accountID(c), artifact)
	if err != nil {
		return storageError(c)
	}

	body := fiber.Map{"result": outcome.Result.String()}
	if outcome.Result == bank.RedeemSuccess {
		body["amount"] = outcome.Amount
		// The physical artifact loses exactly one unit per redeem.
		body["remaining_count"] = count - 1
	}
	return c.JSON(body)
}

func (s *Server) handlePacks(c *fiber.Ctx) error {
	packs, err := s.app.Food.Packs(c.UserContext(), accountID(c))
	if err != nil {
		return storageError(c)
	}

	views := make([]fiber.Map, 0, len(packs))
	for _, p := range packs {
		views = append(views, fiber.Map{
			"pack_id":      p.Pack.ID,
			"display_name": p.Pack.DisplayName,
			"status":       p.Status.String(),
			"remaining":    clock.FormatDuration(p.Remaining),
		})
	}
	return c.JSON(fiber.Map{"packs": views})
}

func (s *Server) handlePackClaim(c *fiber.Ctx) error {
	start := time.Now()
	outcome, err := s.app.Food.ClaimPack(c.UserContext(), accountID(c), c.Params("pack_id"))
	logger.LogOperation("claim-pack", accountID(c), time.Since(start), err)
	if err != nil {
		return storageError(c)
	}

	body := fiber.Map{"result": outcome.Result.String()}
	if outcome.Remaining > 0 {
		body["remaining"] = clock.FormatDuration(outcome.Remaining)
	}
	if outcome.Buffered {
		body["buffered"] = true
	}
	return c.JSON(body)
}

func (s *Server) handlePendingList(c *fiber.Ctx) error {
	entries, err := s.app.Pending.Entries(c.UserContext(), accountID(c))
	if err != nil {
		return storageError(c)
	}

	views := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		views = append(views, fiber.Map{
			"id":         e.ID,
			"kind":       string(e.Kind),
			"created_at": e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"entries": views})
}

func (s *Server) handlePendingWithdraw(c *fiber.Ctx) error {
	withdrawn, err := s.app.Pending.WithdrawAll(c.UserContext(), accountID(c))
	if err != nil {
		return storageError(c)
	}

	remaining, err := s.app.Pending.Count(c.UserContext(), accountID(c))
	if err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{
		"withdrawn": withdrawn,
		"remaining": remaining,
	})
}

func (s *Server) handleAdminResetDaily(c *fiber.Ctx) error {
	if err := s.app.Daily.ResetToday(c.UserContext(), accountID(c)); err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"result": "OK"})
}

func (s *Server) handleAdminResetStreak(c *fiber.Ctx) error {
	if err := s.app.Daily.ResetStreak(c.UserContext(), accountID(c)); err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"result": "OK"})
}

func (s *Server) handleAdminResetWeekly(c *fiber.Ctx) error {
	if err := s.app.Bank.ResetWeekly(c.UserContext(), accountID(c)); err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"result": "OK"})
}

func (s *Server) handleAdminGrantCheque(c *fiber.Ctx) error {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a positive number"})
	}

	outcome, err := s.app.Bank.GrantCheque(c.UserContext(), accountID(c), amount)
	if err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{
		"result":    outcome.Result.String(),
		"cheque_id": outcome.ChequeID,
		"amount":    outcome.Amount,
		"buffered":  outcome.Buffered,
	})
}

func (s *Server) handleAdminResetCooldowns(c *fiber.Ctx) error {
	ctx := c.UserContext()
	account := accountID(c)

	if packID := c.Query("pack_id"); packID != "" {
		if err := s.app.Food.ResetCooldown(ctx, account, packID); err != nil {
			return storageError(c)
		}
		return c.JSON(fiber.Map{"result": "OK", "pack_id": packID})
	}

	if err := s.app.Food.ResetAllCooldowns(ctx, account); err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"result": "OK"})
}

func (s *Server) handleAdminListEntitlements(c *fiber.Ctx) error {
	keys, err := s.app.EntitlementRepository.List(c.UserContext(), accountID(c))
	if err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"entitlements": keys})
}

func (s *Server) handleAdminGrantEntitlement(c *fiber.Ctx) error {
	if err := s.app.EntitlementRepository.Grant(c.UserContext(), accountID(c), c.Params("entitlement")); err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"result": "OK"})
}

func (s *Server) handleAdminRevokeEntitlement(c *fiber.Ctx) error {
	if err := s.app.EntitlementRepository.Revoke(c.UserContext(), accountID(c), c.Params("entitlement")); err != nil {
		return storageError(c)
	}
	return c.JSON(fiber.Map{"result": "OK"})
}
