package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	"github.com/helpdesk-go/helpdesk/internal/service"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// DashboardHandler serves the statistics and reporting endpoints.
type DashboardHandler struct {
	stats   *service.StatsService
	reports *service.ReportService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(stats *service.StatsService, reports *service.ReportService) *DashboardHandler {
	return &DashboardHandler{stats: stats, reports: reports}
}

// ManagerStats handles GET /dashboard/stats?start_date=&end_date=.
func (h *DashboardHandler) ManagerStats(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.stats.ManagerStats(c.Context(), actor, parseStatsWindow(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// AdminStats handles GET /dashboard/admin-stats.
func (h *DashboardHandler) AdminStats(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.stats.AdminStats(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Volume handles GET /dashboard/volume?start_date=&end_date=. The
// window defaults to the last 30 days.
func (h *DashboardHandler) Volume(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	points, err := h.stats.TicketVolumeOverTime(c.Context(), actor, parseStatsWindow(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": points})
}

// StatusDistribution handles GET /dashboard/status-distribution?start_date=&end_date=.
func (h *DashboardHandler) StatusDistribution(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	slices, err := h.stats.StatusDistribution(c.Context(), actor, parseStatsWindow(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slices})
}

// parseStatsWindow reads the optional inclusive date bounds shared by
// the dashboard endpoints. Malformed dates are ignored.
func parseStatsWindow(c *fiber.Ctx) repository.Window {
	window := repository.Window{}
	if from := c.Query("start_date"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			window.From = &parsed
		}
	}
	if to := c.Query("end_date"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			end := parsed.Add(24*time.Hour - time.Nanosecond)
			window.To = &end
		}
	}
	return window
}

// MonthlyReport handles GET /reports/monthly?month=2026-08. The month
// defaults to the current one.
func (h *DashboardHandler) MonthlyReport(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ref := time.Now()
	if month := c.Query("month"); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			return apperrors.NewValidationError("month must be formatted YYYY-MM", map[string]any{"field": "month"})
		}
		ref = parsed
	}

	report, err := h.reports.Generate(c.Context(), actor, ref)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
