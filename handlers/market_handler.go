package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/kurniadi/uw-tracker-backend/services"
)

type MarketHandler struct {
	Service *services.MarketDataService
}

func NewMarketHandler(service *services.MarketDataService) *MarketHandler {
	return &MarketHandler{Service: service}
}

func (h *MarketHandler) GetDailySeries(c *fiber.Ctx) error {
	series, err := h.Service.GetDailySeries(c.Context(), c.Params("symbol"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    series,
	})
}

func (h *MarketHandler) GetIntradaySeries(c *fiber.Ctx) error {
	interval := c.Query("interval", "5min")
	series, err := h.Service.GetIntradaySeries(c.Context(), c.Params("symbol"), interval)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    series,
	})
}

// GetPerformanceChart serves the post-listing performance view. The days_back
// query parameter bounds the window to 1..365, defaulting to 30 trading days.
func (h *MarketHandler) GetPerformanceChart(c *fiber.Ctx) error {
	daysBack, err := strconv.Atoi(c.Query("days_back", "30"))
	if err != nil || daysBack <= 0 {
		daysBack = 30
	}
	if daysBack > 365 {
		daysBack = 365
	}

	chart, err := h.Service.GetPerformanceChart(c.Context(), c.Params("symbol"), daysBack)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    chart,
	})
}
