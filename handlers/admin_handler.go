package handlers

import (
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kurniadi/uw-tracker-backend/database"
	"github.com/kurniadi/uw-tracker-backend/services"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

// AdminHandler serves the operational surface: file imports, health and the
// in-process performance counters.
type AdminHandler struct {
	Importer    *services.ImportService
	Store       *database.Store
	Metrics     *shared.OperationMetrics
	DefaultFile string
}

func NewAdminHandler(importer *services.ImportService, store *database.Store, metrics *shared.OperationMetrics, defaultFile string) *AdminHandler {
	return &AdminHandler{Importer: importer, Store: store, Metrics: metrics, DefaultFile: defaultFile}
}

// ImportFile ingests an .xlsx or .json export through the bulk pipeline and
// returns the per-row report. The source is either an uploaded "file" form
// field, a server-side path in the request body, or the configured seed file.
func (h *AdminHandler) ImportFile(c *fiber.Ctx) error {
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Cannot read uploaded file: " + err.Error(),
			})
		}
		defer file.Close()

		report, err := h.Importer.Import(c.Context(), file, filepath.Ext(fileHeader.Filename))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    report,
		})
	}

	var body struct {
		Path string `json:"path"`
	}
	_ = c.BodyParser(&body)

	path := body.Path
	if path == "" {
		path = h.DefaultFile
	}
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No file uploaded, no path given and no import file configured",
		})
	}

	report, err := h.Importer.ImportFile(c.Context(), path)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

// HealthCheck reports service liveness and document store reachability.
func (h *AdminHandler) HealthCheck(c *fiber.Ctx) error {
	status := "healthy"
	storeStatus := "connected"
	httpStatus := fiber.StatusOK

	if err := h.Store.HealthCheck(c.Context()); err != nil {
		status = "degraded"
		storeStatus = err.Error()
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"store":     storeStatus,
		"timestamp": time.Now().UTC(),
	})
}

// PerformanceMetrics dumps the per-operation counters.
func (h *AdminHandler) PerformanceMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Metrics.Snapshot(),
	})
}
