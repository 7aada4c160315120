package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/kurniadi/uw-tracker-backend/models"
	"github.com/kurniadi/uw-tracker-backend/services"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

type RecordHandler struct {
	Service *services.RecordService
}

func NewRecordHandler(service *services.RecordService) *RecordHandler {
	return &RecordHandler{Service: service}
}

// GetRecords lists the grouped view. Query parameters: search (underwriter
// token), limit (1..1000, default 100) and offset.
func (h *RecordHandler) GetRecords(c *fiber.Ctx) error {
	search := c.Query("search", "")
	limit := clampLimit(c.Query("limit", ""))
	offset := parseOffset(c.Query("offset", ""))

	result, err := h.Service.List(c.Context(), search, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result.Data,
		"total":   result.Total,
		"count":   result.Count,
	})
}

func (h *RecordHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.Service.Stats(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

func (h *RecordHandler) GetRecordByID(c *fiber.Ctx) error {
	record, err := h.Service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

func (h *RecordHandler) CreateRecord(c *fiber.Ctx) error {
	var input models.StockRecordCreate
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
	}

	record, err := h.Service.Create(c.Context(), &input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

func (h *RecordHandler) UpdateRecord(c *fiber.Ctx) error {
	var update models.StockRecordUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
	}

	record, err := h.Service.Update(c.Context(), c.Params("id"), &update)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

func (h *RecordHandler) DeleteRecord(c *fiber.Ctx) error {
	if err := h.Service.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Record deleted",
	})
}

// BulkUpload ingests a batch of flat rows. The batch is not atomic, so the
// report is returned with 200 even when some rows failed.
func (h *RecordHandler) BulkUpload(c *fiber.Ctx) error {
	var request models.BulkUploadRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
	}
	if len(request.Data) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No records provided",
		})
	}

	report, err := h.Service.BulkUpsert(c.Context(), request.Data)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

func clampLimit(raw string) int64 {
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func parseOffset(raw string) int64 {
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// respondError maps a service error onto the HTTP status and envelope shared
// by every handler.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func statusForError(err error) int {
	switch shared.CategoryOf(err) {
	case shared.ErrorCategoryValidation:
		return fiber.StatusBadRequest
	case shared.ErrorCategoryNotFound:
		return fiber.StatusNotFound
	case shared.ErrorCategoryConflict:
		return fiber.StatusConflict
	case shared.ErrorCategoryStore, shared.ErrorCategoryNetwork, shared.ErrorCategoryTimeout:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
