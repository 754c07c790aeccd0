package handlers

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/preston-56/lms-backend/internal/reports"
	apperrors "github.com/preston-56/lms-backend/pkg/util"
)

// ReportsHandler serves stored diagnostics reports.
type ReportsHandler struct {
	store reports.Store
}

// NewReportsHandler constructs handler.
func NewReportsHandler(store reports.Store) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// List handles GET /v1/admin/reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	items, err := h.store.List()
	if err != nil {
		return err
	}
	if items == nil {
		items = []reports.Info{}
	}
	return c.JSON(fiber.Map{"data": items})
}

// Latest handles GET /v1/admin/reports/latest?format=txt|json.
func (h *ReportsHandler) Latest(c *fiber.Ctx) error {
	info, err := h.store.Latest(c.Query("format", "txt"))
	if err != nil {
		return mapReportError(err, "")
	}
	return h.send(c, info.Name)
}

// Get handles GET /v1/admin/reports/:name.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	return h.send(c, c.Params("name"))
}

func (h *ReportsHandler) send(c *fiber.Ctx, name string) error {
	body, err := h.store.Read(name)
	if err != nil {
		return mapReportError(err, name)
	}
	if filepath.Ext(name) == ".json" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}
	c.Set("X-Report-Name", name)
	return c.Send(body)
}

func mapReportError(err error, name string) error {
	switch {
	case errors.Is(err, reports.ErrInvalidReportName):
		return apperrors.NewValidationError("invalid report name", map[string]any{"name": name})
	case errors.Is(err, reports.ErrReportNotFound):
		return apperrors.NewNotFound("report", map[string]any{"name": name})
	default:
		return err
	}
}
