package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/preston-56/lms-backend/internal/config"
	"github.com/preston-56/lms-backend/internal/service"
)

// DiagnosticsHandler runs activity diagnostics on demand.
type DiagnosticsHandler struct {
	diagnostics service.Diagnoser
	cfg         config.SchedulerConfig
}

// NewDiagnosticsHandler constructs handler.
func NewDiagnosticsHandler(d service.Diagnoser, cfg config.SchedulerConfig) *DiagnosticsHandler {
	return &DiagnosticsHandler{diagnostics: d, cfg: cfg}
}

// Run handles POST /v1/admin/diagnostics.
func (h *DiagnosticsHandler) Run(c *fiber.Ctx) error {
	res, err := h.diagnostics.Diagnose(c.UserContext(), h.cfg.Threshold())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": res})
}
