package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/preston-56/lms-backend/internal/api/dto"
	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/scheduler"
	apperrors "github.com/preston-56/lms-backend/pkg/util"
)

// SchedulerController is the scheduler surface used by the admin API.
type SchedulerController interface {
	RunNow(ctx context.Context, trigger domain.RunTrigger) (domain.RunResult, error)
	Status() scheduler.Status
	Control(ctx context.Context, action, cronExpr string) (string, error)
	State() scheduler.State
}

// SchedulerHandler exposes the notification job to administrators.
type SchedulerHandler struct {
	scheduler SchedulerController
}

// NewSchedulerHandler constructs handler.
func NewSchedulerHandler(s SchedulerController) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s}
}

// Trigger handles POST /v1/admin/scheduler/run-notifications. The run is
// detached from the request deadline and bounded by its own timeout.
func (h *SchedulerHandler) Trigger(c *fiber.Ctx) error {
	res, err := h.scheduler.RunNow(context.WithoutCancel(c.UserContext()), domain.RunTriggerManual)
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			return apperrors.NewConflict(err.Error(), nil)
		}
		return err
	}
	if res.Status == domain.RunStatusFailed {
		return c.Status(http.StatusInternalServerError).JSON(dto.TriggerResponse{
			Status:  string(domain.RunStatusFailed),
			Message: fmt.Sprintf("Notification task failed: %s. Notified %d inactive students.", res.Error, res.Notified),
			Count:   res.Notified,
			Run:     res,
		})
	}

	status := "success"
	if res.Status == domain.RunStatusPartial {
		status = string(domain.RunStatusPartial)
	}
	return c.JSON(dto.TriggerResponse{
		Status:  status,
		Message: fmt.Sprintf("Notification task triggered. Notified %d inactive students.", res.Notified),
		Count:   res.Notified,
		Run:     res,
	})
}

// Status handles GET /v1/admin/scheduler/status.
func (h *SchedulerHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.scheduler.Status())
}

// Control handles POST /v1/admin/scheduler/control.
func (h *SchedulerHandler) Control(c *fiber.Ctx) error {
	var req dto.SchedulerControlRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	msg, err := h.scheduler.Control(c.UserContext(), req.Action, req.Cron)
	switch {
	case errors.Is(err, scheduler.ErrInvalidAction):
		return apperrors.NewValidationError(fmt.Sprintf("invalid action %q", req.Action),
			map[string]any{"valid_actions": scheduler.ValidActions()})
	case errors.Is(err, scheduler.ErrNotRunning):
		return apperrors.NewConflict(err.Error(), map[string]any{"status": h.scheduler.State()})
	case err != nil:
		return err
	}

	return c.JSON(dto.SchedulerControlResponse{
		Status:    "success",
		Message:   msg,
		Scheduler: string(h.scheduler.State()),
	})
}
