package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/preston-56/lms-backend/internal/api/dto"
	"github.com/preston-56/lms-backend/internal/auth"
	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/service"
)

// NotificationsHandler exposes stored notifications.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(s *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: s}
}

// List handles GET /v1/admin/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	items, err := h.notifications.List(c.UserContext(), c.QueryInt("skip", 0), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponses(items)})
}

// Create handles POST /v1/admin/notifications.
func (h *NotificationsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	n, err := h.notifications.Create(c.UserContext(), req.UserID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewNotificationResponses([]domain.Notification{*n})[0],
	})
}

// Mine handles GET /v1/notifications.
func (h *NotificationsHandler) Mine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	items, err := h.notifications.ListForUser(c.UserContext(), principal.User.ID, c.QueryInt("skip", 0), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponses(items)})
}
