package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/preston-56/lms-backend/internal/api/dto"
	"github.com/preston-56/lms-backend/internal/service"
)

// EmailHandler lets staff send one-off emails.
type EmailHandler struct {
	email *service.EmailService
}

// NewEmailHandler constructs handler.
func NewEmailHandler(s *service.EmailService) *EmailHandler {
	return &EmailHandler{email: s}
}

// Send handles POST /v1/email.
func (h *EmailHandler) Send(c *fiber.Ctx) error {
	var req dto.SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	entry, err := h.email.Send(c.UserContext(), req.Recipient, req.Subject, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": dto.EmailLogResponse{ID: entry.ID, Recipient: entry.Recipient, Subject: entry.Subject, SentAt: entry.SentAt},
	})
}
