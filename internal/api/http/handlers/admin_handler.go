package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/api/dto"
	"github.com/spec-kit/support-agent/internal/auth"
	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/service"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// AdminHandler serves admin login and notification dispatch endpoints.
type AdminHandler struct {
	authCfg       config.AuthConfig
	tokens        *auth.TokenManager
	notifications *service.NotificationService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authCfg config.AuthConfig, tokens *auth.TokenManager, notifications *service.NotificationService) *AdminHandler {
	return &AdminHandler{authCfg: authCfg, tokens: tokens, notifications: notifications}
}

// Token POST /admin/token. Accepts form-encoded username and password.
func (h *AdminHandler) Token(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	if err := auth.VerifyAdmin(h.authCfg, username, password); err != nil {
		return apperrors.NewUnauthorized("incorrect username or password")
	}

	token, _, err := h.tokens.Generate(username)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// SendEmail POST /admin/email.
func (h *AdminHandler) SendEmail(c *fiber.Ctx) error {
	var req dto.SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.To) == "" {
		return apperrors.NewValidationError("to is required", nil)
	}

	if err := h.notifications.SendEmail(c.UserContext(), req.To, req.Subject, req.Body, req.HTML); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "sent"})
}

// SendSMS POST /admin/sms.
func (h *AdminHandler) SendSMS(c *fiber.Ctx) error {
	var req dto.SendSMSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.To) == "" {
		return apperrors.NewValidationError("to is required", nil)
	}

	sid, err := h.notifications.SendSMS(c.UserContext(), req.To, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sid": sid})
}
