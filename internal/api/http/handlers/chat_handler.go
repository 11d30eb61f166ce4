package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/api/dto"
	"github.com/spec-kit/support-agent/internal/service"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// ChatHandler proxies chat requests to the completion provider.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{service: chatService}
}

// Chat POST /chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message is required", nil)
	}

	reply, err := h.service.Chat(c.UserContext(), req.Message, req.TicketID, req.History, req.SystemPrompt)
	if err != nil {
		return err
	}
	return c.JSON(dto.ChatResponse{Reply: reply})
}
