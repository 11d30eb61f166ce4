package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/api/dto"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/repository"
	"github.com/spec-kit/support-agent/internal/service"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// TicketsHandler manages ticket CRUD endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.UserContext(), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(ticketView(ticket, nil))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	tickets, err := h.service.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	views := make([]dto.TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, ticketView(&tickets[i], nil))
	}
	return c.JSON(views)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}

	ticket, msgs, err := h.service.Get(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	return c.JSON(ticketView(ticket, msgs))
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := repository.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		patch.Status = &status
	}

	ticket, err := h.service.Update(c.UserContext(), int64(id), patch)
	if err != nil {
		return err
	}
	return c.JSON(ticketView(ticket, nil))
}

func ticketView(ticket *domain.Ticket, msgs []domain.Message) dto.TicketView {
	view := dto.TicketView{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		CreatedAt:   ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   ticket.UpdatedAt.Format(time.RFC3339),
	}
	for _, msg := range msgs {
		view.Messages = append(view.Messages, dto.MessageView{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}
	return view
}
