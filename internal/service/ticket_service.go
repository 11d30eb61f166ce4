package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/repository"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

const (
	defaultTicketLimit = 50
	maxTicketLimit     = 200
)

// TicketService coordinates ticket lifecycle operations.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTicketService builds the service.
func NewTicketService(tickets repository.TicketRepository, messages repository.MessageRepository, dispatcher events.Dispatcher, logger *zap.Logger) *TicketService {
	return &TicketService{
		tickets:    tickets,
		messages:   messages,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create opens a new ticket with status "open".
func (s *TicketService) Create(ctx context.Context, title, description string) (*domain.Ticket, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	ticket := &domain.Ticket{Title: title, Description: description}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{Title: ticket.Title})
	return ticket, nil
}

// List returns tickets ordered by creation time, newest first.
func (s *TicketService) List(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = defaultTicketLimit
	}
	if limit > maxTicketLimit {
		limit = maxTicketLimit
	}
	return s.tickets.List(ctx, limit)
}

// Get returns a ticket with its recorded chat exchanges.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, nil, err
	}

	msgs, err := s.messages.ListByTicket(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// Update applies a partial update. Only supplied fields change; updated_at
// refreshes on every successful update.
func (s *TicketService) Update(ctx context.Context, id int64, patch repository.TicketPatch) (*domain.Ticket, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewValidationError("status must be open, pending or closed", nil)
	}

	var oldStatus domain.TicketStatus
	if patch.Status != nil {
		existing, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
			}
			return nil, err
		}
		oldStatus = existing.Status
	}

	ticket, err := s.tickets.UpdatePartial(ctx, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}

	if patch.Status != nil && oldStatus != ticket.Status {
		s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  &ticketID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
