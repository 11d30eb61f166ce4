package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/ai"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/repository"
)

// ChatService proxies chat requests to the completion provider and records
// the exchange against a ticket when one is referenced.
type ChatService struct {
	provider   ai.Provider
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewChatService builds the service.
func NewChatService(provider ai.Provider, messages repository.MessageRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ChatService {
	return &ChatService{
		provider:   provider,
		messages:   messages,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Chat forwards the message to the provider. On success with a ticket
// reference it inserts the user turn then the assistant turn. Persistence
// is best-effort: a storage failure after a successful completion is logged
// and the reply is still returned.
func (s *ChatService) Chat(ctx context.Context, message string, ticketID *int64, history []ai.Message, systemPrompt string) (string, error) {
	reply, err := s.provider.Complete(ctx, message, history, systemPrompt)
	if err != nil {
		return "", err
	}

	if ticketID != nil {
		s.persistExchange(ctx, *ticketID, message, reply)
	}
	return reply, nil
}

func (s *ChatService) persistExchange(ctx context.Context, ticketID int64, message, reply string) {
	userMsg := &domain.Message{TicketID: &ticketID, Role: domain.MessageRoleUser, Content: message}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		s.logger.Error("failed to persist user message",
			zap.Int64("ticket_id", ticketID), zap.Error(err))
		return
	}

	assistantMsg := &domain.Message{TicketID: &ticketID, Role: domain.MessageRoleAssistant, Content: reply}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		s.logger.Error("failed to persist assistant message",
			zap.Int64("ticket_id", ticketID), zap.Error(err))
		return
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventChatExchangeLogged,
			TicketID:  &ticketID,
			Timestamp: time.Now(),
			Payload: events.ChatExchangeLoggedPayload{
				UserMessageID:      userMsg.ID,
				AssistantMessageID: assistantMsg.ID,
			},
		})
	}
}
