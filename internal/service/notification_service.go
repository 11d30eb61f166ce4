package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/events"
)

// EmailSender delivers one email message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, html bool) error
}

// SMSSender delivers one SMS and returns the provider message id.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// NotificationService fronts the delivery adapters for admin dispatch and
// records ticket activity from domain events.
type NotificationService struct {
	email      EmailSender
	sms        SMSSender
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(email EmailSender, sms SMSSender, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		email:      email,
		sms:        sms,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SendEmail dispatches one email. Any adapter failure surfaces unchanged.
func (n *NotificationService) SendEmail(ctx context.Context, to, subject, body string, html bool) error {
	return n.email.Send(ctx, to, subject, body, html)
}

// SendSMS dispatches one SMS and returns the provider SID.
func (n *NotificationService) SendSMS(ctx context.Context, to, body string) (string, error) {
	return n.sms.Send(ctx, to, body)
}

// RegisterHandlers subscribes to domain events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventChatExchangeLogged, n.handleTicketEvent)
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload),
	}
	if event.TicketID != nil {
		fields = append(fields, zap.Int64("ticket_id", *event.TicketID))
	}
	n.logger.Info("ticket activity", fields...)
	return nil
}
