package domain

import "time"

// MessageRole indicates which side of the conversation authored a turn.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message captures one turn of a chat exchange, optionally tied to a ticket.
// Messages are append-only: never mutated or deleted after creation.
type Message struct {
	ID        int64
	TicketID  *int64
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}
