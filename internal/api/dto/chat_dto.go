package dto

import "github.com/spec-kit/support-agent/internal/ai"

// ChatRequest payload. History entries are forwarded to the completion API
// verbatim.
type ChatRequest struct {
	Message      string       `json:"message"`
	TicketID     *int64       `json:"ticket_id,omitempty"`
	History      []ai.Message `json:"history,omitempty"`
	SystemPrompt string       `json:"system_prompt,omitempty"`
}

// ChatResponse carries the generated reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}
