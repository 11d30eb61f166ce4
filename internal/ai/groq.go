package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/support-agent/internal/config"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// DefaultSystemPrompt is the persona used when the caller supplies none.
const DefaultSystemPrompt = "You are John — a professional customer support AI."

const (
	completionTemperature = 0.2
	completionMaxTokens   = 800
)

// Message is one role/content entry of a completion request. History entries
// are forwarded verbatim without validation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates an assistant reply for a user message plus history.
type Provider interface {
	Complete(ctx context.Context, userMessage string, history []Message, systemPrompt string) (string, error)
}

// GroqClient is a stateless adapter for the Groq chat-completions API.
type GroqClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGroqClient builds a client from configuration.
func NewGroqClient(cfg config.GroqConfig) *GroqClient {
	return &GroqClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends [system, history..., user] to the upstream API and returns
// the generated reply text.
func (c *GroqClient) Complete(ctx context.Context, userMessage string, history []Message, systemPrompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userMessage})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewUpstreamError("build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError("completion API unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperrors.NewUpstreamError("read completion response", err)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", apperrors.NewUpstreamError(fmt.Sprintf("completion API responded non-json (%d)", resp.StatusCode), err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("completion API error (%d)", resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = fmt.Sprintf("completion API error (%d): %s", resp.StatusCode, decoded.Error.Message)
		}
		return "", apperrors.NewUpstreamError(msg, nil)
	}

	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", apperrors.NewUpstreamError("unexpected completion response shape", nil)
	}
	return decoded.Choices[0].Message.Content, nil
}
