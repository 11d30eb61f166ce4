package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/ai"
	"github.com/spec-kit/support-agent/internal/api/http/handlers"
	"github.com/spec-kit/support-agent/internal/auth"
	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/repository"
	"github.com/spec-kit/support-agent/internal/service"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

type stubProvider struct {
	reply string
	err   error
}

func (p *stubProvider) Complete(ctx context.Context, userMessage string, history []ai.Message, systemPrompt string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type memTicketRepo struct {
	tickets map[int64]*domain.Ticket
	nextID  int64
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.nextID++
	now := time.Now()
	ticket.ID = r.nextID
	ticket.Status = domain.TicketStatusOpen
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) List(ctx context.Context, limit int) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		result = append(result, *ticket)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *memTicketRepo) UpdatePartial(ctx context.Context, id int64, patch repository.TicketPatch) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		ticket.Title = *patch.Title
	}
	if patch.Description != nil {
		ticket.Description = *patch.Description
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	ticket.UpdatedAt = time.Now().Add(time.Millisecond)
	copied := *ticket
	return &copied, nil
}

type memMessageRepo struct {
	created []domain.Message
}

func (r *memMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	msg.ID = int64(len(r.created) + 1)
	msg.CreatedAt = time.Now()
	r.created = append(r.created, *msg)
	return nil
}

func (r *memMessageRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	var result []domain.Message
	for _, msg := range r.created {
		if msg.TicketID != nil && *msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type stubEmailSender struct{ err error }

func (s *stubEmailSender) Send(ctx context.Context, to, subject, body string, html bool) error {
	return s.err
}

type stubSMSSender struct {
	sid string
	err error
}

func (s *stubSMSSender) Send(ctx context.Context, to, body string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.sid, nil
}

type testEnv struct {
	app      *fiber.App
	provider *stubProvider
	tickets  *memTicketRepo
	messages *memMessageRepo
	email    *stubEmailSender
	sms      *stubSMSSender
	tokens   *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		provider: &stubProvider{reply: "assistant reply"},
		tickets:  &memTicketRepo{tickets: make(map[int64]*domain.Ticket)},
		messages: &memMessageRepo{},
		email:    &stubEmailSender{},
		sms:      &stubSMSSender{sid: "SM123"},
	}

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	authCfg := config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenTTLHours: 8,
		AdminUser:     "admin",
		AdminPass:     "adminpass",
	}
	env.tokens = auth.NewTokenManager(authCfg.JWTSecret, authCfg.TokenTTLHours)

	chatService := service.NewChatService(env.provider, env.messages, dispatcher, logger)
	ticketService := service.NewTicketService(env.tickets, env.messages, dispatcher, logger)
	notificationService := service.NewNotificationService(env.email, env.sms, dispatcher, logger)

	env.app = fiber.New()
	RegisterMiddlewares(env.app, MiddlewareConfig{
		Logger:      logger,
		Metrics:     observability.NewMetrics(),
		Timeout:     5 * time.Second,
		CORSOrigins: "*",
	})
	RegisterRoutes(env.app, RouteConfig{
		Health:         handlers.NewHealthHandler(),
		Chat:           handlers.NewChatHandler(chatService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Admin:          handlers.NewAdminHandler(authCfg, env.tokens, notificationService),
		AuthMiddleware: auth.NewMiddleware(env.tokens),
	})
	return env
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return execute(t, app, req)
}

func execute(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, env.app, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/chat", map[string]any{"message": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "VALIDATION_FAILED" {
		t.Errorf("unexpected error %v", errObj)
	}
}

func TestChatReturnsReply(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/chat", map[string]any{"message": "help me"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["reply"] != "assistant reply" {
		t.Errorf("unexpected body %v", body)
	}
	if len(env.messages.created) != 0 {
		t.Errorf("expected no persisted messages without ticket_id, got %d", len(env.messages.created))
	}
}

func TestChatWithTicketPersistsPair(t *testing.T) {
	env := newTestEnv(t)

	createResp, created := doJSON(t, env.app, http.MethodPost, "/tickets", map[string]any{"title": "Login broken"})
	if createResp.StatusCode != http.StatusOK {
		t.Fatalf("create ticket: %d", createResp.StatusCode)
	}
	ticketID := int64(created["id"].(float64))

	resp, _ := doJSON(t, env.app, http.MethodPost, "/chat", map[string]any{
		"message":   "still broken",
		"ticket_id": ticketID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: %d", resp.StatusCode)
	}

	if len(env.messages.created) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(env.messages.created))
	}
	if env.messages.created[0].Role != domain.MessageRoleUser {
		t.Error("expected user turn first")
	}
	if env.messages.created[1].Role != domain.MessageRoleAssistant {
		t.Error("expected assistant turn second")
	}
}

func TestChatUpstreamFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = apperrors.NewUpstreamError("completion API error (500): boom", nil)

	resp, body := doJSON(t, env.app, http.MethodPost, "/chat", map[string]any{"message": "hi"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "UPSTREAM_ERROR" {
		t.Errorf("unexpected error %v", errObj)
	}
	if !strings.Contains(errObj["message"].(string), "boom") {
		t.Errorf("diagnostic not forwarded: %v", errObj)
	}
}

func TestTicketLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, created := doJSON(t, env.app, http.MethodPost, "/tickets", map[string]any{
		"title":       "Login broken",
		"description": "Cannot log in",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: %d", resp.StatusCode)
	}
	if created["status"] != "open" {
		t.Errorf("expected status open, got %v", created["status"])
	}
	if created["created_at"] != created["updated_at"] {
		t.Errorf("expected equal timestamps on create: %v / %v", created["created_at"], created["updated_at"])
	}

	id := int64(created["id"].(float64))

	resp, fetched := doJSON(t, env.app, http.MethodGet, "/tickets/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d", resp.StatusCode)
	}
	if int64(fetched["id"].(float64)) != id {
		t.Errorf("unexpected ticket %v", fetched)
	}

	resp, updated := doJSON(t, env.app, http.MethodPatch, "/tickets/1", map[string]any{"status": "closed"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d", resp.StatusCode)
	}
	if updated["status"] != "closed" {
		t.Errorf("expected status closed, got %v", updated["status"])
	}
	if updated["title"] != "Login broken" {
		t.Errorf("title changed unexpectedly: %v", updated["title"])
	}
}

func TestGetMissingTicketReturns404(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, env.app, http.MethodGet, "/tickets/99", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("unexpected error %v", errObj)
	}
}

func TestPatchMissingTicketReturns404(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, env.app, http.MethodPatch, "/tickets/99", map[string]any{"status": "closed"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPatchRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	doJSON(t, env.app, http.MethodPost, "/tickets", map[string]any{"title": "x"})
	resp, _ := doJSON(t, env.app, http.MethodPatch, "/tickets/1", map[string]any{"status": "archived"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func adminToken(t *testing.T, env *testEnv, username, password string) (*http.Response, map[string]any) {
	t.Helper()
	form := "username=" + username + "&password=" + password
	req := httptest.NewRequest(http.MethodPost, "/admin/token", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return execute(t, env.app, req)
}

func TestAdminTokenIssuance(t *testing.T) {
	env := newTestEnv(t)

	resp, body := adminToken(t, env, "admin", "adminpass")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["token_type"] != "bearer" {
		t.Errorf("unexpected token_type %v", body["token_type"])
	}

	identity, err := env.tokens.Parse(body["access_token"].(string))
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if identity != "admin" {
		t.Errorf("unexpected identity %q", identity)
	}
}

func TestAdminTokenRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range [][2]string{
		{"admin", "wrong"},
		{"intruder", "adminpass"},
	} {
		resp, body := adminToken(t, env, tc[0], tc[1])
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v, got %d", tc, resp.StatusCode)
		}
		if _, ok := body["access_token"]; ok {
			t.Errorf("token issued for bad credentials %v", tc)
		}
	}
}

func TestAdminEmailRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/admin/email", map[string]any{
		"to": "a@b.c", "subject": "s", "body": "b",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminEmailDispatch(t *testing.T) {
	env := newTestEnv(t)
	token := issueToken(t, env)

	req := jsonRequest(t, http.MethodPost, "/admin/email", map[string]any{
		"to": "a@b.c", "subject": "s", "body": "b",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := execute(t, env.app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "sent" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestAdminEmailDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.email.err = apperrors.NewDeliveryError("email delivery failed", nil)
	token := issueToken(t, env)

	req := jsonRequest(t, http.MethodPost, "/admin/email", map[string]any{
		"to": "a@b.c", "subject": "s", "body": "b",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := execute(t, env.app, req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "DELIVERY_FAILED" {
		t.Errorf("unexpected error %v", errObj)
	}
}

func TestAdminSMSDispatch(t *testing.T) {
	env := newTestEnv(t)
	token := issueToken(t, env)

	req := jsonRequest(t, http.MethodPost, "/admin/sms", map[string]any{
		"to": "+15551234567", "body": "hello",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := execute(t, env.app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["sid"] != "SM123" {
		t.Errorf("unexpected body %v", body)
	}
}

func issueToken(t *testing.T, env *testEnv) string {
	t.Helper()
	resp, body := adminToken(t, env, "admin", "adminpass")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token issuance failed: %d", resp.StatusCode)
	}
	return body["access_token"].(string)
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}
