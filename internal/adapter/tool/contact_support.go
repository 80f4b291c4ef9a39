package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/config"
	"agent-swarm/internal/infra/tracer"
)

// EmailBackend abstracts outbound mail delivery for the support escalation
// path.
type EmailBackend interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPBackend delivers mail through a plain SMTP server.
type SMTPBackend struct {
	host     string
	port     int
	sender   string
	password string
}

// NewSMTPBackend creates an SMTP backend from config.
func NewSMTPBackend(cfg config.SMTPConfig) *SMTPBackend {
	return &SMTPBackend{
		host:     cfg.Host,
		port:     cfg.Port,
		sender:   cfg.Sender,
		password: cfg.Password,
	}
}

func (b *SMTPBackend) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", b.host, b.port)
	msg := []byte("From: " + b.sender + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if b.password != "" {
		auth = smtp.PlainAuth("", b.sender, b.password, b.host)
	}
	return smtp.SendMail(addr, auth, b.sender, []string{to}, msg)
}

// MockEmailBackend records sends for testing and development.
type MockEmailBackend struct {
	Sent []MockEmail
	Err  error
}

// MockEmail is one recorded delivery.
type MockEmail struct {
	To, Subject, Body string
}

func NewMockEmailBackend() *MockEmailBackend { return &MockEmailBackend{} }

func (m *MockEmailBackend) Send(_ context.Context, to, subject, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, MockEmail{To: to, Subject: subject, Body: body})
	return nil
}

// ContactSupportTool escalates a user's question to the human support inbox.
type ContactSupportTool struct {
	backend EmailBackend
	inbox   string
	logger  *slog.Logger
}

// NewContactSupportTool creates the escalation tool. If backend is nil, a
// MockEmailBackend is used.
func NewContactSupportTool(backend EmailBackend, inbox string, logger *slog.Logger) *ContactSupportTool {
	if backend == nil {
		backend = NewMockEmailBackend()
	}
	return &ContactSupportTool{backend: backend, inbox: inbox, logger: logger}
}

func (t *ContactSupportTool) Name() string { return "contact_support_tool" }
func (t *ContactSupportTool) Description() string {
	return "Escalate a question to the human support team by email when it cannot be answered from the account record or FAQ."
}

func (t *ContactSupportTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"user_id": {"type": "string", "description": "The user's account ID"},
				"question": {"type": "string", "description": "The question to forward to support"}
			},
			"required": ["user_id", "question"]
		}`),
	}
}

type contactSupportParams struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

func (t *ContactSupportTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.contact_support", t.logger, params,
		func(ctx context.Context, span trace.Span, p contactSupportParams) (any, error) {
			if err := RequireFields("user_id", p.UserID, "question", p.Question); err != nil {
				return nil, err
			}

			span.SetAttributes(tracer.StringAttr("tool.user_id", p.UserID))

			subject := fmt.Sprintf("Support request from %s", p.UserID)
			body := fmt.Sprintf("User %s asked:\n\n%s\n", p.UserID, p.Question)
			if err := t.backend.Send(ctx, t.inbox, subject, body); err != nil {
				return nil, fmt.Errorf("forward to support: %w", err)
			}

			t.logger.Info("support request forwarded", "user_id", p.UserID)
			return fmt.Sprintf("Your question has been forwarded to our support team. They will reply to the email on file for account %s.", p.UserID), nil
		},
	)
}
