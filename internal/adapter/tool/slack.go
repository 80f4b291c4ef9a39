package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/config"
	"agent-swarm/internal/infra/tracer"
)

// SlackNotifier abstracts webhook delivery so tests can capture messages.
type SlackNotifier interface {
	Notify(ctx context.Context, text string) error
}

// WebhookNotifier posts to a Slack incoming webhook.
type WebhookNotifier struct {
	url     string
	channel string
}

// NewWebhookNotifier creates a webhook notifier from config.
func NewWebhookNotifier(cfg config.SlackConfig) *WebhookNotifier {
	return &WebhookNotifier{url: cfg.WebhookURL, channel: cfg.Channel}
}

func (n *WebhookNotifier) Notify(ctx context.Context, text string) error {
	return slack.PostWebhookContext(ctx, n.url, &slack.WebhookMessage{
		Channel: n.channel,
		Text:    text,
	})
}

// MockSlackNotifier records notifications for testing.
type MockSlackNotifier struct {
	Messages []string
	Err      error
}

func (m *MockSlackNotifier) Notify(_ context.Context, text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, text)
	return nil
}

// SlackNotificationTool posts a message about a user to the team alert
// channel.
type SlackNotificationTool struct {
	notifier SlackNotifier
	logger   *slog.Logger
}

// NewSlackNotificationTool creates the notification tool. If notifier is nil,
// a MockSlackNotifier is used.
func NewSlackNotificationTool(notifier SlackNotifier, logger *slog.Logger) *SlackNotificationTool {
	if notifier == nil {
		notifier = &MockSlackNotifier{}
	}
	return &SlackNotificationTool{notifier: notifier, logger: logger}
}

func (t *SlackNotificationTool) Name() string { return "send_slack_notification_tool" }
func (t *SlackNotificationTool) Description() string {
	return "Send a notification about a user to the team Slack channel."
}

func (t *SlackNotificationTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"user_id": {"type": "string", "description": "The user's account ID"},
				"message": {"type": "string", "description": "The notification text"}
			},
			"required": ["user_id", "message"]
		}`),
	}
}

type slackNotifyParams struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (t *SlackNotificationTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.slack_notify", t.logger, params,
		func(ctx context.Context, span trace.Span, p slackNotifyParams) (any, error) {
			if err := RequireFields("user_id", p.UserID, "message", p.Message); err != nil {
				return nil, err
			}

			span.SetAttributes(tracer.StringAttr("tool.user_id", p.UserID))

			text := fmt.Sprintf("[%s] %s", p.UserID, p.Message)
			if err := t.notifier.Notify(ctx, text); err != nil {
				return nil, fmt.Errorf("post webhook: %w", err)
			}

			t.logger.Info("slack notification sent", "user_id", p.UserID)
			return fmt.Sprintf("Notification sent to the team channel for user %s.", p.UserID), nil
		},
	)
}
