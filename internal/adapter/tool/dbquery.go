package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/adapter/userstore"
	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/tracer"
)

// DBQueryTool answers account lookups (email, name, payment and order status)
// from the user store.
type DBQueryTool struct {
	store  *userstore.Store
	logger *slog.Logger
}

// NewDBQueryTool creates a db query tool over the given user store.
func NewDBQueryTool(store *userstore.Store, logger *slog.Logger) *DBQueryTool {
	return &DBQueryTool{store: store, logger: logger}
}

func (t *DBQueryTool) Name() string { return "db_query_tool" }
func (t *DBQueryTool) Description() string {
	return "Look up a field of a user's account record: email, user_name, payment_status, or order_status."
}

func (t *DBQueryTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"user_id": {"type": "string", "description": "The user's account ID"},
				"field": {
					"type": "string",
					"enum": ["email", "user_name", "payment_status", "order_status"],
					"description": "The account field to look up"
				}
			},
			"required": ["user_id", "field"]
		}`),
	}
}

type dbQueryParams struct {
	UserID string `json:"user_id"`
	Field  string `json:"field"`
}

func (t *DBQueryTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.db_query", t.logger, params,
		func(ctx context.Context, span trace.Span, p dbQueryParams) (any, error) {
			if err := ValidateAll(
				RequireFields("user_id", p.UserID, "field", p.Field),
				ValidateEnum("field", p.Field, userstore.Fields...),
			); err != nil {
				return nil, err
			}

			span.SetAttributes(
				tracer.StringAttr("tool.user_id", p.UserID),
				tracer.StringAttr("tool.field", p.Field),
			)

			value, err := t.store.Field(ctx, p.UserID, p.Field)
			if errors.Is(err, domain.ErrUserNotFound) {
				return ErrResult("no account found for user %q", p.UserID)
			}
			if err != nil {
				return nil, err
			}

			t.logger.Debug("db query completed", "user_id", p.UserID, "field", p.Field)
			return fmt.Sprintf("The %s for user %s is: %s", p.Field, p.UserID, value), nil
		},
	)
}
