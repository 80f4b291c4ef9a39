package usecase

import (
	"context"
	"log/slog"
	"strings"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/tracer"
)

// Personality rewrites a raw agent answer in the assistant's voice with one
// model call. Any failure returns the raw answer unchanged; the layer may
// never lose or degrade an answer that already exists.
type Personality struct {
	llm    domain.LLMProvider
	tmpl   string
	logger *slog.Logger
}

// NewPersonality builds the rewrite layer from a template containing
// {raw_response} and {user_message} placeholders.
func NewPersonality(llm domain.LLMProvider, tmpl string, logger *slog.Logger) *Personality {
	return &Personality{llm: llm, tmpl: tmpl, logger: logger}
}

// Rewrite rephrases raw for the user who asked userMessage.
func (p *Personality) Rewrite(ctx context.Context, raw, userMessage string) string {
	ctx, span := tracer.StartSpan(ctx, "personality.rewrite")
	defer span.End()

	resp, err := p.llm.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: renderPersonality(p.tmpl, raw, userMessage)},
		},
	})
	if err != nil {
		tracer.RecordError(span, err)
		p.logger.Warn("personality rewrite failed, returning raw answer", "error", err)
		return raw
	}

	rewritten := strings.TrimSpace(resp.Message.Content)
	if rewritten == "" {
		p.logger.Warn("personality rewrite produced empty content, returning raw answer")
		return raw
	}

	tracer.SetOK(span)
	return rewritten
}
