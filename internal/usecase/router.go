package usecase

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/tracer"
)

// Router classifies incoming messages into one of the fixed agents and
// dispatches to the matching handler.
type Router struct {
	llm      domain.LLMProvider
	prompt   string
	handlers map[domain.AgentName]domain.AgentHandler
	logger   *slog.Logger
}

// NewRouter builds a router over the given handlers.
func NewRouter(llm domain.LLMProvider, prompt string, handlers []domain.AgentHandler, logger *slog.Logger) *Router {
	m := make(map[domain.AgentName]domain.AgentHandler, len(handlers))
	for _, h := range handlers {
		m[h.Name()] = h
	}
	return &Router{llm: llm, prompt: prompt, handlers: m, logger: logger}
}

// Decide classifies message with one model call. Any failure, and any output
// outside the closed agent set, resolves to the fallback agent.
func (r *Router) Decide(ctx context.Context, message string) domain.AgentName {
	ctx, span := tracer.StartSpan(ctx, "router.decide")
	defer span.End()

	resp, err := r.llm.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: r.prompt},
			{Role: domain.RoleUser, Content: message},
		},
	})
	if err != nil {
		tracer.RecordError(span, err)
		r.logger.Warn("router classification failed, using fallback", "error", err, "fallback", string(domain.FallbackAgent))
		return domain.FallbackAgent
	}

	raw := strings.TrimSpace(resp.Message.Content)
	name, ok := domain.ParseAgentName(raw)
	if !ok {
		r.logger.Warn("router produced unknown agent, using fallback", "raw", raw, "fallback", string(domain.FallbackAgent))
		span.SetAttributes(tracer.StringAttr("router.raw", raw))
		return domain.FallbackAgent
	}

	span.SetAttributes(tracer.StringAttr("router.decision", string(name)))
	tracer.SetOK(span)
	return name
}

// Dispatch forwards the request to the handler for decision. A decision with
// no registered handler goes to GeneralAgent; this differs from the Decide
// fallback on purpose, see the note on domain.FallbackAgent.
func (r *Router) Dispatch(ctx context.Context, decision domain.AgentName, req domain.Request) (domain.AgentName, domain.AgentResult, error) {
	ctx, span := tracer.StartSpan(ctx, "router.dispatch",
		trace.WithAttributes(tracer.StringAttr("router.decision", string(decision))),
	)
	defer span.End()

	handler, ok := r.handlers[decision]
	if !ok {
		r.logger.Warn("no handler for decision, dispatching to GeneralAgent", "decision", string(decision))
		decision = domain.GeneralAgent
		handler, ok = r.handlers[decision]
		if !ok {
			err := domain.NewDomainError("Router.Dispatch", domain.ErrInvalidInput, "no handler registered for "+string(decision))
			tracer.RecordError(span, err)
			return decision, domain.AgentResult{}, err
		}
	}

	result := handler.Handle(ctx, req)
	tracer.SetOK(span)
	return decision, result, nil
}
