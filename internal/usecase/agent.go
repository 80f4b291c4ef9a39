package usecase

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/tracer"
)

const apologyResponse = "I'm sorry, I wasn't able to answer that right now. Please try again in a moment."

// TokenEstimator estimates the prompt token count of a chat request.
type TokenEstimator func(req domain.ChatRequest) int

// Agent is a single domain agent: one system prompt, one tool subset, one
// model round. All three agents are instances of this type.
type Agent struct {
	name      domain.AgentName
	prompt    string
	llm       domain.LLMProvider
	tools     domain.ToolExecutor
	precheck  PreCheck
	estimator TokenEstimator
	logger    *slog.Logger
}

// AgentOption configures optional Agent collaborators.
type AgentOption func(*Agent)

// WithPreCheck installs a pre-check that runs before the model call.
func WithPreCheck(p PreCheck) AgentOption {
	return func(a *Agent) { a.precheck = p }
}

// WithTokenEstimator installs a prompt token estimator, recorded on the agent
// span for each turn.
func WithTokenEstimator(e TokenEstimator) AgentOption {
	return func(a *Agent) { a.estimator = e }
}

// NewAgent builds a domain agent.
func NewAgent(name domain.AgentName, prompt string, llm domain.LLMProvider, tools domain.ToolExecutor, logger *slog.Logger, opts ...AgentOption) *Agent {
	a := &Agent{
		name:   name,
		prompt: prompt,
		llm:    llm,
		tools:  tools,
		logger: logger.With("agent", string(name)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent's identity.
func (a *Agent) Name() domain.AgentName { return a.name }

// Handle runs one agent turn: pre-check, model call with tools, at most one
// tool invocation. Failures degrade to apology results; Handle never panics
// and never surfaces an error to the caller.
func (a *Agent) Handle(ctx context.Context, req domain.Request) domain.AgentResult {
	ctx, span := tracer.StartSpan(ctx, "agent.handle",
		trace.WithAttributes(tracer.StringAttr("agent.name", string(a.name))),
	)
	defer span.End()

	var outcome PreCheckOutcome
	if a.precheck != nil {
		outcome = a.precheck.Run(ctx, req)
		if outcome.Result != nil {
			a.logger.Info("precheck short-circuit", "tag", outcome.Result.ToolName)
			span.SetAttributes(tracer.StringAttr("agent.result", outcome.Result.ToolName))
			tracer.SetOK(span)
			return *outcome.Result
		}
	}

	chatReq := domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: renderContext(a.prompt, outcome.Context)},
			{Role: domain.RoleUser, Content: req.Message},
		},
		Tools: a.tools.Schemas(),
	}
	if a.estimator != nil {
		span.SetAttributes(tracer.IntAttr("agent.prompt_tokens_estimate", a.estimator(chatReq)))
	}

	resp, err := a.llm.Chat(ctx, chatReq)
	if err != nil {
		tracer.RecordError(span, err)
		a.logger.Error("agent chat failed", "error", err)
		return domain.AgentResult{ToolName: domain.ResultTagError, Response: apologyResponse}
	}

	reply := domain.ParseReply(resp.Message)
	switch reply.Kind {
	case domain.ReplyDirectAnswer:
		tag := domain.ResultTagLLM
		if outcome.Context != "" && outcome.Tag != "" {
			tag = outcome.Tag
		}
		span.SetAttributes(tracer.StringAttr("agent.result", tag))
		tracer.SetOK(span)
		return domain.AgentResult{ToolName: tag, Response: reply.Text}

	case domain.ReplyToolRequest:
		return a.runTool(ctx, span, reply.Call, req)

	default:
		a.logger.Warn("agent reply had no content and no tool call")
		span.SetAttributes(tracer.StringAttr("agent.result", domain.ResultTagError))
		return domain.AgentResult{ToolName: domain.ResultTagError, Response: apologyResponse}
	}
}

// runTool executes the model's first tool call and returns its output as the
// agent's answer. Error results from the tool are passed through verbatim so
// the personality layer can phrase them for the user.
func (a *Agent) runTool(ctx context.Context, span trace.Span, call domain.ToolCall, req domain.Request) domain.AgentResult {
	a.logger.Info("agent invoking tool", "tool", call.Name, "user_id", req.UserID)
	span.SetAttributes(tracer.StringAttr("agent.tool", call.Name))

	result := a.tools.Invoke(ctx, call.Name, call.Arguments)
	if result.IsError {
		a.logger.Warn("tool returned error result", "tool", call.Name, "content", result.Content)
	}

	response := strings.TrimSpace(result.Content)
	if response == "" {
		response = apologyResponse
	}
	tracer.SetOK(span)
	return domain.AgentResult{ToolName: call.Name, Response: response}
}
