package usecase

import (
	"context"
	"crypto/rand"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/tracer"
)

// Orchestrator runs the full request chain: route, dispatch, personality
// rewrite. One Process call is one synchronous chain; concurrency lives at
// the HTTP layer.
type Orchestrator struct {
	router      *Router
	personality *Personality
	logger      *slog.Logger
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(router *Router, personality *Personality, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{router: router, personality: personality, logger: logger}
}

// Process answers one user request and records the workflow trace.
func (o *Orchestrator) Process(ctx context.Context, req domain.Request) domain.Outcome {
	requestID := ulid.MustNew(ulid.Now(), rand.Reader).String()
	logger := o.logger.With("request_id", requestID, "user_id", req.UserID)

	ctx, span := tracer.StartSpan(ctx, "orchestrator.process",
		trace.WithAttributes(tracer.StringAttr("request.id", requestID)),
	)
	defer span.End()

	var workflow []domain.WorkflowStep

	decision := o.router.Decide(ctx, req.Message)
	workflow = append(workflow, domain.WorkflowStep{
		AgentName: "Router",
		Action:    "route_to:" + string(decision),
	})
	logger.Info("routed", "agent", string(decision))

	agent, result, err := o.router.Dispatch(ctx, decision, req)
	if err != nil {
		tracer.RecordError(span, err)
		logger.Error("dispatch failed", "agent", string(agent), "error", err)
		return domain.Outcome{
			Workflow: workflow,
			Err:      "agent " + string(agent) + " is unavailable",
		}
	}
	workflow = append(workflow, domain.WorkflowStep{
		AgentName: string(agent),
		Action:    result.ToolName,
	})
	logger.Info("agent answered", "agent", string(agent), "tool", result.ToolName)

	response := o.personality.Rewrite(ctx, result.Response, req.Message)
	workflow = append(workflow, domain.WorkflowStep{
		AgentName: "PersonalityLayer",
		Action:    "rewrite",
	})

	span.SetAttributes(
		tracer.StringAttr("orchestrator.agent", string(agent)),
		tracer.StringAttr("orchestrator.tool", result.ToolName),
	)
	tracer.SetOK(span)

	return domain.Outcome{
		Response:            response,
		SourceAgentResponse: result.Response,
		Workflow:            workflow,
	}
}
