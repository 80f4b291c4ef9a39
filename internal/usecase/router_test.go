package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"agent-swarm/internal/domain"
)

// stubAgent records whether it was called.
type stubAgent struct {
	name   domain.AgentName
	result domain.AgentResult
	called bool
}

func (s *stubAgent) Name() domain.AgentName { return s.name }

func (s *stubAgent) Handle(context.Context, domain.Request) domain.AgentResult {
	s.called = true
	return s.result
}

func TestRouterDecide(t *testing.T) {
	tests := []struct {
		name string
		step func(domain.ChatRequest) (*domain.ChatResponse, error)
		want domain.AgentName
	}{
		{"valid classification", textStep("CustomerSupportAgent"), domain.CustomerSupportAgent},
		{"valid with whitespace", textStep("  KnowledgeAgent\n"), domain.KnowledgeAgent},
		{"unknown agent name", textStep("BillingAgent"), domain.FallbackAgent},
		{"empty content", emptyStep(), domain.FallbackAgent},
		{"freeform prose", textStep("I think the CustomerSupportAgent should handle this."), domain.FallbackAgent},
		{"transport failure", errStep(errors.New("dial tcp: connection refused")), domain.FallbackAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){tt.step}}
			r := NewRouter(llm, "classify", nil, slog.Default())

			if got := r.Decide(context.Background(), "where is my order"); got != tt.want {
				t.Errorf("Decide = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	support := &stubAgent{name: domain.CustomerSupportAgent, result: domain.AgentResult{ToolName: "db_query_tool", Response: "ok"}}
	general := &stubAgent{name: domain.GeneralAgent, result: domain.AgentResult{ToolName: domain.ResultTagLLM, Response: "hi"}}
	r := NewRouter(&scriptedLLM{}, "classify", []domain.AgentHandler{support, general}, slog.Default())

	agent, result, err := r.Dispatch(context.Background(), domain.CustomerSupportAgent, domain.Request{Message: "order?"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if agent != domain.CustomerSupportAgent || !support.called {
		t.Errorf("dispatched to %q, support called=%v", agent, support.called)
	}
	if result.ToolName != "db_query_tool" {
		t.Errorf("result = %+v", result)
	}
}

func TestRouterDispatchMissingHandlerGoesToGeneral(t *testing.T) {
	general := &stubAgent{name: domain.GeneralAgent, result: domain.AgentResult{ToolName: domain.ResultTagLLM, Response: "hi"}}
	r := NewRouter(&scriptedLLM{}, "classify", []domain.AgentHandler{general}, slog.Default())

	agent, _, err := r.Dispatch(context.Background(), domain.KnowledgeAgent, domain.Request{Message: "q"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if agent != domain.GeneralAgent || !general.called {
		t.Errorf("agent = %q, general called=%v", agent, general.called)
	}
}

func TestRouterDispatchNoHandlersErrors(t *testing.T) {
	r := NewRouter(&scriptedLLM{}, "classify", nil, slog.Default())

	_, _, err := r.Dispatch(context.Background(), domain.GeneralAgent, domain.Request{Message: "q"})
	if err == nil {
		t.Fatal("expected error with no registered handlers")
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
