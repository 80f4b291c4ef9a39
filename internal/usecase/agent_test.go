package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"agent-swarm/internal/domain"
)

// scriptedLLM plays back a fixed sequence of responses, one per Chat call.
type scriptedLLM struct {
	mu     sync.Mutex
	calls  int
	script []func(req domain.ChatRequest) (*domain.ChatResponse, error)
}

func (s *scriptedLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	if i >= len(s.script) {
		return nil, fmt.Errorf("unexpected chat call %d", i+1)
	}
	return s.script[i](req)
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func textStep(text string) func(domain.ChatRequest) (*domain.ChatResponse, error) {
	return func(domain.ChatRequest) (*domain.ChatResponse, error) {
		return &domain.ChatResponse{
			Message: domain.Message{Role: domain.RoleAssistant, Content: text},
		}, nil
	}
}

func toolCallStep(name, args string) func(domain.ChatRequest) (*domain.ChatResponse, error) {
	return func(domain.ChatRequest) (*domain.ChatResponse, error) {
		return &domain.ChatResponse{
			Message: domain.Message{
				Role: domain.RoleAssistant,
				ToolCalls: []domain.ToolCall{
					{ID: "call_1", Name: name, Arguments: json.RawMessage(args)},
				},
			},
		}, nil
	}
}

func errStep(err error) func(domain.ChatRequest) (*domain.ChatResponse, error) {
	return func(domain.ChatRequest) (*domain.ChatResponse, error) { return nil, err }
}

func emptyStep() func(domain.ChatRequest) (*domain.ChatResponse, error) {
	return textStep("")
}

// fakeExecutor is a canned ToolExecutor for agent tests.
type fakeExecutor struct {
	schemas []domain.ToolSchema
	invoke  func(name string, args json.RawMessage) *domain.ToolResult
	invoked []string
}

func (f *fakeExecutor) Get(name string) (domain.Tool, error) {
	return nil, domain.NewDomainError("fakeExecutor.Get", domain.ErrToolNotFound, name)
}

func (f *fakeExecutor) Schemas() []domain.ToolSchema { return f.schemas }

func (f *fakeExecutor) Invoke(_ context.Context, name string, args json.RawMessage) *domain.ToolResult {
	f.invoked = append(f.invoked, name)
	if f.invoke != nil {
		return f.invoke(name, args)
	}
	return &domain.ToolResult{IsError: true, Content: fmt.Sprintf("unknown tool %q", name)}
}

func noTools() *fakeExecutor { return &fakeExecutor{} }

func TestAgentDirectAnswer(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		textStep("Our refund window is 30 days."),
	}}
	agent := NewAgent(domain.KnowledgeAgent, "You answer questions.", llm, noTools(), slog.Default())

	result := agent.Handle(context.Background(), domain.Request{UserID: "u1", Message: "What is the refund window?"})

	if result.ToolName != domain.ResultTagLLM {
		t.Errorf("ToolName = %q, want %q", result.ToolName, domain.ResultTagLLM)
	}
	if result.Response != "Our refund window is 30 days." {
		t.Errorf("Response = %q", result.Response)
	}
}

func TestAgentEmptyReplyTaggedError(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		emptyStep(),
	}}
	agent := NewAgent(domain.GeneralAgent, "prompt", llm, noTools(), slog.Default())

	result := agent.Handle(context.Background(), domain.Request{Message: "hello"})

	if result.ToolName != domain.ResultTagError {
		t.Errorf("ToolName = %q, want %q", result.ToolName, domain.ResultTagError)
	}
	if result.Response == "" {
		t.Error("Response should carry an apology, got empty")
	}
}

func TestAgentChatFailureApology(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		errStep(errors.New("connection refused")),
	}}
	agent := NewAgent(domain.GeneralAgent, "prompt", llm, noTools(), slog.Default())

	result := agent.Handle(context.Background(), domain.Request{Message: "hello"})

	if result.ToolName != domain.ResultTagError {
		t.Errorf("ToolName = %q, want %q", result.ToolName, domain.ResultTagError)
	}
	if !strings.Contains(result.Response, "sorry") {
		t.Errorf("Response = %q, want apology", result.Response)
	}
}

func TestAgentToolCallInvoked(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		toolCallStep("db_query_tool", `{"user_id":"client789","field":"order_status"}`),
	}}
	exec := &fakeExecutor{
		invoke: func(name string, args json.RawMessage) *domain.ToolResult {
			return &domain.ToolResult{Content: "The order_status for user client789 is: Shipped"}
		},
	}
	agent := NewAgent(domain.CustomerSupportAgent, "prompt", llm, exec, slog.Default())

	result := agent.Handle(context.Background(), domain.Request{UserID: "client789", Message: "Where is my order?"})

	if result.ToolName != "db_query_tool" {
		t.Errorf("ToolName = %q, want db_query_tool", result.ToolName)
	}
	if !strings.Contains(result.Response, "Shipped") {
		t.Errorf("Response = %q", result.Response)
	}
	if len(exec.invoked) != 1 || exec.invoked[0] != "db_query_tool" {
		t.Errorf("invoked = %v", exec.invoked)
	}
}

func TestAgentUnknownToolResultPassedThrough(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		toolCallStep("nonexistent_tool", `{}`),
	}}
	agent := NewAgent(domain.GeneralAgent, "prompt", llm, &fakeExecutor{}, slog.Default())

	result := agent.Handle(context.Background(), domain.Request{Message: "do something"})

	if result.ToolName != "nonexistent_tool" {
		t.Errorf("ToolName = %q", result.ToolName)
	}
	if !strings.Contains(result.Response, "unknown tool") {
		t.Errorf("Response = %q, want unknown tool message", result.Response)
	}
}

func TestAgentFAQShortCircuitSkipsLLM(t *testing.T) {
	llm := &scriptedLLM{}
	faq := NewFAQPreCheck(context.Background(), []domain.FAQEntry{
		{Question: "How can I Contact Support?", Answer: "You can contact support by support@example.com"},
	}, 0.7, nil, slog.Default())
	agent := NewAgent(domain.CustomerSupportAgent, "prompt", llm, noTools(), slog.Default(),
		WithPreCheck(faq))

	result := agent.Handle(context.Background(), domain.Request{Message: "how can i contact support"})

	if result.ToolName != domain.ResultTagFAQ {
		t.Errorf("ToolName = %q, want %q", result.ToolName, domain.ResultTagFAQ)
	}
	if result.Response != "You can contact support by support@example.com" {
		t.Errorf("Response = %q", result.Response)
	}
	if llm.callCount() != 0 {
		t.Errorf("llm calls = %d, want 0", llm.callCount())
	}
}

func TestAgentContextAnswerTaggedRAG(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		func(req domain.ChatRequest) (*domain.ChatResponse, error) {
			if !strings.Contains(req.Messages[0].Content, "Refunds take 5 days.") {
				return nil, fmt.Errorf("system prompt missing retrieved context: %q", req.Messages[0].Content)
			}
			return textStep("Refunds take five business days.")(req)
		},
	}}
	retriever := retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return []string{"Refunds take 5 days."}, nil
	})
	agent := NewAgent(domain.KnowledgeAgent, "Answer from context.\n\nContext:\n{context}", llm, noTools(), slog.Default(),
		WithPreCheck(NewRetrievalPreCheck(retriever, 3, slog.Default())))

	result := agent.Handle(context.Background(), domain.Request{Message: "How long do refunds take?"})

	if result.ToolName != domain.ResultTagRAG {
		t.Errorf("ToolName = %q, want %q", result.ToolName, domain.ResultTagRAG)
	}
}

// retrieverFunc adapts a function to the Retriever interface.
type retrieverFunc func(ctx context.Context, query string, limit int) ([]string, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	return f(ctx, query, limit)
}
