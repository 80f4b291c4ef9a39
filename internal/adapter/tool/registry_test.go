package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
)

// staticTool is a minimal tool for registry tests.
type staticTool struct {
	name   string
	params string
	exec   func(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error)
}

func (s *staticTool) Name() string        { return s.name }
func (s *staticTool) Description() string { return "static test tool" }
func (s *staticTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        s.name,
		Description: s.Description(),
		Parameters:  json.RawMessage(s.params),
	}
}
func (s *staticTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if s.exec != nil {
		return s.exec(ctx, params)
	}
	return &domain.ToolResult{Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&staticTool{name: "alpha"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name() != "alpha" {
		t.Errorf("Name = %q", got.Name())
	}

	if err := r.Register(&staticTool{name: "alpha"}); err == nil {
		t.Error("expected error on duplicate register")
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Get("missing")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistrySchemasSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(&staticTool{name: "zeta"}, &staticTool{name: "alpha"})

	schemas := r.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("Schemas len = %d, want 2", len(schemas))
	}
	if schemas[0].Name != "alpha" || schemas[1].Name != "zeta" {
		t.Errorf("schemas not sorted by name: %v, %v", schemas[0].Name, schemas[1].Name)
	}
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(&staticTool{name: "alpha"})

	res := r.Invoke(context.Background(), "hallucinated_tool", json.RawMessage(`{}`))
	if !res.IsError {
		t.Fatal("expected error result for unknown tool")
	}
	if !strings.Contains(res.Content, "unknown tool") {
		t.Errorf("Content = %q, want it to mention unknown tool", res.Content)
	}
}

func TestRegistryInvokeSwallowsExecutionFault(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.MustRegister(&staticTool{
		name: "faulty",
		exec: func(context.Context, json.RawMessage) (*domain.ToolResult, error) {
			return nil, errors.New("machinery fault")
		},
	})

	res := r.Invoke(context.Background(), "faulty", json.RawMessage(`{}`))
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(res.Content, "machinery fault") {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestRegistrySchemaValidationWrap(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.MustRegister(&staticTool{
		name:   "strict",
		params: `{"type":"object","properties":{"user_id":{"type":"string"}},"required":["user_id"]}`,
	})

	res := r.Invoke(context.Background(), "strict", json.RawMessage(`{}`))
	if !res.IsError {
		t.Fatal("expected schema validation failure for missing required field")
	}
	if !strings.Contains(res.Content, "schema validation failed") {
		t.Errorf("Content = %q", res.Content)
	}

	res = r.Invoke(context.Background(), "strict", json.RawMessage(`{"user_id":"client789"}`))
	if res.IsError {
		t.Errorf("valid params rejected: %s", res.Content)
	}
}

func TestExecuteInvalidParams(t *testing.T) {
	res, err := Execute(context.Background(), "tool.test", slog.Default(), json.RawMessage(`{bad`),
		func(ctx context.Context, _ trace.Span, p struct{}) (any, error) {
			t.Fatal("handler should not run on bad params")
			return nil, nil
		})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content, "invalid params") {
		t.Errorf("result = %+v, want invalid params error", res)
	}
}

func TestExecuteHandlerErrorBecomesResult(t *testing.T) {
	res, err := Execute(context.Background(), "tool.test", slog.Default(), json.RawMessage(`{}`),
		func(ctx context.Context, _ trace.Span, p struct{}) (any, error) {
			return nil, errors.New("backend down")
		})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || res.Content != "backend down" {
		t.Errorf("result = %+v", res)
	}
}
