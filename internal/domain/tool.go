package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool for the LLM function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents an LLM's request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool. Handlers convert their own
// failures into a ToolResult with IsError set; a non-nil error from Execute
// is reserved for faults in the execution machinery itself.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup, description, and dispatch for one
// agent's tool subset.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	Schemas() []ToolSchema
	// Invoke dispatches to the named tool. An unknown name yields an
	// "unknown tool" ToolResult, never an error.
	Invoke(ctx context.Context, name string, args json.RawMessage) *ToolResult
}
