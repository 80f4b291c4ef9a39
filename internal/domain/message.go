package domain

import "time"

// Role constants for message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Name      string     `json:"name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChatRequest is sent to an LLM provider.
type ChatRequest struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Tools       []ToolSchema `json:"tools,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
}

// ChatResponse is returned from an LLM provider.
type ChatResponse struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Message   Message   `json:"message"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ReplyKind discriminates the shape of an assistant reply.
type ReplyKind int

const (
	// ReplyDirectAnswer means the model returned plain content.
	ReplyDirectAnswer ReplyKind = iota
	// ReplyToolRequest means the model asked for one or more tool calls.
	ReplyToolRequest
	// ReplyMalformed means the reply carried neither content nor tool calls.
	ReplyMalformed
)

// Reply is the parsed form of an assistant message. A single parsing step
// produces it; consumers switch exhaustively on Kind instead of probing the
// raw message for optional fields.
type Reply struct {
	Kind ReplyKind
	Text string   // set for ReplyDirectAnswer
	Call ToolCall // set for ReplyToolRequest; always the FIRST call in the message
}

// ParseReply classifies an assistant message into a tagged Reply.
// When the model emits several tool calls in one turn only the first is
// honoured; multi-call turns are an explicit, documented limitation.
func ParseReply(msg Message) Reply {
	if len(msg.ToolCalls) > 0 {
		return Reply{Kind: ReplyToolRequest, Call: msg.ToolCalls[0]}
	}
	if msg.Content != "" {
		return Reply{Kind: ReplyDirectAnswer, Text: msg.Content}
	}
	return Reply{Kind: ReplyMalformed}
}
