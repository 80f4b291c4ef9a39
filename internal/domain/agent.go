package domain

import "context"

// AgentName identifies one of the fixed domain agents.
type AgentName string

const (
	CustomerSupportAgent AgentName = "CustomerSupportAgent"
	KnowledgeAgent       AgentName = "KnowledgeAgent"
	GeneralAgent         AgentName = "GeneralAgent"
)

// FallbackAgent is where unrecognised router classifications land.
// Note: Dispatch uses GeneralAgent when a decision resolves to no handler;
// the mismatch is inherited behaviour, kept until product decides otherwise.
const FallbackAgent = KnowledgeAgent

// ParseAgentName validates s against the closed agent set.
func ParseAgentName(s string) (AgentName, bool) {
	switch AgentName(s) {
	case CustomerSupportAgent, KnowledgeAgent, GeneralAgent:
		return AgentName(s), true
	}
	return "", false
}

// Request is a single user query entering the system. Immutable after
// creation at the HTTP boundary.
type Request struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Result tags for AgentResult.ToolName that do not correspond to a tool.
const (
	ResultTagLLM   = "llm_response"
	ResultTagFAQ   = "faq_answer"
	ResultTagRAG   = "RAG"
	ResultTagError = "Error"
)

// AgentResult is an agent's raw answer, tagged with the tool (or pseudo-tool)
// that produced it.
type AgentResult struct {
	ToolName string `json:"tool_name"`
	Response string `json:"response"`
}

// AgentHandler is the boundary every domain agent exposes.
type AgentHandler interface {
	Name() AgentName
	Handle(ctx context.Context, req Request) AgentResult
}

// WorkflowStep records one component's action during a request, for
// observability.
type WorkflowStep struct {
	AgentName string `json:"agent_name"`
	Action    string `json:"action"`
}

// Outcome is the orchestrator's final answer for one request.
type Outcome struct {
	Response            string         `json:"response"`
	SourceAgentResponse string         `json:"source_agent_response"`
	Workflow            []WorkflowStep `json:"agent_workflow"`
	Err                 string         `json:"error,omitempty"`
}

// UserRecord is one row of the read-only user seed table.
type UserRecord struct {
	UserID        string
	Email         string
	UserName      string
	PaymentStatus string
	OrderStatus   string
}

// FAQEntry is a static question/answer pair used by the support agent's
// pre-check before any model call.
type FAQEntry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}
