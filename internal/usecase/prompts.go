// Package usecase holds the agent orchestration logic: routing, the
// parametrized agent loop, the personality rewrite, and the request
// orchestrator that ties them together.
package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Prompts holds the system prompt for each component. Loaded once at startup;
// read-only afterwards.
type Prompts struct {
	Router          string
	CustomerSupport string
	Knowledge       string
	General         string
	Personality     string
}

// Placeholders replaced when rendering prompts.
const (
	placeholderContext     = "{context}"
	placeholderRawResponse = "{raw_response}"
	placeholderUserMessage = "{user_message}"
)

// DefaultPrompts returns the built-in prompt set, used when a prompts
// directory is not configured or a file is missing.
func DefaultPrompts() Prompts {
	return Prompts{
		Router: `You are a router for a customer support system. Classify the user's message
and reply with exactly one of these agent names and nothing else:

CustomerSupportAgent - account questions, orders, payments, refunds, or
requests to contact support.
KnowledgeAgent - questions about products, documentation, policies, or
anything answerable from a knowledge base or the web.
GeneralAgent - everything else: news, notifications, small talk.`,
		CustomerSupport: `You are a customer support agent. Answer the user's question about their
account, orders, or payments. Use the available tools to look up user data or
forward the question to the support team. Answer only from tool results; do
not invent account details.`,
		Knowledge: `You are a knowledge agent. Answer the user's question using the provided
context when it is relevant. If the context does not contain the answer, use
the available search tool.

Context:
{context}`,
		General: `You are a general assistant for a customer support system. Help with
anything outside account support and product knowledge. Use the available
tools for news and notifications.`,
		Personality: `Rewrite the following answer in a warm, friendly, and concise customer
support voice. Keep every fact exactly as given; do not add or remove
information.

User question: {user_message}

Answer to rewrite: {raw_response}`,
	}
}

// LoadPrompts reads per-component prompt files from dir, falling back to the
// built-in default for any file that is absent. An empty dir returns the
// defaults unchanged.
func LoadPrompts(dir string) (Prompts, error) {
	p := DefaultPrompts()
	if dir == "" {
		return p, nil
	}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"router.txt", &p.Router},
		{"customer_support.txt", &p.CustomerSupport},
		{"knowledge.txt", &p.Knowledge},
		{"general.txt", &p.General},
		{"personality.txt", &p.Personality},
	} {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return p, fmt.Errorf("load prompt %s: %w", f.name, err)
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			*f.dst = s
		}
	}
	return p, nil
}

// renderContext substitutes retrieved context into a system prompt. Prompts
// without a {context} placeholder get the context appended.
func renderContext(prompt, context string) string {
	if strings.Contains(prompt, placeholderContext) {
		return strings.ReplaceAll(prompt, placeholderContext, context)
	}
	if context == "" {
		return prompt
	}
	return prompt + "\n\nContext:\n" + context
}

// renderPersonality substitutes the raw answer and original question into the
// personality template.
func renderPersonality(tmpl, raw, userMessage string) string {
	s := strings.ReplaceAll(tmpl, placeholderRawResponse, raw)
	return strings.ReplaceAll(s, placeholderUserMessage, userMessage)
}
