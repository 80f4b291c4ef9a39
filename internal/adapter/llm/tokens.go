package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"agent-swarm/internal/domain"
)

// TokenCounter counts prompt tokens with cl100k_base encoding. Used to guard
// against sending a prompt the provider will reject with a context overflow.
type TokenCounter struct {
	enc  *tiktoken.Tiktoken
	once sync.Once
	err  error
}

var defaultCounter = &TokenCounter{}

// CountText returns the number of tokens in text.
func CountText(text string) int {
	return defaultCounter.Count(text)
}

// CountRequest returns the approximate prompt token count of a chat request,
// including tool schemas.
func CountRequest(req domain.ChatRequest) int {
	total := 0
	for _, m := range req.Messages {
		// Per-message formatting overhead.
		total += 4
		total += defaultCounter.Count(m.Content)
		for _, tc := range m.ToolCalls {
			total += defaultCounter.Count(tc.Name)
			total += defaultCounter.Count(string(tc.Arguments))
		}
	}
	for _, t := range req.Tools {
		total += defaultCounter.Count(t.Name)
		total += defaultCounter.Count(t.Description)
		total += defaultCounter.Count(string(t.Parameters))
	}
	return total
}

// Count returns the number of tokens in text. Falls back to a rough
// 4-chars-per-token estimate if the encoding cannot be loaded.
func (c *TokenCounter) Count(text string) int {
	c.init()
	if c.err != nil || c.enc == nil {
		return len(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TokenCounter) init() {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
}
