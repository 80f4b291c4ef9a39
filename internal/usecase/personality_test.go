package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"agent-swarm/internal/domain"
)

func TestPersonalityRewrite(t *testing.T) {
	llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){
		func(req domain.ChatRequest) (*domain.ChatResponse, error) {
			prompt := req.Messages[0].Content
			if !strings.Contains(prompt, "The order_status for user client789 is: Shipped") {
				return nil, errors.New("template missing raw answer")
			}
			if !strings.Contains(prompt, "Where is my order?") {
				return nil, errors.New("template missing user question")
			}
			return textStep("Great news! Your order has shipped.")(req)
		},
	}}
	p := NewPersonality(llm, DefaultPrompts().Personality, slog.Default())

	got := p.Rewrite(context.Background(), "The order_status for user client789 is: Shipped", "Where is my order?")
	if got != "Great news! Your order has shipped." {
		t.Errorf("Rewrite = %q", got)
	}
}

func TestPersonalityFailureReturnsRawUnchanged(t *testing.T) {
	const raw = "The payment_status for user client790 is: Pending"

	for _, tt := range []struct {
		name string
		step func(domain.ChatRequest) (*domain.ChatResponse, error)
	}{
		{"transport failure", errStep(errors.New("gateway timeout"))},
		{"empty content", emptyStep()},
		{"whitespace only", textStep("   \n")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{script: []func(domain.ChatRequest) (*domain.ChatResponse, error){tt.step}}
			p := NewPersonality(llm, DefaultPrompts().Personality, slog.Default())

			if got := p.Rewrite(context.Background(), raw, "status?"); got != raw {
				t.Errorf("Rewrite = %q, want raw unchanged", got)
			}
		})
	}
}
