package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"agent-swarm/internal/domain"
)

var faqEntries = []domain.FAQEntry{
	{Question: "How can I Contact Support?", Answer: "You can contact support by support@example.com"},
	{Question: "How do I reset my password?", Answer: "Use the reset link on the sign-in page."},
}

// keywordEmbedder maps texts to fixed unit vectors by keyword so similarity
// outcomes are deterministic.
type keywordEmbedder struct {
	calls int
	err   error
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		switch {
		case strings.Contains(strings.ToLower(t), "support"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(strings.ToLower(t), "password"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int { return 3 }

func TestFAQExactMatch(t *testing.T) {
	p := NewFAQPreCheck(context.Background(), faqEntries, 0.7, nil, slog.Default())

	for _, msg := range []string{
		"How can I Contact Support?",
		"how can i contact support",
		"  HOW CAN I CONTACT SUPPORT  ",
	} {
		out := p.Run(context.Background(), domain.Request{Message: msg})
		if out.Result == nil {
			t.Fatalf("message %q: no short-circuit", msg)
		}
		if out.Result.ToolName != domain.ResultTagFAQ {
			t.Errorf("ToolName = %q", out.Result.ToolName)
		}
		if out.Result.Response != faqEntries[0].Answer {
			t.Errorf("Response = %q", out.Result.Response)
		}
	}
}

func TestFAQNoMatch(t *testing.T) {
	p := NewFAQPreCheck(context.Background(), faqEntries, 0.7, nil, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "What colour is the sky?"})
	if out.Result != nil {
		t.Errorf("unexpected short-circuit: %+v", out.Result)
	}
}

func TestFAQSimilarityMatch(t *testing.T) {
	emb := &keywordEmbedder{}
	p := NewFAQPreCheck(context.Background(), faqEntries, 0.7, emb, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "I need to talk to your support people"})
	if out.Result == nil {
		t.Fatal("expected similarity match")
	}
	if out.Result.Response != faqEntries[0].Answer {
		t.Errorf("Response = %q", out.Result.Response)
	}
}

func TestFAQSimilarityBelowThreshold(t *testing.T) {
	emb := &keywordEmbedder{}
	p := NewFAQPreCheck(context.Background(), faqEntries, 0.7, emb, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "Tell me about dinosaurs"})
	if out.Result != nil {
		t.Errorf("unexpected match for unrelated query: %+v", out.Result)
	}
}

func TestFAQEmbedderFailureDegradesToLexical(t *testing.T) {
	emb := &keywordEmbedder{err: errors.New("embedding service down")}
	p := NewFAQPreCheck(context.Background(), faqEntries, 0.7, emb, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "how do i reset my password"})
	if out.Result == nil {
		t.Fatal("lexical match should survive embedder failure")
	}
}

func TestRetrievalPreCheckInjectsContext(t *testing.T) {
	r := retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return []string{"snippet one", "snippet two"}, nil
	})
	p := NewRetrievalPreCheck(r, 3, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "q"})
	if out.Result != nil {
		t.Error("retrieval must never short-circuit")
	}
	if !strings.Contains(out.Context, "snippet one") || !strings.Contains(out.Context, "snippet two") {
		t.Errorf("Context = %q", out.Context)
	}
	if out.Tag != domain.ResultTagRAG {
		t.Errorf("Tag = %q", out.Tag)
	}
}

func TestRetrievalPreCheckEmptyIndex(t *testing.T) {
	r := retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return nil, nil
	})
	p := NewRetrievalPreCheck(r, 3, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "q"})
	if out.Context != "" || out.Result != nil {
		t.Errorf("outcome = %+v, want empty", out)
	}
}

func TestRetrievalPreCheckErrorIsSwallowed(t *testing.T) {
	r := retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return nil, errors.New("index corrupt")
	})
	p := NewRetrievalPreCheck(r, 3, slog.Default())

	out := p.Run(context.Background(), domain.Request{Message: "q"})
	if out.Context != "" || out.Result != nil {
		t.Errorf("outcome = %+v, want empty on error", out)
	}
}
