package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"agent-swarm/internal/domain"
)

// PreCheckOutcome is what a pre-check contributes to an agent turn. A non-nil
// Result short-circuits the agent without any model call. A non-empty Context
// is rendered into the system prompt; Tag is how a direct answer grounded in
// that context is labelled in the workflow.
type PreCheckOutcome struct {
	Result  *domain.AgentResult
	Context string
	Tag     string
}

// PreCheck runs before an agent's model call. Implementations never fail the
// turn; on internal errors they return an empty outcome.
type PreCheck interface {
	Run(ctx context.Context, req domain.Request) PreCheckOutcome
}

// Retriever fetches knowledge snippets relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

// FAQPreCheck answers questions that match a static FAQ list, first by exact
// lexical comparison, then by embedding similarity against precomputed
// question vectors.
type FAQPreCheck struct {
	entries   []domain.FAQEntry
	vectors   [][]float32
	embedder  domain.EmbeddingProvider
	threshold float64
	logger    *slog.Logger
}

// NewFAQPreCheck precomputes embeddings for the FAQ questions. A nil embedder
// or a failed embedding call degrades to lexical matching only.
func NewFAQPreCheck(ctx context.Context, entries []domain.FAQEntry, threshold float64, embedder domain.EmbeddingProvider, logger *slog.Logger) *FAQPreCheck {
	p := &FAQPreCheck{
		entries:   entries,
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}

	if embedder != nil && len(entries) > 0 {
		questions := make([]string, len(entries))
		for i, e := range entries {
			questions[i] = e.Question
		}
		vecs, err := embedder.Embed(ctx, questions)
		if err != nil {
			logger.Warn("faq precheck: embedding questions failed, lexical matching only", "error", err)
		} else if len(vecs) == len(entries) {
			p.vectors = vecs
		}
	}
	return p
}

// Run returns the FAQ answer when the message matches an entry, otherwise an
// empty outcome.
func (p *FAQPreCheck) Run(ctx context.Context, req domain.Request) PreCheckOutcome {
	query := normalizeQuestion(req.Message)
	if query == "" {
		return PreCheckOutcome{}
	}

	for _, e := range p.entries {
		if normalizeQuestion(e.Question) == query {
			return faqOutcome(e)
		}
	}

	if p.embedder == nil || len(p.vectors) == 0 {
		return PreCheckOutcome{}
	}

	vecs, err := p.embedder.Embed(ctx, []string{req.Message})
	if err != nil || len(vecs) == 0 {
		p.logger.Debug("faq precheck: query embedding failed", "error", err)
		return PreCheckOutcome{}
	}

	bestIdx, bestSim := -1, 0.0
	for i, v := range p.vectors {
		if sim := float64(cosine32(vecs[0], v)); sim > bestSim {
			bestIdx, bestSim = i, sim
		}
	}
	if bestIdx >= 0 && bestSim >= p.threshold {
		p.logger.Info("faq precheck matched", "question", p.entries[bestIdx].Question, "similarity", bestSim)
		return faqOutcome(p.entries[bestIdx])
	}
	return PreCheckOutcome{}
}

func faqOutcome(e domain.FAQEntry) PreCheckOutcome {
	return PreCheckOutcome{
		Result: &domain.AgentResult{
			ToolName: domain.ResultTagFAQ,
			Response: e.Answer,
		},
	}
}

func normalizeQuestion(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "?!.")))
}

// RetrievalPreCheck injects knowledge-base snippets into the agent's prompt.
// It never short-circuits; an empty or failed retrieval leaves the agent to
// its tools.
type RetrievalPreCheck struct {
	retriever Retriever
	topK      int
	logger    *slog.Logger
}

// NewRetrievalPreCheck returns a pre-check fetching up to topK snippets.
func NewRetrievalPreCheck(retriever Retriever, topK int, logger *slog.Logger) *RetrievalPreCheck {
	if topK <= 0 {
		topK = 3
	}
	return &RetrievalPreCheck{retriever: retriever, topK: topK, logger: logger}
}

// Run retrieves context for the message.
func (p *RetrievalPreCheck) Run(ctx context.Context, req domain.Request) PreCheckOutcome {
	snippets, err := p.retriever.Retrieve(ctx, req.Message, p.topK)
	if err != nil {
		p.logger.Warn("retrieval precheck failed", "error", err)
		return PreCheckOutcome{}
	}
	if len(snippets) == 0 {
		return PreCheckOutcome{}
	}
	return PreCheckOutcome{
		Context: strings.Join(snippets, "\n\n"),
		Tag:     domain.ResultTagRAG,
	}
}

// cosine32 is cosine similarity over float32 vectors. Mismatched or zero
// vectors score 0.
func cosine32(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	denom := float32(math.Sqrt(float64(na))) * float32(math.Sqrt(float64(nb)))
	if denom == 0 {
		return 0
	}
	sim := dot / denom
	if math.IsNaN(float64(sim)) || math.IsInf(float64(sim), 0) {
		return 0
	}
	return sim
}
