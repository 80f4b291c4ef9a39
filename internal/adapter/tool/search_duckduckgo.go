package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxSearchBodySize = 512 * 1024 // 512KB

// ddgResponse models the relevant portion of the DuckDuckGo Instant Answer
// JSON response.
type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// DuckDuckGoBackend searches the web via the DuckDuckGo Instant Answer API.
type DuckDuckGoBackend struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewDuckDuckGoBackend creates a DuckDuckGo search backend. baseURL may be
// empty to use the public endpoint.
func NewDuckDuckGoBackend(baseURL string, logger *slog.Logger) *DuckDuckGoBackend {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com/"
	}
	return &DuckDuckGoBackend{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

func (b *DuckDuckGoBackend) Name() string { return "duckduckgo" }

func (b *DuckDuckGoBackend) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]SearchResult, 0, count)
	if ddg.AbstractText != "" {
		results = append(results, SearchResult{
			Title:   ddg.Heading,
			URL:     ddg.AbstractURL,
			Content: ddg.AbstractText,
		})
	}
	for _, t := range ddg.RelatedTopics {
		if len(results) >= count {
			break
		}
		if t.Text == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   firstSentence(t.Text),
			URL:     t.FirstURL,
			Content: t.Text,
		})
	}

	b.logger.Debug("duckduckgo search completed", "query", query, "results", len(results))
	return results, nil
}

func firstSentence(s string) string {
	if i := strings.Index(s, " - "); i > 0 {
		return s[:i]
	}
	return s
}
