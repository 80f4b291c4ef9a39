package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/config"
	"agent-swarm/internal/infra/tracer"
)

const maxHeadlines = 10

// NewsTool fetches latest headlines for a topic from the newsdata.io API and
// formats them as a numbered list.
type NewsTool struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewNewsTool creates a news tool from config.
func NewNewsTool(cfg config.NewsConfig, logger *slog.Logger) *NewsTool {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://newsdata.io/api/1/latest"
	}
	return &NewsTool{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (t *NewsTool) Name() string { return "get_news_tool" }
func (t *NewsTool) Description() string {
	return "Fetch the latest news headlines for a topic."
}

func (t *NewsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"topic": {"type": "string", "description": "The topic to fetch news about"}
			},
			"required": ["topic"]
		}`),
	}
}

type newsParams struct {
	Topic string `json:"topic"`
}

type newsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title string `json:"title"`
	} `json:"results"`
}

func (t *NewsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.get_news", t.logger, params,
		func(ctx context.Context, span trace.Span, p newsParams) (any, error) {
			if err := RequireField("topic", p.Topic); err != nil {
				return nil, err
			}

			span.SetAttributes(tracer.StringAttr("tool.topic", p.Topic))

			q := url.Values{}
			q.Set("apikey", t.apiKey)
			q.Set("q", p.Topic)
			q.Set("language", "en")

			httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return nil, fmt.Errorf("create request: %w", err)
			}

			httpResp, err := t.client.Do(httpReq)
			if err != nil {
				return nil, fmt.Errorf("fetch news: %w", err)
			}
			defer httpResp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(httpResp.Body, 4*1024*1024))
			if err != nil {
				return nil, fmt.Errorf("read response: %w", err)
			}
			if httpResp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("news API error %d: %s", httpResp.StatusCode, string(body))
			}

			var resp newsResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("unmarshal response: %w", err)
			}

			t.logger.Debug("news fetched", "topic", p.Topic, "results", len(resp.Results))
			return formatHeadlines(p.Topic, resp), nil
		},
	)
}

// formatHeadlines renders at most maxHeadlines titles as a numbered list.
func formatHeadlines(topic string, resp newsResponse) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No news found for %q.", topic)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Latest news about %s:\n", topic)
	for i, r := range resp.Results {
		if i == maxHeadlines {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
	}
	return sb.String()
}
