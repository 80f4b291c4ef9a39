package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// fakeSearchBackend returns canned results and counts calls.
type fakeSearchBackend struct {
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeSearchBackend) Search(_ context.Context, query string, count int) ([]SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSearchBackend) Name() string { return "fake" }

func TestWebSearchToolFormatsResults(t *testing.T) {
	backend := &fakeSearchBackend{
		results: []SearchResult{
			{Title: "Go", URL: "https://go.dev", Content: "The Go programming language"},
		},
	}
	ws := NewWebSearchTool(backend, time.Minute, 3, slog.Default())

	res, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"golang"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if !strings.Contains(res.Content, "1. Go") || !strings.Contains(res.Content, "https://go.dev") {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestWebSearchToolCaches(t *testing.T) {
	backend := &fakeSearchBackend{
		results: []SearchResult{{Title: "A", URL: "https://a.example", Content: "a"}},
	}
	ws := NewWebSearchTool(backend, time.Minute, 3, slog.Default())

	for i := 0; i < 3; i++ {
		if _, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"same"}`)); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1 (cache)", backend.calls)
	}
}

func TestWebSearchToolEmptyResults(t *testing.T) {
	ws := NewWebSearchTool(&fakeSearchBackend{}, time.Minute, 3, slog.Default())

	res, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"nothing"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Content, "No search results found") {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestWebSearchToolBackendError(t *testing.T) {
	ws := NewWebSearchTool(&fakeSearchBackend{err: errors.New("engine down")}, time.Minute, 3, slog.Default())

	res, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"x"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
}

func TestWebSearchToolBlankQuery(t *testing.T) {
	ws := NewWebSearchTool(&fakeSearchBackend{}, time.Minute, 3, slog.Default())

	res, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"   "}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for blank query")
	}
}
