package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/use-agent/purify/config"
	"github.com/use-agent/purify/models"
)

func upstreamServer(t *testing.T, body models.UpstreamResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestSearch_MapsAndSortsByScore(t *testing.T) {
	srv := upstreamServer(t, models.UpstreamResponse{
		Results: []models.UpstreamResult{
			{URL: "https://low.example.com", Title: "Low", Content: "low score", Score: 0.2},
			{URL: "https://high.example.com", Title: "High", Content: "high score", Score: 0.9},
		},
	})
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://high.example.com" || results[0].Position != 1 {
		t.Fatalf("expected high-score result first, got %+v", results[0])
	}
	if results[1].Position != 2 {
		t.Fatalf("expected second result position 2, got %d", results[1].Position)
	}
}

func TestSearch_DedupsByNormalizedURL(t *testing.T) {
	srv := upstreamServer(t, models.UpstreamResponse{
		Results: []models.UpstreamResult{
			{URL: "https://example.com/a", Title: "A", Score: 0.5},
			{URL: "https://EXAMPLE.com/a/", Title: "A dup", Score: 0.1},
		},
	})
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected dedup to keep one result, got %d", len(results))
	}
}

func TestSearch_ExcludesConfiguredDomains(t *testing.T) {
	srv := upstreamServer(t, models.UpstreamResponse{
		Results: []models.UpstreamResult{
			{URL: "https://spam.example.com/x", Title: "spam", Score: 0.9},
			{URL: "https://good.example.com/x", Title: "good", Score: 0.1},
		},
	})
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second, ExcludeDomains: []string{"spam.example.com"}})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://good.example.com/x" {
		t.Fatalf("expected only the non-excluded result, got %+v", results)
	}
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	srv := upstreamServer(t, models.UpstreamResponse{
		Results: []models.UpstreamResult{
			{URL: "https://a.example.com", Score: 0.9},
			{URL: "https://b.example.com", Score: 0.8},
			{URL: "https://c.example.com", Score: 0.7},
		},
	})
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit to truncate to 2 results, got %d", len(results))
	}
}

func TestSearch_NonSuccessStatusReturnsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	_, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err == nil {
		t.Fatal("expected an error for a non-2xx upstream response")
	}
	var scrapeErr *models.ScrapeError
	if se, ok := err.(*models.ScrapeError); ok {
		scrapeErr = se
	}
	if scrapeErr == nil || scrapeErr.Kind != models.ErrUpstreamSearchError {
		t.Fatalf("expected an upstream_search_error, got %v", err)
	}
}

func TestSearch_MalformedBodyYieldsZeroResultsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("expected malformed body to yield zero results, not an error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected zero results, got %d", len(results))
	}
}

func TestSearch_DedupsNearDuplicateContentAcrossDistinctURLs(t *testing.T) {
	srv := upstreamServer(t, models.UpstreamResponse{
		Results: []models.UpstreamResult{
			{URL: "https://wire.example.com/story", Title: "City council approves new budget plan", Content: "The city council voted 5-2 to approve the new budget plan on Tuesday.", Score: 0.9},
			{URL: "https://mirror.example.net/story-copy", Title: "City council approves new budget plan", Content: "The city council voted 5-2 to approve a new budget plan on Tuesday.", Score: 0.5},
		},
	})
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected near-duplicate content to collapse to one result, got %d: %+v", len(results), results)
	}
	if results[0].URL != "https://wire.example.com/story" {
		t.Fatalf("expected the higher-scored original to survive, got %+v", results[0])
	}
}

func TestSearch_KeepsUnrelatedResultsWithEmptyContent(t *testing.T) {
	srv := upstreamServer(t, models.UpstreamResponse{
		Results: []models.UpstreamResult{
			{URL: "https://a.example.com", Score: 0.9},
			{URL: "https://b.example.com", Score: 0.8},
		},
	})
	defer srv.Close()

	p := New(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second})
	results, err := p.Search(context.Background(), &models.SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both empty-content results to survive dedup, got %d", len(results))
	}
}

func TestApplyIncludeDomains_BuildsSiteClause(t *testing.T) {
	got := applyIncludeDomains("widgets", []string{"example.com", "example.org"})
	want := "widgets (site:example.com OR site:example.org)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestApplyIncludeDomains_NoSourcesLeavesQueryUnchanged(t *testing.T) {
	got := applyIncludeDomains("widgets", nil)
	if got != "widgets" {
		t.Fatalf("expected unchanged query, got %q", got)
	}
}
