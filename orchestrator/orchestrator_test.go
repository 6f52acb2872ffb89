package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/purify/cache"
	"github.com/use-agent/purify/limiter"
	"github.com/use-agent/purify/models"
	"github.com/use-agent/purify/ssrf"
)

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) Extract(rawHTML, sourceURL string, statusCode int, opts ExtractOptions) (*models.ExtractionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExtractionResult{Markdown: "extracted:" + rawHTML}, nil
}

func newOrchestratorForTest(extract Extractor) *Orchestrator {
	return &Orchestrator{
		guard:   ssrf.New(),
		cache:   cache.New(10, time.Hour),
		limiter: limiter.New(4),
		extract: extract,
	}
}

func TestScrape_BlocksPrivateURL(t *testing.T) {
	o := newOrchestratorForTest(&fakeExtractor{})
	_, err := o.Scrape(context.Background(), &models.ScrapeRequest{URL: "http://127.0.0.1/secret"})
	if err == nil {
		t.Fatal("expected an error for a private-IP URL")
	}
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("expected a ScrapeError, got %T", err)
	}
	if scrapeErr.Kind != models.ErrBlockedPrivateIP {
		t.Fatalf("expected blocked_private_ip, got %q", scrapeErr.Kind)
	}
}

func TestScrape_RejectsInvalidURL(t *testing.T) {
	o := newOrchestratorForTest(&fakeExtractor{})
	_, err := o.Scrape(context.Background(), &models.ScrapeRequest{URL: "not a url"})
	if err == nil {
		t.Fatal("expected an error for an invalid URL")
	}
}

func TestCacheKey_IgnoresFormatOrder(t *testing.T) {
	a := cacheKey(&models.ScrapeRequest{URL: "https://example.com", Formats: []string{"html", "markdown"}})
	b := cacheKey(&models.ScrapeRequest{URL: "https://example.com", Formats: []string{"markdown", "html"}})
	if a != b {
		t.Fatalf("expected format order to not affect cache key, got %q vs %q", a, b)
	}
}

func TestCacheKey_DiffersOnOnlyMainContent(t *testing.T) {
	trueVal, falseVal := true, false
	a := cacheKey(&models.ScrapeRequest{URL: "https://example.com", OnlyMainContent: &trueVal})
	b := cacheKey(&models.ScrapeRequest{URL: "https://example.com", OnlyMainContent: &falseVal})
	if a == b {
		t.Fatal("expected onlyMainContent to affect the cache key")
	}
}

func TestRequestTimeout_UsesConfiguredDefaultWhenUnset(t *testing.T) {
	o := &Orchestrator{defaultTimeout: 30 * time.Second, maxTimeout: 60 * time.Second}
	req := &models.ScrapeRequest{URL: "https://example.com"}
	got := o.requestTimeout(req)
	if got != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %v", got)
	}
	if req.TimeoutMs != 30000 {
		t.Fatalf("expected req.TimeoutMs to reflect the applied default, got %d", req.TimeoutMs)
	}
}

func TestRequestTimeout_ClampsToConfiguredMax(t *testing.T) {
	o := &Orchestrator{defaultTimeout: 30 * time.Second, maxTimeout: 60 * time.Second}
	req := &models.ScrapeRequest{URL: "https://example.com", TimeoutMs: 600000}
	got := o.requestTimeout(req)
	if got != 60*time.Second {
		t.Fatalf("expected timeout clamped to 60s, got %v", got)
	}
	if req.TimeoutMs != 60000 {
		t.Fatalf("expected req.TimeoutMs to reflect the clamp, got %d", req.TimeoutMs)
	}
}
