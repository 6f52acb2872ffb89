// Package orchestrator wires the SSRF guard, cache, concurrency limiter,
// fast/browser fetchers, and content extractor into the single scrape
// operation (C10).
package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/purify/browser"
	"github.com/use-agent/purify/cache"
	"github.com/use-agent/purify/config"
	"github.com/use-agent/purify/fetch"
	"github.com/use-agent/purify/fingerprint"
	"github.com/use-agent/purify/limiter"
	"github.com/use-agent/purify/models"
	"github.com/use-agent/purify/ssrf"
)

// Orchestrator is the C10 entry point: preflight, cache, fetch, extract,
// cache again.
type Orchestrator struct {
	guard          *ssrf.Guard
	cache          *cache.Cache
	limiter        *limiter.Limiter
	fast           *fetch.Fast
	browser        *fetch.Browser
	extract        Extractor
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// Extractor is the subset of the content extractor the orchestrator
// depends on, so it can be faked in tests.
type Extractor interface {
	Extract(rawHTML, sourceURL string, statusCode int, opts ExtractOptions) (*models.ExtractionResult, error)
}

// ExtractOptions mirrors cleaner.Options without creating an import cycle
// back from cleaner to orchestrator.
type ExtractOptions struct {
	OnlyMainContent bool
	Formats         []string
	MaxLength       int
}

// New builds an Orchestrator from its collaborators. scrapeCfg supplies the
// default/max timeout clamp applied to every request in Scrape.
func New(guard *ssrf.Guard, c *cache.Cache, lim *limiter.Limiter, fast *fetch.Fast, br *fetch.Browser, extract Extractor, scrapeCfg config.ScrapeConfig) *Orchestrator {
	return &Orchestrator{
		guard:          guard,
		cache:          c,
		limiter:        lim,
		fast:           fast,
		browser:        br,
		extract:        extract,
		defaultTimeout: scrapeCfg.DefaultTimeout,
		maxTimeout:     scrapeCfg.MaxTimeout,
	}
}

// NewWithPool is a convenience constructor that builds the C7/C8 fetchers
// from a browser pool and guard.
func NewWithPool(guard *ssrf.Guard, c *cache.Cache, lim *limiter.Limiter, pool *browser.Pool, extract Extractor, scrapeCfg config.ScrapeConfig) *Orchestrator {
	return New(guard, c, lim, fetch.NewFast(), fetch.NewBrowser(pool, guard, scrapeCfg.NavigationTimeout), extract, scrapeCfg)
}

// Scrape runs the full C10 pipeline for a single URL.
func (o *Orchestrator) Scrape(ctx context.Context, req *models.ScrapeRequest) (*models.ExtractionResult, error) {
	req.Defaults()

	if err := o.guard.Preflight(ctx, req.URL); err != nil {
		return nil, err
	}

	key := cacheKey(req)
	if hit, ok := o.cache.Get(key); ok {
		return hit, nil
	}

	timeout := o.requestTimeout(req)

	result, err := limiter.Run(ctx, o.limiter, func(ctx context.Context) (*models.ExtractionResult, error) {
		return o.fetchAndExtract(ctx, req, timeout)
	})
	if err != nil {
		return nil, err
	}

	o.cache.Set(key, result)
	return result, nil
}

// requestTimeout resolves the effective per-request timeout: the
// configured default when the caller didn't set one, clamped to the
// configured hard cap otherwise. req.TimeoutMs is mutated to reflect what
// was actually applied, so any caller inspecting the request afterwards
// sees the clamped value, not the raw input. The timeout is not part of the
// cache key.
func (o *Orchestrator) requestTimeout(req *models.ScrapeRequest) time.Duration {
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = o.defaultTimeout
	}
	if o.maxTimeout > 0 && timeout > o.maxTimeout {
		timeout = o.maxTimeout
	}
	req.TimeoutMs = int(timeout / time.Millisecond)
	return timeout
}

func (o *Orchestrator) fetchAndExtract(ctx context.Context, req *models.ScrapeRequest, timeout time.Duration) (*models.ExtractionResult, error) {
	onlyMain := true
	if req.OnlyMainContent != nil {
		onlyMain = *req.OnlyMainContent
	}
	extractOpts := ExtractOptions{OnlyMainContent: onlyMain, Formats: req.Formats}
	fetchOpts := fetch.Options{Headers: req.Headers, ProxyURL: req.ProxyURL}

	// The fast path never carries cookies/actions: those require a real
	// browser context to take effect, so any request that needs them
	// implicitly escalates straight past it.
	if len(req.Cookies) == 0 && len(req.Actions) == 0 {
		if fastResult, ok := o.fast.Fetch(ctx, req.URL, timeout, fetchOpts); ok {
			return o.extract.Extract(fastResult.HTML, fastResult.FinalURL, fastResult.StatusCode, extractOpts)
		}
		slog.Debug("fast fetch skipped or rejected, falling back to browser", "url", req.URL)
	}

	browserResult, err := o.browser.Fetch(ctx, req.URL, timeout, fetchOpts, req.Cookies, req.Actions)
	if err != nil {
		return nil, err
	}

	return o.extract.Extract(browserResult.HTML, browserResult.FinalURL, browserResult.StatusCode, extractOpts)
}

// cacheKey derives a deterministic fingerprint from the URL, sorted
// formats, and the onlyMainContent flag.
func cacheKey(req *models.ScrapeRequest) string {
	formats := append([]string(nil), req.Formats...)
	sort.Strings(formats)

	onlyMain := true
	if req.OnlyMainContent != nil {
		onlyMain = *req.OnlyMainContent
	}

	return fingerprint.Key("scrape", map[string]any{
		"url":             req.URL,
		"formats":         strings.Join(formats, ","),
		"onlyMainContent": onlyMain,
	})
}
