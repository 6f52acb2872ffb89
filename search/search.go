// Package search implements the C11 search provider: a thin client over a
// SearXNG-style meta-search backend, plus the include/exclude-domain and
// dedup rules applied to its results before they reach a caller.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/use-agent/purify/config"
	"github.com/use-agent/purify/models"
	"github.com/use-agent/purify/simhash"
)

// nearDuplicateThreshold is the maximum Hamming distance between two
// results' title+description fingerprints for them to be considered the
// same syndicated story. 64-bit fingerprints, so this is a ~9% bit budget.
const nearDuplicateThreshold = 6

// Provider queries the configured meta-search backend and normalises its
// results.
type Provider struct {
	cfg    config.SearchConfig
	client *http.Client
}

// New builds a Provider from the C11 configuration block.
func New(cfg config.SearchConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Search queries the upstream backend for req.Query, applies the
// include/exclude-domain rules and dedup, and returns at most req.Limit
// results sorted by relevance.
func (p *Provider) Search(ctx context.Context, req *models.SearchRequest) ([]*models.SearchResult, error) {
	req.Defaults()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	query := applyIncludeDomains(req.Query, req.Sources)

	upstream, err := p.queryUpstream(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]*models.SearchResult, 0, len(upstream.Results))
	for i, r := range upstream.Results {
		results = append(results, &models.SearchResult{
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Content,
			Position:    i + 1,
			Category:    r.Category,
			Score:       r.Score,
		})
	}

	results = filterExcludedDomains(results, p.cfg.ExcludeDomains)
	results = dedupByURL(results)
	results = dedupByContent(results)
	sortByScore(results)
	results = renumberAndTruncate(results, req.Limit)

	return results, nil
}

// queryUpstream issues the meta-search request: POST with a JSON body,
// falling back to GET with the query string if the backend rejects POST.
func (p *Provider) queryUpstream(ctx context.Context, query string) (*models.UpstreamResponse, error) {
	body, err := p.postUpstream(ctx, query)
	if err != nil {
		slog.Debug("search: POST upstream failed, falling back to GET", "error", err)
		body, err = p.getUpstream(ctx, query)
	}
	if err != nil {
		return nil, models.NewScrapeError(models.ErrUpstreamSearchError, "meta-search backend unreachable", err)
	}

	var decoded models.UpstreamResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		slog.Warn("search: malformed upstream response body, treating as zero results", "error", err)
		return &models.UpstreamResponse{}, nil
	}
	return &decoded, nil
}

func (p *Provider) postUpstream(ctx context.Context, query string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"q": query, "format": "json"})
	if err != nil {
		return nil, fmt.Errorf("search: encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("search: build POST request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	return p.do(httpReq)
}

func (p *Provider) getUpstream(ctx context.Context, query string) ([]byte, error) {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("search: parse backend URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: build GET request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	return p.do(httpReq)
}

func (p *Provider) do(httpReq *http.Request) ([]byte, error) {
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("search: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search: upstream returned status %d", resp.StatusCode)
	}
	return body, nil
}

// applyIncludeDomains rewrites query with a "site:" clause per included
// domain, OR-joined, when sources is non-empty.
func applyIncludeDomains(query string, sources []string) string {
	if len(sources) == 0 {
		return query
	}
	clauses := make([]string, 0, len(sources))
	for _, domain := range sources {
		domain = strings.TrimSpace(domain)
		if domain == "" {
			continue
		}
		clauses = append(clauses, "site:"+domain)
	}
	if len(clauses) == 0 {
		return query
	}
	return query + " (" + strings.Join(clauses, " OR ") + ")"
}

// filterExcludedDomains drops any result whose host is, or is a subdomain
// of, one of the configured exclude-domain suffixes.
func filterExcludedDomains(results []*models.SearchResult, excluded []string) []*models.SearchResult {
	if len(excluded) == 0 {
		return results
	}
	kept := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if !hostMatchesAny(r.URL, excluded) {
			kept = append(kept, r)
		}
	}
	return kept
}

func hostMatchesAny(rawURL string, suffixes []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range suffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// dedupByURL drops duplicates, ignoring a trailing slash and case, keeping
// the first (highest-ranked) occurrence.
func dedupByURL(results []*models.SearchResult) []*models.SearchResult {
	seen := make(map[string]struct{}, len(results))
	deduped := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		key := normalizeURL(r.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped
}

func normalizeURL(rawURL string) string {
	return strings.ToLower(strings.TrimSuffix(rawURL, "/"))
}

// dedupByContent drops results whose title+description SimHash fingerprint
// is within nearDuplicateThreshold of one already kept, catching syndicated
// copies of the same story published under distinct URLs that dedupByURL
// cannot see. Keeps the first (highest-ranked) occurrence, same as
// dedupByURL.
func dedupByContent(results []*models.SearchResult) []*models.SearchResult {
	kept := make([]*models.SearchResult, 0, len(results))
	fingerprints := make([]uint64, 0, len(results))

	for _, r := range results {
		fp := simhash.Fingerprint(r.Title + " " + r.Description)

		duplicate := false
		if fp != 0 {
			for _, seen := range fingerprints {
				if simhash.Similar(fp, seen, nearDuplicateThreshold) {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}

		fingerprints = append(fingerprints, fp)
		kept = append(kept, r)
	}

	return kept
}

// sortByScore orders results by descending relevance score, keeping the
// upstream order for ties (stable sort).
func sortByScore(results []*models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// renumberAndTruncate caps results at limit and reassigns Position to match
// the final ranking.
func renumberAndTruncate(results []*models.SearchResult, limit int) []*models.SearchResult {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i, r := range results {
		r.Position = i + 1
	}
	return results
}
