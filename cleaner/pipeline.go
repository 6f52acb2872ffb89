// Package cleaner implements the content extractor (C9): the pipeline
// that turns rendered HTML into clean, LLM-friendly Markdown plus page
// metadata.
package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/purify/models"
)

// Cleaner runs the extraction pipeline. The Markdown converter is built
// once and reused across requests (goroutine-safe).
type Cleaner struct {
	mdConverter *markdownConverter
}

// NewCleaner builds a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{mdConverter: newMarkdownConverter()}
}

// Options controls which formats are produced and how aggressively the
// content is trimmed.
type Options struct {
	OnlyMainContent bool
	Formats         []string // any of "markdown", "html", "rawHtml", "links"
	MaxLength       int
}

// wants reports whether format should be produced. "markdown" is always
// produced regardless of Formats — it's the implicit default output, not
// an opt-in one — so only "html", "rawHtml" and "links" are gated on
// whether the caller listed them.
func (o Options) wants(format string) bool {
	if format == "markdown" {
		return true
	}
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Extract runs the full pipeline against rawHTML, fetched from sourceURL
// with the given final HTTP status code.
func (c *Cleaner) Extract(rawHTML, sourceURL string, statusCode int, opts Options) (*models.ExtractionResult, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrInvalidURL, "source URL could not be parsed", err)
	}

	// 1. Pre-strip styles.
	stripped := preStrip(rawHTML)

	// Metadata is always computed from the pre-stripped document, before
	// any content-shaping happens.
	metaDoc, err := goquery.NewDocumentFromReader(strings.NewReader(stripped))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to parse document", err)
	}

	// 2-3. Parse + main-content detection (skipped entirely when the
	// caller wants the full page).
	var contentHTML, articleTitle, articleExcerpt string
	if opts.OnlyMainContent {
		contentHTML, articleTitle, articleExcerpt, _ = mainContent(stripped, base)
	} else {
		contentHTML = fullBody(stripped)
	}

	metadata := extractMetadata(metaDoc, base, articleTitle, articleExcerpt, statusCode)

	contentDoc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to parse extracted content", err)
	}
	root := contentDoc.Selection

	// 4. Absolute link rewriting.
	rewriteLinks(root, base)

	// Links are collected after rewriting but before elements are dropped,
	// so it reflects every link in the extracted content, not just what
	// survives the noise/whitelist passes.
	var links []string
	if opts.wants("links") {
		links = collectLinks(root)
	}

	// 5. Element removal.
	removeNoise(root)

	// 6. Figure handling.
	handleFigures(root)

	cleanedHTML, err := root.Html()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to serialise cleaned content", err)
	}

	// 7-8. Whitelist unwrap + attribute scrub.
	sanitized, err := sanitizeFragment(cleanedHTML)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to sanitize content", err)
	}

	result := &models.ExtractionResult{Metadata: metadata, Links: links}

	if opts.wants("rawHtml") {
		result.RawHTML = rawHTML
	}
	if opts.wants("html") {
		result.HTML = sanitized
	}
	if opts.wants("markdown") {
		markdown, err := c.mdConverter.convert(sanitized, sourceURL)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrExtractionFailed, "markdown conversion failed", err)
		}
		// 10-11. Whitespace tightening + length cap.
		result.Markdown = capLength(tightenWhitespace(markdown), opts.MaxLength)
	}

	return result, nil
}

// collectLinks gathers every absolute http(s) href in root, deduplicated
// and in document order.
func collectLinks(root *goquery.Selection) []string {
	seen := make(map[string]struct{})
	var links []string
	root.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}
