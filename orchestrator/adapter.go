package orchestrator

import (
	"github.com/use-agent/purify/cleaner"
	"github.com/use-agent/purify/models"
)

// cleanerAdapter satisfies Extractor using the concrete content extractor.
type cleanerAdapter struct {
	c *cleaner.Cleaner
}

// NewCleanerExtractor wraps a cleaner.Cleaner as an Extractor.
func NewCleanerExtractor(c *cleaner.Cleaner) Extractor {
	return &cleanerAdapter{c: c}
}

func (a *cleanerAdapter) Extract(rawHTML, sourceURL string, statusCode int, opts ExtractOptions) (*models.ExtractionResult, error) {
	return a.c.Extract(rawHTML, sourceURL, statusCode, cleaner.Options{
		OnlyMainContent: opts.OnlyMainContent,
		Formats:         opts.Formats,
		MaxLength:       opts.MaxLength,
	})
}
