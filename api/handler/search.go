package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify/models"
	"github.com/use-agent/purify/orchestrator"
	"github.com/use-agent/purify/search"
)

// Search returns a handler for POST /search.
//
// Flow: query the upstream meta-search provider, then, if scrapeOptions
// requests extracted formats, fan out a scrape per result. The fan-out
// reuses o's limiter and cache, so it is bounded exactly like a direct
// /scrape call.
func Search(provider *search.Provider, o *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error:   &models.ErrorDetail{Error: models.ErrInvalidInput, Detail: err.Error()},
			})
			return
		}

		results, err := provider.Search(c.Request.Context(), &req)
		if err != nil {
			respondSearchError(c, err)
			return
		}

		if req.ScrapeOptions != nil && len(req.ScrapeOptions.Formats) > 0 {
			fanOutScrape(c.Request.Context(), o, results, req.ScrapeOptions)
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Data:    &models.SearchData{Web: results},
		})
	}
}

// fanOutScrape enriches each result with the requested extracted fields,
// concurrently. A result whose scrape fails keeps its bare search fields
// rather than failing the whole request.
func fanOutScrape(ctx context.Context, o *orchestrator.Orchestrator, results []*models.SearchResult, opts *models.ScrapeOptions) {
	var wg sync.WaitGroup
	for _, r := range results {
		wg.Add(1)
		go func(r *models.SearchResult) {
			defer wg.Done()
			req := &models.ScrapeRequest{
				URL:             r.URL,
				Formats:         opts.Formats,
				OnlyMainContent: opts.OnlyMainContent,
			}
			extracted, err := o.Scrape(ctx, req)
			if err != nil {
				slog.Warn("search fan-out scrape failed, keeping bare result", "url", r.URL, "error", err)
				return
			}
			r.Markdown = extracted.Markdown
			r.HTML = extracted.HTML
			r.RawHTML = extracted.RawHTML
			r.Links = extracted.Links
		}(r)
	}
	wg.Wait()
}

func respondSearchError(c *gin.Context, err error) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrInternal, err.Error(), err)
	}
	c.JSON(scrapeErr.Status(), models.SearchResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}
