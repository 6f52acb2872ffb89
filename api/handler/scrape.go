package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify/models"
	"github.com/use-agent/purify/orchestrator"
)

// Scrape returns a handler for POST /scrape.
//
// Flow: parse & validate the request, run the C10 pipeline, map the result
// (or error) onto the wire envelope.
func Scrape(o *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error:   &models.ErrorDetail{Error: models.ErrInvalidInput, Detail: err.Error()},
			})
			return
		}

		result, err := o.Scrape(c.Request.Context(), &req)
		if err != nil {
			respondScrapeError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{Success: true, Data: result})
	}
}

// respondScrapeError maps a models.ScrapeError to its HTTP status and writes
// the structured error envelope; any other error is treated as internal.
func respondScrapeError(c *gin.Context, err error) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrInternal, err.Error(), err)
	}
	c.JSON(scrapeErr.Status(), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}
