package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the purify API's POST /scrape body.
type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
}

// extractionResult mirrors the purify API's ExtractionResult.
type extractionResult struct {
	Markdown string `json:"markdown"`
	Metadata struct {
		Title     string `json:"title"`
		SourceURL string `json:"sourceURL"`
	} `json:"metadata"`
}

// scrapeResponse mirrors the purify API's POST /scrape envelope.
type scrapeResponse struct {
	Success bool              `json:"success"`
	Data    *extractionResult `json:"data"`
	Error   *errorDetail      `json:"error"`
}

// searchRequest mirrors the purify API's POST /search body.
type searchRequest struct {
	Query   string   `json:"query"`
	Limit   int      `json:"limit,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// searchResult mirrors one entry of the purify API's SearchResult.
type searchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// searchResponse mirrors the purify API's POST /search envelope.
type searchResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Web []searchResult `json:"web"`
	} `json:"data"`
	Error *errorDetail `json:"error"`
}

type errorDetail struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func main() {
	apiURL := os.Getenv("PURIFY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PURIFY_API_KEY")

	s := server.NewMCPServer(
		"purify",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape",
		mcp.WithDescription("Scrape a web page and return clean Markdown. Uses a headless browser for JavaScript-heavy pages, a fast HTTP path otherwise."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithBoolean("only_main_content",
			mcp.Description("Extract only the main article content instead of the full page (default: true)"),
		),
	)
	s.AddTool(scrapeTool, handleScrape(apiURL, apiKey))

	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Run a web search via the configured meta-search backend and return ranked results."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-20, default 10)"),
		),
		mcp.WithArray("sources",
			mcp.Description("Restrict results to these domains (e.g. [\"wikipedia.org\"])"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the purify API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrape(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{URL: url, Formats: []string{"markdown"}}
		args := request.GetArguments()
		if v, ok := args["only_main_content"].(bool); ok {
			reqBody.OnlyMainContent = &v
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !scrapeResp.Success || scrapeResp.Data == nil {
			errMsg := "scrape failed"
			if scrapeResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", scrapeResp.Error.Error, scrapeResp.Error.Detail)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		d := scrapeResp.Data
		result := fmt.Sprintf("Title: %s\nSource: %s\n\n%s", d.Metadata.Title, d.Metadata.SourceURL, d.Markdown)
		return mcp.NewToolResultText(result), nil
	}
}

func handleSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		reqBody := searchRequest{Query: query}
		args := request.GetArguments()
		if limit, ok := args["limit"].(float64); ok {
			reqBody.Limit = int(limit)
		}
		if sources, ok := args["sources"].([]interface{}); ok {
			for _, s := range sources {
				if str, ok := s.(string); ok {
					reqBody.Sources = append(reqBody.Sources, str)
				}
			}
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/search", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search request failed: %v", err)), nil
		}

		var searchResp searchResponse
		if err := json.Unmarshal(respBody, &searchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !searchResp.Success || searchResp.Data == nil {
			errMsg := "search failed"
			if searchResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", searchResp.Error.Error, searchResp.Error.Detail)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		for _, r := range searchResp.Data.Web {
			sb.WriteString(fmt.Sprintf("%d. %s\n   %s\n   %s\n\n", r.Position, r.Title, r.URL, r.Description))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
