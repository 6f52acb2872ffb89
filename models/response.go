package models

// ExtractionResult is the data payload of a successful scrape.
//
// Invariant: Markdown is non-empty iff extraction succeeded. StatusCode is
// the final HTTP status observed after all redirects.
type ExtractionResult struct {
	Markdown string    `json:"markdown"`
	Metadata Metadata  `json:"metadata"`
	HTML     string    `json:"html,omitempty"`
	RawHTML  string    `json:"rawHtml,omitempty"`
	Links    []string  `json:"links,omitempty"`
}

// Metadata holds page-level information extracted during scraping.
type Metadata struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Language      string `json:"language,omitempty"`
	SourceURL     string `json:"sourceURL"`
	StatusCode    int    `json:"statusCode"`
	Author        string `json:"author,omitempty"`
	SiteName      string `json:"siteName,omitempty"`
	OGType        string `json:"ogType,omitempty"`
	OGUrl         string `json:"ogUrl,omitempty"`
	Image         string `json:"image,omitempty"`
	PublishedTime string `json:"publishedTime,omitempty"`
	ModifiedTime  string `json:"modifiedTime,omitempty"`
	CanonicalURL  string `json:"canonicalURL,omitempty"`
	Favicon       string `json:"favicon,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	Generator     string `json:"generator,omitempty"`
}

// ScrapeResponse is the wire envelope for POST /scrape.
type ScrapeResponse struct {
	Success bool              `json:"success"`
	Data    *ExtractionResult `json:"data,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"poolStats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser context pool.
type PoolStats struct {
	MaxPages    int `json:"maxPages"`
	ActivePages int `json:"activePages"`
	BrowserPID  int `json:"browserPid"`
}
