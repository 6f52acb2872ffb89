package models

// SearchRequest is the payload for POST /search.
type SearchRequest struct {
	Query         string         `json:"query" binding:"required"`
	Limit         int            `json:"limit,omitempty"`
	Sources       []string       `json:"sources,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// ScrapeOptions are the shared extraction settings applied to each fanned-out
// search result when ScrapeOptions.Formats is non-empty.
type ScrapeOptions struct {
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.Limit <= 0 {
		r.Limit = 10
	}
	if r.Limit > 20 {
		r.Limit = 20
	}
}

// SearchResult is one normalised result from the upstream meta-search engine,
// optionally enriched with a full extraction when scrapeOptions.formats was
// requested.
type SearchResult struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Position    int     `json:"position"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"-"`

	Markdown string   `json:"markdown,omitempty"`
	HTML     string   `json:"html,omitempty"`
	RawHTML  string   `json:"rawHtml,omitempty"`
	Links    []string `json:"links,omitempty"`
}

// SearchData is the "data" payload of a successful /search response.
type SearchData struct {
	Web []*SearchResult `json:"web"`
}

// SearchResponse is the wire envelope for POST /search.
type SearchResponse struct {
	Success bool         `json:"success"`
	Data    *SearchData  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// upstreamResult mirrors one entry of the SearXNG-style JSON result array.
type upstreamResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Engine        string   `json:"engine"`
	Engines       []string `json:"engines"`
	Score         float64  `json:"score"`
	PublishedDate string   `json:"publishedDate"`
	Category      string   `json:"category"`
}

// UpstreamResult is the exported form of upstreamResult, used by the search
// package to decode the meta-search backend's response body.
type UpstreamResult = upstreamResult

// UpstreamResponse is the decoded shape of the meta-search backend's JSON body.
type UpstreamResponse struct {
	Results            []UpstreamResult `json:"results"`
	NumberOfResults    int              `json:"number_of_results"`
	Suggestions        []string         `json:"suggestions"`
	Answers            []string         `json:"answers"`
	UnresponsiveEngines []string        `json:"unresponsive_engines"`
}
