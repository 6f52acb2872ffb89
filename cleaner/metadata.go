package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/purify/models"
)

// buildMetaIndex indexes every <meta> tag by its lowercased name, property,
// or itemprop attribute, keeping the first occurrence of each key.
func buildMetaIndex(doc *goquery.Document) map[string]string {
	index := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, hasContent := s.Attr("content")
		if !hasContent {
			return
		}
		for _, attr := range []string{"name", "property", "itemprop"} {
			if key, ok := s.Attr(attr); ok && key != "" {
				key = strings.ToLower(key)
				if _, exists := index[key]; !exists {
					index[key] = content
				}
			}
		}
	})
	return index
}

// extractMetadata builds the result Metadata from the raw HTML, preferring
// values readability already found (articleTitle/articleExcerpt) before
// falling back to Open Graph and plain meta tags.
func extractMetadata(doc *goquery.Document, base *url.URL, articleTitle, articleExcerpt string, statusCode int) models.Metadata {
	meta := buildMetaIndex(doc)

	title := articleTitle
	if title == "" {
		title = meta["og:title"]
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	description := articleExcerpt
	if description == "" {
		description = meta["og:description"]
	}
	if description == "" {
		description = meta["description"]
	}

	language, _ := doc.Find("html").First().Attr("lang")
	if language == "" {
		language = meta["og:locale"]
	}

	if statusCode == 0 {
		statusCode = 200
	}

	return models.Metadata{
		Title:         title,
		Description:   description,
		Language:      language,
		SourceURL:     base.String(),
		StatusCode:    statusCode,
		Author:        firstNonEmpty(meta["author"], meta["article:author"]),
		SiteName:      meta["og:site_name"],
		OGType:        meta["og:type"],
		OGUrl:         meta["og:url"],
		Image:         meta["og:image"],
		PublishedTime: firstNonEmpty(meta["article:published_time"], meta["og:article:published_time"]),
		ModifiedTime:  firstNonEmpty(meta["article:modified_time"], meta["og:article:modified_time"]),
		CanonicalURL:  resolveLink(doc, base, `link[rel="canonical"]`),
		Favicon:       resolveFavicon(doc, base),
		Keywords:      meta["keywords"],
		Generator:     meta["generator"],
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveLink(doc *goquery.Document, base *url.URL, selector string) string {
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

func resolveFavicon(doc *goquery.Document, base *url.URL) string {
	for _, selector := range []string{`link[rel="icon"]`, `link[rel="shortcut icon"]`, `link[rel="apple-touch-icon"]`} {
		if favicon := resolveLink(doc, base, selector); favicon != "" {
			return favicon
		}
	}
	resolved, err := base.Parse("/favicon.ico")
	if err != nil {
		return ""
	}
	return resolved.String()
}
