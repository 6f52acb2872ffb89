package cleaner

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/PuerkitoBio/goquery"
)

// minContentLength is the TextContent length below which a readability
// pass is considered to have failed to locate the main content.
const minContentLength = 50

// relaxedCharThreshold and relaxedTopCandidates are used for the single
// retry pass with loosened thresholds.
const relaxedCharThreshold = 100
const relaxedTopCandidates = 10

// mainContent runs the readability heuristic against rawHTML, retrying
// once with relaxed thresholds, and falling back to the full <body> when
// both passes come up empty. ok reports whether readability (either pass)
// produced usable content, as opposed to the full-body fallback.
func mainContent(rawHTML string, base *url.URL) (content, title, excerpt string, ok bool) {
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), base)
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= minContentLength {
		return article.Content, article.Title, article.Excerpt, true
	}

	parser.CharThreshold = relaxedCharThreshold
	parser.NTopCandidates = relaxedTopCandidates
	article, err = parser.Parse(strings.NewReader(rawHTML), base)
	if err == nil && len(strings.TrimSpace(article.TextContent)) > 0 {
		return article.Content, article.Title, article.Excerpt, true
	}

	return fullBody(rawHTML), "", "", false
}

// fullBody returns the inner HTML of <body>, or rawHTML unchanged if it
// cannot be parsed.
func fullBody(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return rawHTML
	}
	out, err := body.Html()
	if err != nil {
		return rawHTML
	}
	return out
}
