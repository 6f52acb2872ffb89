package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelector lists every element the extractor drops outright: media
// embeds, interactive chrome, and the navigation/sidebar/ad furniture
// around an article.
const noiseSelector = `img, picture, source, video, audio, iframe, embed, object, canvas, svg, script, style, noscript, form, button, input, select, textarea, link, nav, header, footer, aside, [aria-live], [role=banner], [role=navigation], [role=contentinfo], [class*=sidebar], [class*=ad-], [class*=advertisement], [class*=social], [class*=share], [class*=related], [id*=ad-]`

// whitelistTags are the only elements left standing after the unwrap pass;
// everything else is unwrapped in place with its children promoted.
var whitelistTags = map[string]struct{}{
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"p": {}, "ul": {}, "ol": {}, "li": {}, "a": {},
	"pre": {}, "code": {}, "blockquote": {},
	"table": {}, "thead": {}, "tbody": {}, "tfoot": {}, "tr": {}, "th": {}, "td": {},
	"em": {}, "i": {}, "strong": {}, "b": {}, "hr": {}, "br": {},
	"dl": {}, "dt": {}, "dd": {}, "sup": {}, "sub": {}, "abbr": {}, "mark": {},
	"del": {}, "ins": {}, "details": {}, "summary": {},
}

// preStrip removes <style> blocks, stylesheet <link> tags, and inline
// style="" attributes from the raw HTML before anything else runs.
func preStrip(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	doc.Find("style").Remove()
	doc.Find(`link[rel="stylesheet"]`).Remove()
	doc.Find("[style]").RemoveAttr("style")
	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}

// rewriteLinks makes every <a href> absolute against base. A malformed
// href is left untouched rather than dropped.
func rewriteLinks(doc *goquery.Selection, base *url.URL) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		s.SetAttr("href", resolved.String())
	})
}

// removeNoise drops the elements named in noiseSelector.
func removeNoise(doc *goquery.Selection) {
	doc.Find(noiseSelector).Remove()
}

// handleFigures replaces every <figure> with its <figcaption> wrapped in a
// <p>, or removes it entirely if it has no caption.
func handleFigures(doc *goquery.Selection) {
	doc.Find("figure").Each(func(_ int, fig *goquery.Selection) {
		caption := fig.Find("figcaption").First()
		if caption.Length() == 0 {
			fig.Remove()
			return
		}
		text := strings.TrimSpace(caption.Text())
		if text == "" {
			fig.Remove()
			return
		}
		fig.ReplaceWithHtml("<p>" + html.EscapeString(text) + "</p>")
	})
}

// unwrapNonWhitelisted walks the tree depth-first and, for every element
// not in whitelistTags, promotes its children into its own place and drops
// the element itself. Text content is preserved; order is preserved.
func unwrapNonWhitelisted(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode {
			unwrapNonWhitelisted(child)
			if _, keep := whitelistTags[child.Data]; !keep {
				unwrapInPlace(n, child)
			}
		}
		child = next
	}
}

// unwrapInPlace removes n from parent but re-inserts n's children in its
// former position.
func unwrapInPlace(parent, n *html.Node) {
	next := n.NextSibling
	for c := n.FirstChild; c != nil; {
		after := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, next)
		c = after
	}
	parent.RemoveChild(n)
}

// scrubAttributes strips every attribute from every element in the tree
// except href on <a>.
func scrubAttributes(n *html.Node) {
	if n.Type == html.ElementNode {
		if n.Data == "a" {
			href := ""
			for _, a := range n.Attr {
				if a.Key == "href" {
					href = a.Val
				}
			}
			if href != "" {
				n.Attr = []html.Attribute{{Key: "href", Val: href}}
			} else {
				n.Attr = nil
			}
		} else {
			n.Attr = nil
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		scrubAttributes(c)
	}
}

// parseFragment parses an HTML fragment into a <body>-rooted node whose
// children are the fragment's top-level nodes.
func parseFragment(fragment string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, nil
}

// renderInner renders every child of n back to an HTML string.
func renderInner(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// sanitizeFragment runs the whitelist-unwrap and attribute-scrub passes
// (pipeline steps 7-8) over an HTML fragment and returns the sanitized
// HTML string.
func sanitizeFragment(fragment string) (string, error) {
	body, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}
	unwrapNonWhitelisted(body)
	scrubAttributes(body)
	return renderInner(body), nil
}
