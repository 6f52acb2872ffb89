package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/purify/browser"
	"github.com/use-agent/purify/models"
	"github.com/use-agent/purify/ssrf"
)

// blockedResourceTypes never reach the network: they slow rendering and are
// never part of the extracted content.
var blockedResourceTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:       {},
	proto.NetworkResourceTypeFont:        {},
	proto.NetworkResourceTypeMedia:       {},
	proto.NetworkResourceTypeStylesheet:  {},
	proto.NetworkResourceTypeTextTrack:   {},
	proto.NetworkResourceTypeEventSource: {},
	proto.NetworkResourceTypeWebSocket:   {},
	proto.NetworkResourceTypeManifest:    {},
	proto.NetworkResourceTypeOther:       {},
}

var trackerPattern = regexp.MustCompile(`(?i)(google-analytics\.com|googletagmanager\.com|doubleclick\.net|facebook\.net|fbcdn\.net|analytics|hotjar\.com|segment\.io|sentry\.io|newrelic\.com|datadome\.co|cloudflareinsights\.com)`)

const mainContentSelector = `article, main, [role=main], .post-content, .entry-content, #content`

const overlayDismissScript = `() => {
	const selectors = [
		'#onetrust-accept-btn-handler',
		'button[aria-label*="accept" i]',
		'button[id*="accept" i]',
		'button[class*="accept" i]',
		'[class*="cookie"] button',
		'[class*="consent"] button',
		'button[aria-label*="close" i]',
		'[class*="modal"] [class*="close"]',
	];
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el && el.offsetParent !== null) {
			el.click();
			break;
		}
	}
	document.querySelectorAll('[class*="cookie"],[class*="consent"],[class*="gdpr"],[id*="cookie"],[id*="consent"]').forEach((el) => {
		el.style.display = 'none';
	});
}`

// Browser renders a page in an isolated stealth context (C8).
type Browser struct {
	pool       *browser.Pool
	guard      *ssrf.Guard
	navTimeout time.Duration
}

// NewBrowser builds a Browser fetcher bound to pool and guard. navTimeout
// is the page-navigation deadline (distinct from the overall per-request
// timeout, which also has to cover the post-navigation settle/action
// steps below).
func NewBrowser(pool *browser.Pool, guard *ssrf.Guard, navTimeout time.Duration) *Browser {
	return &Browser{pool: pool, guard: guard, navTimeout: navTimeout}
}

// Fetch navigates to rawURL in a fresh context, waits for the page to
// settle, dismisses consent overlays, and extracts the rendered HTML. The
// context (and every page/browser-context it opened) is closed on every
// exit path.
func (b *Browser) Fetch(ctx context.Context, rawURL string, timeout time.Duration, opts Options, cookies []models.Cookie, actions []models.Action) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bctx, err := browser.NewContext(ctx, b.pool)
	if err != nil {
		return nil, err
	}
	defer bctx.Close()

	page, err := bctx.NewPage(opts.Headers)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	p := page.Context(ctx)

	if err := b.installRequestFilter(p); err != nil {
		return nil, err
	}

	if err := setCookies(p, rawURL, cookies); err != nil {
		return nil, err
	}

	navTimeout := b.navTimeout
	if navTimeout <= 0 {
		navTimeout = 15 * time.Second
	}
	if err := p.Timeout(navTimeout).Navigate(rawURL); err != nil {
		return nil, models.NewScrapeError(models.ErrNavigationFailed, "navigation to target URL failed", err)
	}

	waitIdle(p)
	dismissOverlays(p)
	waitForMainContent(p)
	runActions(p, actions)

	if contentType := evalString(p, `() => document.contentType`); strings.Contains(contentType, "application/pdf") {
		return nil, models.NewScrapeError(models.ErrUnsupportedContentType, "response is a PDF, not HTML", nil)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to extract rendered HTML", err)
	}

	finalURL := evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = rawURL
	}

	statusCode := evalStatusCode(p)

	return &Result{HTML: html, FinalURL: finalURL, StatusCode: statusCode}, nil
}

// installRequestFilter aborts sub-requests that would reach a blocked
// host/IP, a blocked resource type, or a known tracker.
func (b *Browser) installRequestFilter(p *rod.Page) error {
	router := p.HijackRequests()
	if err := router.Add("*", "", func(hctx *rod.Hijack) {
		reqURL := hctx.Request.URL().String()
		if b.guard.ShouldBlockRequest(reqURL) || trackerPattern.MatchString(reqURL) {
			hctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if _, blocked := blockedResourceTypes[hctx.Request.Type()]; blocked {
			hctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		hctx.ContinueRequest(&proto.FetchContinueRequest{})
	}); err != nil {
		return models.NewScrapeError(models.ErrInternal, "failed to install request filter", err)
	}
	go router.Run()
	return nil
}

// waitIdle best-effort waits for the DOM to stabilise, capped at 2s. A
// timeout here is not an error: the caller proceeds with whatever rendered.
func waitIdle(p *rod.Page) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.Context(ctx).WaitDOMStable(300*time.Millisecond, 0.1)
}

func dismissOverlays(p *rod.Page) {
	_, _ = p.Eval(overlayDismissScript)
}

// waitForMainContent best-effort waits up to 3s for a main-content
// container to attach. A timeout is not an error.
func waitForMainContent(p *rod.Page) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _ = p.Context(ctx).Element(mainContentSelector)
}

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// evalStatusCode reads the navigation entry's response status via
// performance.getEntriesByType, since listening for network events
// conflicts with the Fetch-domain request filter above. Defaults to 200
// when unavailable.
func evalStatusCode(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0 && entries[0].responseStatus) return entries[0].responseStatus;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 200
	}
	if code := res.Value.Int(); code > 0 {
		return code
	}
	return 200
}

// setCookies injects the caller-supplied cookies before navigation. Cookies
// without an explicit domain are scoped to the target URL's host.
func setCookies(p *rod.Page, rawURL string, cookies []models.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return models.NewScrapeError(models.ErrInvalidURL, "target URL could not be parsed for cookie injection", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, ck := range cookies {
		domain := ck.Domain
		if domain == "" {
			domain = target.Hostname()
		}
		path := ck.Path
		if path == "" {
			path = "/"
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: domain,
			Path:   path,
		})
	}
	if err := (proto.NetworkSetCookies{Cookies: params}).Call(p); err != nil {
		return models.NewScrapeError(models.ErrInternal, "failed to inject cookies", err)
	}
	return nil
}

// actionTimeout is the per-action deadline. Actions are best-effort: a
// failing or slow action is logged and the fetch proceeds with whatever the
// page looks like.
const actionTimeout = 5 * time.Second

// runActions executes the caller-supplied post-navigation interactions, in
// order.
func runActions(p *rod.Page, actions []models.Action) {
	for _, a := range actions {
		ap := p.Timeout(actionTimeout)
		var err error
		switch a.Type {
		case "wait":
			err = runWait(ap, a)
		case "click":
			err = runClick(ap, a)
		case "scroll":
			err = runScroll(ap, a)
		case "execute_js":
			err = runExecuteJS(ap, a)
		}
		if err != nil {
			slog.Debug("action failed, continuing with page as-is", "type", a.Type, "error", err)
		}
	}
}

func runWait(p *rod.Page, a models.Action) error {
	if a.Selector != "" {
		return p.WaitElementsMoreThan(a.Selector, 0)
	}
	ms := a.Milliseconds
	if ms <= 0 {
		ms = 500
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return nil
}

func runClick(p *rod.Page, a models.Action) error {
	if a.Selector == "" {
		return fmt.Errorf("click action requires a selector")
	}
	el, err := p.Element(a.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", a.Selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// runScroll scrolls by full viewport heights, matching the teacher's
// unit-of-scroll ("amount" viewports, not pixels).
func runScroll(p *rod.Page, a models.Action) error {
	amount := a.Amount
	if amount <= 0 {
		amount = 1
	}
	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return fmt.Errorf("failed to read viewport height: %w", err)
	}
	viewportHeight := float64(res.Value.Int())

	for i := 0; i < amount; i++ {
		delta := viewportHeight
		if a.Direction == "up" {
			delta = -delta
		}
		if err := p.Mouse.Scroll(0, delta, 0); err != nil {
			return fmt.Errorf("scroll step %d failed: %w", i, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

func runExecuteJS(p *rod.Page, a models.Action) error {
	if a.Code == "" {
		return fmt.Errorf("execute_js action requires code")
	}
	_, err := p.Eval(a.Code)
	return err
}
