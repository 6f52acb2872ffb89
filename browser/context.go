package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/purify/models"
	"github.com/ysmood/gson"
)

// Context is a single-use, isolated browser context with a stealth profile
// applied. It is never reused across requests: Close disposes it entirely.
type Context struct {
	browser *rod.Browser
	profile Profile
}

// NewContext acquires the pool's current browser and opens a fresh
// incognito context carrying a randomly drawn stealth profile.
func NewContext(ctx context.Context, pool *Pool) (*Context, error) {
	base, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	incognito, err := base.Incognito()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to create isolated browser context", err)
	}

	return &Context{browser: incognito, profile: pickProfile()}, nil
}

// Profile returns the fingerprint this context was assigned.
func (c *Context) Profile() Profile {
	return c.profile
}

// NewPage opens a fresh page in this context with the stealth script
// installed to run before any other page script, and the profile's
// viewport and Client-Hints headers applied, merged with any caller-supplied
// extra headers (which take precedence on conflict).
func (c *Context) NewPage(extraHeaders ...map[string]string) (*rod.Page, error) {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to open browser page", err)
	}

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to install base stealth script", err)
	}
	if _, err := page.EvalOnNewDocument(c.profile.Script()); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to install profile stealth script", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.profile.ViewportWidth,
		Height:            c.profile.ViewportHeight,
		DeviceScaleFactor: c.profile.DeviceScaleFactor,
		Mobile:            c.profile.Mobile,
	}); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to set viewport", err)
	}

	// The stealth script patches navigator.platform in JS, but CDP still
	// reports the real headless-Chrome UA/platform to the page and to the
	// network unless overridden here too — otherwise a Mac/Linux profile
	// ships a Windows UA string, the opposite of internally consistent.
	if _, err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      c.profile.UserAgent,
		AcceptLanguage: c.profile.Locale,
		Platform:       c.profile.Platform,
	}).Call(page); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to set user agent override", err)
	}

	if _, err := (proto.EmulationSetTimezoneOverride{TimezoneID: c.profile.Timezone}).Call(page); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to set timezone override", err)
	}

	merged := c.profile.ExtraHeaders()
	if len(extraHeaders) > 0 {
		for k, v := range extraHeaders[0] {
			merged[k] = v
		}
	}
	headers := toHeadersMap(merged)
	if _, err := (proto.NetworkSetExtraHTTPHeaders{Headers: headers}).Call(page); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to set extra headers", err)
	}

	return page, nil
}

// Close disposes the isolated context and every page it opened.
func (c *Context) Close() error {
	return c.browser.Close()
}

func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
