// Package fetch implements the fast, browser-less fetch path (C7) and the
// full browser-rendered fetch path (C8).
package fetch

import (
	"context"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls2 "github.com/refraction-networking/utls"
)

// minBodyBytes is the size floor below which a response is treated as a
// paywall/interstitial shell rather than real content.
const minBodyBytes = 2000

// maxTimeout is the hard cap on how long a fast fetch may run, regardless
// of the caller's requested timeout.
const maxTimeout = 5 * time.Second

const maxBodyBytes = 10 * 1024 * 1024

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// Result is what a successful fetch (fast or browser) produced.
type Result struct {
	HTML       string
	FinalURL   string
	StatusCode int
}

// Options carries the per-request overrides: extra headers, forwarded as-is
// by both fetchers, and an outbound proxy for this single request, which
// only the Fast fetcher applies (the Browser fetcher uses the pool's
// launch-time proxy).
type Options struct {
	Headers  map[string]string
	ProxyURL string
}

// Fast issues a single HTTP GET with a Chrome TLS fingerprint and a short
// timeout, rejecting responses that don't look like real rendered-enough
// HTML. A false return means "try the browser fetcher instead", not an
// error — the caller should not surface this to the user directly.
type Fast struct{}

// NewFast builds a Fast fetcher.
func NewFast() *Fast {
	return &Fast{}
}

// Fetch retrieves rawURL. ok is false if the transport failed, the
// response isn't text/html, or the body is too small to be real content.
func (f *Fast) Fetch(ctx context.Context, rawURL string, timeout time.Duration, opts Options) (result *Result, ok bool) {
	if timeout <= 0 || timeout > maxTimeout {
		timeout = maxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport := &http.Transport{
		DialTLSContext: dialTLSChrome,
	}
	if opts.ProxyURL != "" {
		if proxyURL, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, false
	}
	if len(body) < minBodyBytes {
		return nil, false
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		HTML:       string(body),
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
	}, true
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// dialTLSChrome dials TLS with a Chrome ClientHello fingerprint so the
// byte-level handshake matches a real browser, not just the header set.
// ALPN is forced to HTTP/1.1 since the rest of the stack doesn't speak h2
// over this connection.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
		NextProtos: []string{"http/1.1"},
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
