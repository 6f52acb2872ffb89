package ssrf

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/use-agent/purify/models"
)

type stubResolver struct {
	addrs []net.IPAddr
	err   error
}

func (s stubResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return s.addrs, s.err
}

func TestShouldBlockRequest_SyncReasons(t *testing.T) {
	g := New()

	cases := []struct {
		url     string
		blocked bool
	}{
		{"http://localhost/secret", true},
		{"http://LOCALHOST/secret", true},
		{"http://foo.localhost/x", true},
		{"http://foo.local/x", true},
		{"http://192.168.1.1/admin", true},
		{"http://10.0.0.5/", true},
		{"http://127.0.0.1/", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/", true},
		{"http://svc.internal/", true},
		{"http://db.corp/", true},
		{"ftp://example.com/", true},
		{"not a url", true},
		{"http://public.example.com/page", false},
		{"https://8.8.8.8/", false},
	}

	for _, c := range cases {
		got := g.ShouldBlockRequest(c.url)
		if got != c.blocked {
			t.Errorf("ShouldBlockRequest(%q) = %v, want %v", c.url, got, c.blocked)
		}
	}
}

func TestShouldBlockRequest_Deterministic(t *testing.T) {
	g := New()
	url := "http://192.168.1.1/admin"
	first := g.ShouldBlockRequest(url)
	for i := 0; i < 5; i++ {
		if g.ShouldBlockRequest(url) != first {
			t.Fatalf("ShouldBlockRequest is not deterministic across calls")
		}
	}
}

func TestPreflight_BlockedLocalhost(t *testing.T) {
	g := New()
	err := g.Preflight(context.Background(), "http://localhost/secret")
	if err == nil || err.Kind != models.ErrBlockedLocalhost {
		t.Fatalf("expected blocked_localhost, got %v", err)
	}
}

func TestPreflight_BlockedPrivateIP(t *testing.T) {
	g := New()
	err := g.Preflight(context.Background(), "http://192.168.1.1/admin")
	if err == nil || err.Kind != models.ErrBlockedPrivateIP {
		t.Fatalf("expected blocked_private_ip, got %v", err)
	}
}

func TestPreflight_FailClosedOnDNSError(t *testing.T) {
	g := NewWithResolver(stubResolver{err: errors.New("lookup failed")})
	err := g.Preflight(context.Background(), "http://public.example.com/page")
	if err == nil || err.Kind != models.ErrBlockedPrivateResolution {
		t.Fatalf("expected blocked_private_resolution on DNS error, got %v", err)
	}
}

func TestPreflight_FailClosedOnPrivateResolution(t *testing.T) {
	g := NewWithResolver(stubResolver{addrs: []net.IPAddr{{IP: net.ParseIP("10.0.0.5")}}})
	err := g.Preflight(context.Background(), "http://public.example.com/page")
	if err == nil || err.Kind != models.ErrBlockedPrivateResolution {
		t.Fatalf("expected blocked_private_resolution for private resolved address, got %v", err)
	}
}

func TestPreflight_AllowsPublicResolution(t *testing.T) {
	g := NewWithResolver(stubResolver{addrs: []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}})
	err := g.Preflight(context.Background(), "http://public.example.com/page")
	if err != nil {
		t.Fatalf("expected no error for public address, got %v", err)
	}
}

func TestPreflight_InvalidURL(t *testing.T) {
	g := New()
	err := g.Preflight(context.Background(), "::::not a url::::")
	if err == nil || err.Kind != models.ErrInvalidURL {
		t.Fatalf("expected invalid_url, got %v", err)
	}
}

func TestPreflight_UnsupportedProtocol(t *testing.T) {
	g := New()
	err := g.Preflight(context.Background(), "ftp://example.com/file")
	if err == nil || err.Kind != models.ErrUnsupportedProtocol {
		t.Fatalf("expected unsupported_protocol, got %v", err)
	}
}

func TestIsPrivateIP_IPv4MappedIPv6(t *testing.T) {
	ip := net.ParseIP("::ffff:10.0.0.1")
	if !isPrivateIP(ip) {
		t.Fatalf("expected IPv4-mapped private address to be classified private")
	}
}
