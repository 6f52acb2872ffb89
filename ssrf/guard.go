// Package ssrf classifies outbound fetch targets as safe or unsafe, both
// before navigation (DNS-aware) and synchronously for every sub-request a
// browser page attempts during navigation.
package ssrf

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/purify/models"
)

// privateHostnameSuffixes are hostname suffixes that denote internal-only
// naming conventions, independent of what they resolve to.
var privateHostnameSuffixes = []string{
	".internal", ".intranet", ".home", ".lan", ".corp",
	".test", ".example", ".invalid",
}

// localhostSuffixes are suffixes that denote the local machine itself.
var localhostSuffixes = []string{".localhost", ".local"}

// inlineRFC1918Patterns catch private-looking hostnames that are not
// literal IPs (e.g. a DNS label that embeds an RFC-1918 octet string).
var inlineRFC1918Patterns = []*regexp.Regexp{
	regexp.MustCompile(`^10-\d{1,3}-\d{1,3}-\d{1,3}\.`),
	regexp.MustCompile(`^192-168-\d{1,3}-\d{1,3}\.`),
	regexp.MustCompile(`^172-(1[6-9]|2\d|3[01])-\d{1,3}-\d{1,3}\.`),
}

// Resolver abstracts DNS lookup so tests can stub it; *net.Resolver
// satisfies it via LookupIPAddr.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard evaluates SSRF-safety for outbound fetch targets.
type Guard struct {
	resolver Resolver
}

// New creates a Guard backed by the standard net.Resolver.
func New() *Guard {
	return &Guard{resolver: net.DefaultResolver}
}

// NewWithResolver creates a Guard backed by a caller-supplied resolver, for
// deterministic testing of the fail-closed DNS path.
func NewWithResolver(r Resolver) *Guard {
	return &Guard{resolver: r}
}

// Preflight performs the full, DNS-aware safety check before any navigation
// begins. It returns nil when the URL is safe to fetch, or a *ScrapeError
// carrying the blocking reason as its Kind.
//
// The DNS step is fail-closed: any lookup error is treated as private.
func (g *Guard) Preflight(ctx context.Context, rawURL string) *models.ScrapeError {
	host, kind := syncChecks(rawURL)
	if kind != "" {
		return models.NewScrapeError(kind, "blocked by SSRF guard: "+kind, nil)
	}

	// syncChecks returns the hostname whenever it finds no blocking reason;
	// re-derive it here only as a guard against an empty value.
	if host == "" {
		u, _ := url.Parse(rawURL)
		host = u.Hostname()
	}

	if net.ParseIP(host) != nil {
		// Already checked as a literal IP in syncChecks; nothing left to resolve.
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return models.NewScrapeError(models.ErrBlockedPrivateResolution,
			"DNS resolution failed or returned no addresses", err)
	}
	for _, a := range addrs {
		if isPrivateIP(a.IP) {
			return models.NewScrapeError(models.ErrBlockedPrivateResolution,
				"resolved address is private: "+a.IP.String(), nil)
		}
	}
	return nil
}

// ShouldBlockRequest is the synchronous, DNS-free guard applied to every
// sub-request a browser page attempts during navigation. It is a pure
// function of its input.
func (g *Guard) ShouldBlockRequest(rawURL string) bool {
	_, kind := syncChecks(rawURL)
	return kind != ""
}

// syncChecks runs every check that does not require a DNS round-trip, in
// the order mandated by the specification (first match wins). It returns
// the parsed hostname (when available) and the blocking reason, or an
// empty reason when nothing matched.
func syncChecks(rawURL string) (host string, reason string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", models.ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", models.ErrUnsupportedProtocol
	}

	host = u.Hostname()
	lowerHost := strings.ToLower(host)

	if lowerHost == "" || lowerHost == "localhost" || lowerHost == "ip6-localhost" {
		return host, models.ErrBlockedLocalhost
	}
	for _, suf := range localhostSuffixes {
		if strings.HasSuffix(lowerHost, suf) {
			return host, models.ErrBlockedLocalhost
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return host, models.ErrBlockedPrivateIP
		}
		return host, ""
	}

	for _, suf := range privateHostnameSuffixes {
		if strings.HasSuffix(lowerHost, suf) {
			return host, models.ErrBlockedPrivateHostname
		}
	}
	for _, re := range inlineRFC1918Patterns {
		if re.MatchString(lowerHost) {
			return host, models.ErrBlockedPrivateHostname
		}
	}

	return host, ""
}

// isPrivateIP classifies an address as private/reserved for SSRF purposes.
// IPv4-mapped IPv6 addresses are unwrapped and re-checked as IPv4.
func isPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.IsLoopback() ||
			ip4.IsPrivate() ||
			ip4.IsLinkLocalUnicast() ||
			ip4.IsUnspecified() ||
			isReservedIPv4(ip4)
	}
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsUnspecified() ||
		isUniqueLocalIPv6(ip)
}

// reservedIPv4Blocks covers ranges beyond net.IP's own Private/LinkLocal
// classification that are still unsafe to let a server dial: the 240/4
// "reserved for future use" block and the 100.64/10 carrier-grade NAT block.
var reservedIPv4Blocks = []*net.IPNet{
	mustCIDR("240.0.0.0/4"),
	mustCIDR("100.64.0.0/10"),
}

func isReservedIPv4(ip net.IP) bool {
	for _, b := range reservedIPv4Blocks {
		if b.Contains(ip) {
			return true
		}
	}
	return false
}

// isUniqueLocalIPv6 reports whether ip is in fc00::/7 (ULA).
func isUniqueLocalIPv6(ip net.IP) bool {
	return mustCIDR("fc00::/7").Contains(ip)
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}
