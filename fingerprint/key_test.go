package fingerprint

import (
	"regexp"
	"testing"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

func TestKey_OrderInsensitive(t *testing.T) {
	a := Key("scrape", map[string]any{"a": 1, "z": 2})
	b := Key("scrape", map[string]any{"z": 2, "a": 1})
	if a != b {
		t.Fatalf("expected order-insensitive key, got %q vs %q", a, b)
	}
}

func TestKey_DifferentPrefixDiffers(t *testing.T) {
	obj := map[string]any{"url": "https://example.com"}
	a := Key("scrape", obj)
	b := Key("search", obj)
	if a == b {
		t.Fatalf("expected different prefixes to yield different keys")
	}
}

func TestKey_DifferentValueDiffers(t *testing.T) {
	a := Key("scrape", map[string]any{"url": "https://example.com/1"})
	b := Key("scrape", map[string]any{"url": "https://example.com/2"})
	if a == b {
		t.Fatalf("expected different values to yield different keys")
	}
}

func TestKey_MatchesHexPattern(t *testing.T) {
	k := Key("scrape", map[string]any{"url": "https://example.com"})
	if !hexPattern.MatchString(k) {
		t.Fatalf("key %q does not match /^[0-9a-f]{24}$/", k)
	}
}
