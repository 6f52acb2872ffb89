package fetch

import "testing"

func TestTrackerPattern_MatchesKnownTrackers(t *testing.T) {
	cases := []string{
		"https://www.google-analytics.com/collect",
		"https://www.googletagmanager.com/gtm.js",
		"https://connect.facebook.net/en_US/sdk.js",
		"https://static.hotjar.com/c/hotjar.js",
		"https://cdn.segment.io/analytics.js",
		"https://example.com/vendor/analytics.min.js",
	}
	for _, u := range cases {
		if !trackerPattern.MatchString(u) {
			t.Errorf("expected %q to match the tracker pattern", u)
		}
	}
}

func TestTrackerPattern_IgnoresOrdinaryRequests(t *testing.T) {
	cases := []string{
		"https://example.com/article/page",
		"https://cdn.example.com/styles/main.css",
	}
	for _, u := range cases {
		if trackerPattern.MatchString(u) {
			t.Errorf("expected %q not to match the tracker pattern", u)
		}
	}
}
