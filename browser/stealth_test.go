package browser

import (
	"strings"
	"testing"
)

func TestPickProfile_AlwaysFromPool(t *testing.T) {
	for i := 0; i < 50; i++ {
		profile := pickProfile()
		found := false
		for _, p := range profiles {
			if p.UserAgent == profile.UserAgent {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("picked profile not found in pool: %+v", profile)
		}
	}
}

func TestProfile_ExtraHeadersAgreeWithPlatform(t *testing.T) {
	for _, p := range profiles {
		headers := p.ExtraHeaders()
		if headers["Sec-CH-UA-Platform"] != p.SecCHUAPlatform {
			t.Fatalf("Sec-CH-UA-Platform %q does not match profile platform hint %q", headers["Sec-CH-UA-Platform"], p.SecCHUAPlatform)
		}
		if headers["Sec-CH-UA-Mobile"] != "?0" {
			t.Fatalf("expected desktop profile to report Sec-CH-UA-Mobile ?0, got %q", headers["Sec-CH-UA-Mobile"])
		}
	}
}

func TestProfile_ScriptEmbedsFingerprint(t *testing.T) {
	p := profiles[0]
	script := p.Script()
	for _, want := range []string{p.Platform, p.WebGLVendor, p.WebGLRenderer, p.Locale} {
		if !strings.Contains(script, want) {
			t.Fatalf("expected script to embed %q", want)
		}
	}
}
