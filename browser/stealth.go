package browser

import (
	"fmt"
	"math/rand"
)

// Profile is one internally-consistent browser fingerprint: every field
// must agree with every other (a Windows platform never pairs with a Mac
// UA string, a mobile viewport never pairs with Mobile: false, etc).
type Profile struct {
	UserAgent           string
	Platform            string
	Locale              string
	Timezone            string
	ViewportWidth       int
	ViewportHeight      int
	DeviceScaleFactor   float64
	Mobile              bool
	HardwareConcurrency int
	DeviceMemory        int
	WebGLVendor         string
	WebGLRenderer       string
	SecCHUA             string
	SecCHUAPlatform     string
}

// profiles is the small fixed pool one profile is drawn from per context.
var profiles = []Profile{
	{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Platform:            "Win32",
		Locale:              "en-US",
		Timezone:            "America/New_York",
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		DeviceScaleFactor:   1,
		Mobile:              false,
		HardwareConcurrency: 8,
		DeviceMemory:        8,
		WebGLVendor:         "Google Inc. (NVIDIA)",
		WebGLRenderer:       "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		SecCHUA:             `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`,
		SecCHUAPlatform:     `"Windows"`,
	},
	{
		UserAgent:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Platform:            "MacIntel",
		Locale:              "en-US",
		Timezone:            "America/Los_Angeles",
		ViewportWidth:       1680,
		ViewportHeight:      1050,
		DeviceScaleFactor:   2,
		Mobile:              false,
		HardwareConcurrency: 10,
		DeviceMemory:        16,
		WebGLVendor:         "Google Inc. (Apple)",
		WebGLRenderer:       "ANGLE (Apple, Apple M2, OpenGL 4.1)",
		SecCHUA:             `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`,
		SecCHUAPlatform:     `"macOS"`,
	},
	{
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Platform:            "Linux x86_64",
		Locale:              "en-GB",
		Timezone:            "Europe/London",
		ViewportWidth:       1366,
		ViewportHeight:      768,
		DeviceScaleFactor:   1,
		Mobile:              false,
		HardwareConcurrency: 4,
		DeviceMemory:        4,
		WebGLVendor:         "Google Inc. (Intel)",
		WebGLRenderer:       "ANGLE (Intel, Mesa Intel(R) UHD Graphics 620 (KBL GT2), OpenGL 4.6)",
		SecCHUA:             `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`,
		SecCHUAPlatform:     `"Linux"`,
	},
	{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		Platform:            "Win32",
		Locale:              "en-CA",
		Timezone:            "America/Chicago",
		ViewportWidth:       1536,
		ViewportHeight:      864,
		DeviceScaleFactor:   1,
		Mobile:              false,
		HardwareConcurrency: 16,
		DeviceMemory:        16,
		WebGLVendor:         "Google Inc. (Intel)",
		WebGLRenderer:       "ANGLE (Intel, Intel(R) Iris(R) Xe Graphics, OpenGL 4.6)",
		SecCHUA:             `"Chromium";v="123", "Google Chrome";v="123", "Not-A.Brand";v="99"`,
		SecCHUAPlatform:     `"Windows"`,
	},
}

// pickProfile draws one profile uniformly at random from the pool.
func pickProfile() Profile {
	return profiles[rand.Intn(len(profiles))]
}

// ExtraHeaders returns the request headers that must agree with the
// profile's fingerprint (Client-Hints, locale, privacy/upgrade signals).
func (p Profile) ExtraHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           p.Locale + ",en;q=0.9",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-CH-UA":                 p.SecCHUA,
		"Sec-CH-UA-Platform":        p.SecCHUAPlatform,
		"Sec-CH-UA-Mobile":          mobileHint(p.Mobile),
	}
}

func mobileHint(mobile bool) string {
	if mobile {
		return "?1"
	}
	return "?0"
}

// Script builds the DOM-patching script this profile injects before any
// page script runs in any frame. It masks the markers headless Chrome
// otherwise exposes and keeps every patched property internally consistent
// with the rest of the profile. Every patch is idempotent and swallows
// redefinition failures rather than throwing.
func (p Profile) Script() string {
	return fmt.Sprintf(stealthScriptTemplate,
		p.Platform,
		p.HardwareConcurrency,
		p.DeviceMemory,
		p.Locale,
		p.WebGLVendor,
		p.WebGLRenderer,
	)
}

const stealthScriptTemplate = `(() => {
	const patch = (obj, prop, value) => {
		try {
			Object.defineProperty(obj, prop, { get: () => value, configurable: true });
		} catch (e) {}
	};

	patch(Navigator.prototype, 'webdriver', undefined);
	patch(Navigator.prototype, 'platform', %q);
	patch(Navigator.prototype, 'hardwareConcurrency', %d);
	patch(Navigator.prototype, 'deviceMemory', %d);
	patch(Navigator.prototype, 'languages', Object.freeze(['%s', 'en']));

	if (!window.chrome) {
		window.chrome = { runtime: {}, loadTimes: () => {}, csi: () => {}, app: {} };
	}

	const fakePlugin = (name, filename, description) => ({ name, filename, description, length: 1 });
	const pluginList = [
		fakePlugin('PDF Viewer', 'internal-pdf-viewer', 'Portable Document Format'),
		fakePlugin('Chrome PDF Viewer', 'internal-pdf-viewer', 'Portable Document Format'),
		fakePlugin('Native Client', 'internal-nacl-plugin', ''),
	];
	pluginList.item = (i) => pluginList[i];
	pluginList.namedItem = (n) => pluginList.find((p) => p.name === n);
	patch(Navigator.prototype, 'plugins', pluginList);
	const mimeTypeList = [{ type: 'application/pdf', suffixes: 'pdf', description: '' }];
	mimeTypeList.item = (i) => mimeTypeList[i];
	mimeTypeList.namedItem = (n) => mimeTypeList.find((m) => m.type === n);
	patch(Navigator.prototype, 'mimeTypes', mimeTypeList);

	const patchWebGL = (proto) => {
		const orig = proto.getParameter;
		proto.getParameter = function (param) {
			if (param === 37445) return %q;
			if (param === 37446) return %q;
			return orig.call(this, param);
		};
	};
	try {
		patchWebGL(WebGLRenderingContext.prototype);
		if (window.WebGL2RenderingContext) patchWebGL(WebGL2RenderingContext.prototype);
	} catch (e) {}

	try {
		const origQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (params) =>
			params && params.name === 'notifications'
				? Promise.resolve({ state: Notification.permission })
				: origQuery(params);
	} catch (e) {}

	try {
		const origContentWindow = Object.getOwnPropertyDescriptor(HTMLIFrameElement.prototype, 'contentWindow').get;
		Object.defineProperty(HTMLIFrameElement.prototype, 'contentWindow', {
			get() {
				const win = origContentWindow.call(this);
				if (win && !win.chrome) win.chrome = window.chrome;
				return win;
			},
		});
	} catch (e) {}
})();`
