// Package stealth builds anti-detection browser launch configuration and the
// page-scoped property overrides that hide the automation layer. Overrides do
// not survive navigation, so the session layer re-applies them after every
// page change.
package stealth

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/yourusername/instadm-pro/internal/logger"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// windowSizes is the enumerated set of realistic desktop window sizes.
var windowSizes = []struct{ Width, Height int }{
	{1366, 768},
	{1920, 1080},
	{1440, 900},
	{1536, 864},
	{1280, 720},
}

// userAgents is the enumerated set of realistic Chrome user agents.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// disableFlags are the feature-disabling switches applied to every launch.
var disableFlags = []string{
	"no-sandbox",
	"disable-dev-shm-usage",
	"disable-blink-features=AutomationControlled",
	"disable-extensions",
	"disable-notifications",
	"disable-popup-blocking",
	"disable-gpu",
	"disable-infobars",
	"disable-plugins-discovery",
	"disable-default-apps",
	"disable-background-networking",
	"disable-sync",
	"no-first-run",
	"mute-audio",
}

// RandomUserAgent picks a user agent from the enumerated set.
func RandomUserAgent() string {
	return userAgents[rng.Intn(len(userAgents))]
}

// RandomWindowSize picks a window size from the enumerated set.
func RandomWindowSize() (width, height int) {
	size := windowSizes[rng.Intn(len(windowSizes))]
	return size.Width, size.Height
}

// BuildLaunchOptions constructs a fresh launcher with the feature-disabling
// flags plus a randomized window size and user agent. Callers must build a new
// launcher per session; launcher values are never reused across sessions.
func BuildLaunchOptions(headless bool) *launcher.Launcher {
	l := launcher.New().
		Headless(headless).
		Devtools(false).
		Leakless(false)

	for _, flag := range disableFlags {
		name, value := splitFlag(flag)
		if value == "" {
			l = l.Set(name)
		} else {
			l = l.Set(name, value)
		}
	}

	width, height := RandomWindowSize()
	l = l.Set("window-size", fmt.Sprintf("%d,%d", width, height))
	l = l.Set("lang", "en-US")
	l = l.Set("user-agent", RandomUserAgent())

	return l
}

// override is one page-scoped property spoof. Each script guards its own
// redefinition so applying the battery twice is harmless.
type override struct {
	name   string
	script string
}

var pageOverrides = []override{
	{
		name: "webdriver-flag",
		script: `() => {
			Object.defineProperty(navigator, 'webdriver', {
				get: () => undefined,
				configurable: true,
			});
		}`,
	},
	{
		name: "plugin-count",
		script: `() => {
			Object.defineProperty(navigator, 'plugins', {
				get: () => [1, 2, 3, 4, 5],
				configurable: true,
			});
		}`,
	},
	{
		name: "permissions-query",
		script: `() => {
			if (window.__permissionsPatched) return;
			window.__permissionsPatched = true;
			const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
			window.navigator.permissions.query = (parameters) => (
				parameters.name === 'notifications'
					? Promise.resolve({ state: Notification.permission })
					: originalQuery(parameters)
			);
		}`,
	},
	{
		name: "chrome-runtime",
		script: `() => {
			if (window.chrome && window.chrome.runtime) return;
			window.chrome = Object.assign({}, window.chrome, { runtime: {} });
		}`,
	},
	{
		name: "element-connectivity",
		script: `() => {
			if (window.__isConnectedPatched) return;
			window.__isConnectedPatched = true;
			const descriptor = Object.getOwnPropertyDescriptor(Node.prototype, 'isConnected');
			if (!descriptor || !descriptor.get) return;
			const original = descriptor.get;
			Object.defineProperty(Node.prototype, 'isConnected', {
				get() { return original.call(this); },
				configurable: true,
			});
		}`,
	},
	{
		name: "screen-offsets",
		script: `() => {
			Object.defineProperty(window, 'screenX', { get: () => 0, configurable: true });
			Object.defineProperty(window, 'screenY', { get: () => 24, configurable: true });
			Object.defineProperty(window, 'outerWidth', { get: () => window.innerWidth, configurable: true });
			Object.defineProperty(window, 'outerHeight', { get: () => window.innerHeight + 85, configurable: true });
		}`,
	},
}

// ApplyPageOverrides applies the full battery of property spoofs to a page.
// One failing override never blocks the rest; the battery is idempotent and
// must be re-applied after every navigation since overrides are page-scoped.
func ApplyPageOverrides(page *rod.Page) {
	for _, o := range pageOverrides {
		if _, err := page.Eval(o.script); err != nil {
			logger.Debug("Stealth override failed", "override", o.name, "error", err)
		}
	}
}

// Overrides exposes the override scripts for inspection in tests.
func Overrides() []string {
	scripts := make([]string, len(pageOverrides))
	for i, o := range pageOverrides {
		scripts[i] = o.script
	}
	return scripts
}

// splitFlag splits a "name=value" switch into launcher.Set arguments.
func splitFlag(flag string) (flags.Flag, string) {
	for i := 0; i < len(flag); i++ {
		if flag[i] == '=' {
			return flags.Flag(flag[:i]), flag[i+1:]
		}
	}
	return flags.Flag(flag), ""
}
