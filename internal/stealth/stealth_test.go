package stealth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomUserAgentComesFromEnumeratedSet(t *testing.T) {
	for i := 0; i < 50; i++ {
		ua := RandomUserAgent()
		assert.Contains(t, userAgents, ua)
		assert.Contains(t, ua, "Chrome/")
	}
}

func TestRandomWindowSizeComesFromEnumeratedSet(t *testing.T) {
	for i := 0; i < 50; i++ {
		width, height := RandomWindowSize()
		found := false
		for _, size := range windowSizes {
			if size.Width == width && size.Height == height {
				found = true
				break
			}
		}
		assert.True(t, found, "unexpected size %dx%d", width, height)
	}
}

func TestBuildLaunchOptionsSetsDisableFlags(t *testing.T) {
	l := BuildLaunchOptions(true)

	for _, flag := range disableFlags {
		name, value := splitFlag(flag)
		got, has := l.Get(name), l.Has(name)
		require.True(t, has, "missing flag %s", name)
		if value != "" {
			assert.Equal(t, value, got, "flag %s", name)
		}
	}
}

func TestBuildLaunchOptionsRandomizesPerCall(t *testing.T) {
	l := BuildLaunchOptions(false)

	ua := l.Get(flags.Flag("user-agent"))
	assert.Contains(t, userAgents, ua)

	size := l.Get(flags.Flag("window-size"))
	found := false
	for _, s := range windowSizes {
		if size == fmt.Sprintf("%d,%d", s.Width, s.Height) {
			found = true
			break
		}
	}
	assert.True(t, found, "unexpected window-size %q", size)

	assert.Equal(t, "en-US", l.Get(flags.Flag("lang")))
}

func TestBuildLaunchOptionsReturnsFreshLaunchers(t *testing.T) {
	a := BuildLaunchOptions(true)
	b := BuildLaunchOptions(true)
	assert.NotSame(t, a, b)
}

func TestOverridesAreGuardedForReapplication(t *testing.T) {
	scripts := Overrides()
	require.NotEmpty(t, scripts)

	for _, script := range scripts {
		// Every override either redefines a configurable property or guards
		// its own patch, so applying the battery twice is harmless.
		guarded := strings.Contains(script, "configurable: true") ||
			strings.Contains(script, "Patched") ||
			strings.Contains(script, "return;")
		assert.True(t, guarded, "override lacks a reapplication guard:\n%s", script)
	}
}

func TestOverridesCoverKnownDetectionProbes(t *testing.T) {
	all := strings.Join(Overrides(), "\n")

	assert.Contains(t, all, "webdriver")
	assert.Contains(t, all, "plugins")
	assert.Contains(t, all, "permissions.query")
	assert.Contains(t, all, "chrome")
	assert.Contains(t, all, "isConnected")
	assert.Contains(t, all, "outerWidth")
}
