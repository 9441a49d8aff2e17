// Package browser owns the real browser sessions behind a campaign. One
// session is acquired per account, never pooled, and released before the next
// account's session exists. Launch configuration is built fresh for every
// session to avoid configuration-object reuse bugs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	rodstealth "github.com/go-rod/stealth"

	"github.com/yourusername/instadm-pro/internal/campaign"
	"github.com/yourusername/instadm-pro/internal/logger"
	"github.com/yourusername/instadm-pro/internal/resolver"
	st "github.com/yourusername/instadm-pro/internal/stealth"
	"github.com/yourusername/instadm-pro/internal/timing"
)

const (
	// BaseURL is the login surface; profile pages hang off it.
	BaseURL = "https://www.instagram.com/"

	// directVisitWeight is the probability of navigating straight to a
	// profile instead of going through search. Varying the navigation
	// pattern avoids a single deterministic fingerprint.
	directVisitWeight = 0.7

	// popupDismissRounds bounds how many times the post-login interstitial
	// dismissal loop runs.
	popupDismissRounds = 2
)

// ErrSessionAcquisition indicates a browser session could not be created for
// an account, even after the fallback launch attempt. The account is skipped;
// the campaign continues.
var ErrSessionAcquisition = errors.New("browser session acquisition failed")

// Driver creates sessions for the campaign runner.
type Driver struct {
	headless    bool
	model       *timing.Model
	sleeper     campaign.Sleeper
	findTimeout time.Duration
	rng         *rand.Rand
}

// NewDriver builds a session driver.
func NewDriver(headless bool, model *timing.Model) *Driver {
	return &Driver{
		headless:    headless,
		model:       model,
		sleeper:     campaign.ClockSleeper{},
		findTimeout: 10 * time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Acquire launches a fresh browser for the account. The first attempt lets
// the launcher resolve its managed browser; on failure the installed system
// browser is probed and pinned for one retry. A second failure abandons the
// account.
func (d *Driver) Acquire(ctx context.Context, account campaign.Account) (campaign.Session, error) {
	url, err := st.BuildLaunchOptions(d.headless).Launch()
	if err != nil {
		logger.Warn("Managed browser launch failed, probing system browser", "error", err)

		path, found := launcher.LookPath()
		if !found {
			return nil, fmt.Errorf("%w: no system browser found after launch failure: %v", ErrSessionAcquisition, err)
		}

		// Fresh options for the retry; launcher values are single-use.
		url, err = st.BuildLaunchOptions(d.headless).Bin(path).Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: pinned launch failed: %v", ErrSessionAcquisition, err)
		}
		logger.Info("Launched with pinned system browser", "path", path)
	}

	browser := rod.New().ControlURL(url).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrSessionAcquisition, err)
	}

	page, err := rodstealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("%w: stealth page: %v", ErrSessionAcquisition, err)
	}

	logger.Info("Browser session acquired", "account", account.Username, "headless", d.headless)

	return &Session{
		browser:     browser,
		page:        page,
		account:     account,
		model:       d.model,
		sleeper:     d.sleeper,
		findTimeout: d.findTimeout,
		rng:         d.rng,
	}, nil
}

// Session is one authenticated browser bound to a single account.
type Session struct {
	browser     *rod.Browser
	page        *rod.Page
	account     campaign.Account
	model       *timing.Model
	sleeper     campaign.Sleeper
	findTimeout time.Duration
	rng         *rand.Rand
	input       *rod.Element
}

// navigate loads a URL and re-applies the stealth overrides, which are
// page-scoped and do not survive navigation.
func (s *Session) navigate(url string) error {
	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	st.ApplyPageOverrides(s.page)
	return nil
}

// Login signs the session's account in: human pre-login pause, character-by-
// character credential entry, submit, bounded interstitial dismissal.
func (s *Session) Login(ctx context.Context) error {
	logger.Info("Logging in", "account", s.account.Username)

	if err := s.navigate(BaseURL); err != nil {
		return err
	}
	if err := s.sleeper.Sleep(ctx, s.model.PageSettleDelay()); err != nil {
		return err
	}

	usernameField, err := resolver.Find(s.page, resolver.IntentLoginUsername, s.findTimeout)
	if err != nil {
		return fmt.Errorf("username field not found: %w", err)
	}
	if err := s.typeInto(ctx, usernameField, s.account.Username); err != nil {
		return fmt.Errorf("failed to type username: %w", err)
	}

	if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
		return err
	}

	passwordField, err := resolver.Find(s.page, resolver.IntentLoginPassword, s.findTimeout)
	if err != nil {
		return fmt.Errorf("password field not found: %w", err)
	}
	if err := s.typeInto(ctx, passwordField, s.account.Password); err != nil {
		return fmt.Errorf("failed to type password: %w", err)
	}

	if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
		return err
	}

	submit, err := resolver.Find(s.page, resolver.IntentLoginSubmit, s.findTimeout)
	if err != nil {
		return fmt.Errorf("login submit not found: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click login submit: %w", err)
	}

	if err := s.sleeper.Sleep(ctx, s.model.PageSettleDelay()); err != nil {
		return err
	}

	s.dismissInterstitials(ctx)

	// The interstitials may have reloaded the page.
	st.ApplyPageOverrides(s.page)

	if info, err := s.page.Info(); err == nil && strings.Contains(info.URL, "/accounts/login") {
		return fmt.Errorf("login failed: still on login page")
	}

	logger.Info("Login complete", "account", s.account.Username)
	return nil
}

// dismissInterstitials clicks away known post-login popups, bounded attempts
// over a bounded selector list. Absence of a popup is the normal case.
func (s *Session) dismissInterstitials(ctx context.Context) {
	for round := 0; round < popupDismissRounds; round++ {
		button, err := resolver.Find(s.page, resolver.IntentDismissPopup, 3*time.Second)
		if err != nil {
			return
		}
		if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
			logger.Debug("Interstitial dismiss click failed", "error", err)
			return
		}
		logger.Debug("Dismissed post-login interstitial", "round", round+1)
		if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
			return
		}
	}
}

// VisitProfile opens a lead's profile. Navigation is probabilistically direct
// or search-driven; a failed search path falls back to direct navigation
// unconditionally.
func (s *Session) VisitProfile(ctx context.Context, handle string) error {
	handle = strings.TrimSpace(handle)

	if s.rng.Float64() >= directVisitWeight {
		if err := s.visitViaSearch(ctx, handle); err == nil {
			return s.settleOnProfile(ctx)
		}
		logger.Debug("Search-driven visit failed, falling back to direct navigation", "handle", handle)
	}

	if err := s.navigate(profileURL(handle)); err != nil {
		return err
	}
	return s.settleOnProfile(ctx)
}

// visitViaSearch reaches the profile through the platform's search surface.
func (s *Session) visitViaSearch(ctx context.Context, handle string) error {
	if err := s.navigate(BaseURL); err != nil {
		return err
	}

	searchInput, err := resolver.Find(s.page, resolver.IntentSearchInput, 5*time.Second)
	if err != nil {
		return err
	}
	if err := s.typeInto(ctx, searchInput, handle); err != nil {
		return err
	}
	if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
		return err
	}

	link, _, err := resolver.FirstMatch(s.page, resolver.ProfileLinkStrategies(handle), 5*time.Second)
	if err != nil {
		return err
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := s.page.WaitLoad(); err != nil {
		return err
	}
	st.ApplyPageOverrides(s.page)
	return nil
}

// settleOnProfile simulates reading the profile before reaching for controls.
func (s *Session) settleOnProfile(ctx context.Context) error {
	return s.sleeper.Sleep(ctx, s.model.ReadingDelay())
}

// OpenComposer finds and clicks the profile's message control.
func (s *Session) OpenComposer(ctx context.Context) campaign.StepResult {
	button, err := resolver.Find(s.page, resolver.IntentMessageButton, s.findTimeout)
	if err != nil {
		return campaign.NotFound("Message button not found on profile")
	}

	if err := button.ScrollIntoView(); err != nil {
		logger.Debug("Scroll to message button failed", "error", err)
	}
	if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
		return campaign.Failed(err.Error())
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return campaign.Failed(fmt.Sprintf("failed to click message button: %v", err))
	}

	// Give the composer time to mount.
	if err := s.sleeper.Sleep(ctx, s.model.PageSettleDelay()); err != nil {
		return campaign.Failed(err.Error())
	}
	return campaign.Ok()
}

// FocusInput finds and focuses the message input field, keeping the handle
// for typing and the keystroke send fallback.
func (s *Session) FocusInput(ctx context.Context) campaign.StepResult {
	field, err := resolver.Find(s.page, resolver.IntentMessageInput, s.findTimeout)
	if err != nil {
		return campaign.NotFound("Message input field not found")
	}

	if err := field.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return campaign.Failed(fmt.Sprintf("failed to focus message input: %v", err))
	}
	if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
		return campaign.Failed(err.Error())
	}

	s.input = field
	return campaign.Ok()
}

// TypeMessage types the personalized message with the human typing profile,
// optionally fumbling the first character and correcting it.
func (s *Session) TypeMessage(ctx context.Context, text string) error {
	if s.input == nil {
		return fmt.Errorf("message input not focused")
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	if wrong, ok := s.model.TypoCorrection(runes[0]); ok {
		if err := s.input.Input(string(wrong)); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
			return err
		}
		if err := s.page.Keyboard.Press(input.Backspace); err != nil {
			return fmt.Errorf("failed to correct typo: %w", err)
		}
		if err := s.sleeper.Sleep(ctx, s.model.ShortDelay()); err != nil {
			return err
		}
	}

	for i, char := range runes {
		if err := s.input.Input(string(char)); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		if err := s.sleeper.Sleep(ctx, s.model.InterCharacterDelay(i, len(runes), char)); err != nil {
			return err
		}
	}

	return nil
}

// Send clicks the send control, falling back to a keystroke submit when no
// send control resolves.
func (s *Session) Send(ctx context.Context) campaign.StepResult {
	button, err := resolver.Find(s.page, resolver.IntentSendButton, 5*time.Second)
	if err == nil {
		if clickErr := button.Click(proto.InputMouseButtonLeft, 1); clickErr == nil {
			_ = s.sleeper.Sleep(ctx, s.model.ShortDelay())
			return campaign.Ok()
		}
	}

	// Keystroke fallback: submit from the focused input.
	if s.input != nil {
		if pressErr := s.page.Keyboard.Press(input.Enter); pressErr == nil {
			logger.Debug("Message sent via keystroke fallback")
			_ = s.sleeper.Sleep(ctx, s.model.ShortDelay())
			return campaign.Ok()
		}
	}

	return campaign.Failed("Failed to find send button or send message")
}

// Close releases the session: best-effort cookie clear, then browser close.
// Nothing here is allowed to escape past cleanup.
func (s *Session) Close() error {
	if err := (proto.NetworkClearBrowserCookies{}).Call(s.page); err != nil {
		logger.Debug("Cookie clear failed during session close", "error", err)
	}

	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}

	logger.Info("Browser session released", "account", s.account.Username)
	return nil
}

// typeInto clicks a field and types text character by character with the
// model's cadence.
func (s *Session) typeInto(ctx context.Context, field *rod.Element, text string) error {
	if err := field.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click field: %w", err)
	}

	runes := []rune(text)
	for i, char := range runes {
		if err := field.Input(string(char)); err != nil {
			return fmt.Errorf("failed to type character: %w", err)
		}
		if err := s.sleeper.Sleep(ctx, s.model.InterCharacterDelay(i, len(runes), char)); err != nil {
			return err
		}
	}
	return nil
}

// profileURL builds the direct-navigation URL for a handle.
func profileURL(handle string) string {
	return BaseURL + handle + "/"
}
