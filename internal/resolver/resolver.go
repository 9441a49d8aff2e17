// Package resolver maps semantic UI intents to live page elements. The target
// page's structure is not contractually stable, so each intent carries an
// ordered list of locator strategies, most specific first, and resolution
// walks the list until one matches.
package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/yourusername/instadm-pro/internal/logger"
)

// ErrNotFound is returned after every strategy for an intent has been tried
// and bounded-waited without a match.
var ErrNotFound = errors.New("no element matched intent")

// Intent is a named UI goal resolved via an ordered strategy list.
type Intent string

const (
	IntentMessageButton Intent = "message-button"
	IntentMessageInput  Intent = "message-input"
	IntentSendButton    Intent = "send-button"
	IntentLoginUsername Intent = "login-username"
	IntentLoginPassword Intent = "login-password"
	IntentLoginSubmit   Intent = "login-submit"
	IntentDismissPopup  Intent = "dismiss-popup"
	IntentSearchInput   Intent = "search-input"
)

// Strategy is one way of locating an element for an intent.
type Strategy struct {
	Name   string
	Locate func(page *rod.Page, timeout time.Duration) (*rod.Element, error)
}

// strategyTable orders strategies from most to least specific per intent.
// Adding or reordering strategies happens here and nowhere else.
var strategyTable = map[Intent][]Strategy{
	IntentMessageButton: {
		exactText("Message", "div", "button", "a"),
		containsText("Message", "div", "button", "a"),
		bruteScan("Message"),
	},
	IntentMessageInput: {
		css("message-placeholder", "textarea[placeholder='Message...']"),
		xpath("editable-textbox", "//div[@contenteditable='true'][@role='textbox']"),
		xpath("editable-aria-message", "//div[@contenteditable='true'][contains(@aria-label, 'Message')]"),
		css("message-placeholder-loose", "textarea[placeholder*='Message']"),
		css("any-editable", "div[contenteditable='true']"),
		css("message-aria-textarea", "textarea[aria-label='Message']"),
	},
	IntentSendButton: {
		xpath("send-role-button", "//div[@role='button'][text()='Send']"),
		exactText("Send", "button"),
		containsText("Send", "button", "div"),
	},
	IntentLoginUsername: {
		css("username-input", "input[name='username']"),
		css("username-aria", "input[aria-label*='username' i]"),
	},
	IntentLoginPassword: {
		css("password-input", "input[name='password']"),
		css("password-type", "input[type='password']"),
	},
	IntentLoginSubmit: {
		css("submit-button", "button[type='submit']"),
		exactText("Log in", "button", "div"),
	},
	IntentDismissPopup: {
		exactText("Not Now", "button"),
		xpath("not-now-role-button", "//div[@role='button' and text()='Not Now']"),
		containsText("Not Now", "button"),
	},
	IntentSearchInput: {
		css("search-aria", "input[aria-label*='Search' i]"),
		css("search-placeholder", "input[placeholder*='Search']"),
	},
}

// Strategies returns the ordered strategy list for an intent.
func Strategies(intent Intent) []Strategy {
	return strategyTable[intent]
}

// Find resolves an intent against the live page, trying each strategy in order
// with a bounded wait per strategy, and returns the first interactable match.
func Find(page *rod.Page, intent Intent, perStrategyTimeout time.Duration) (*rod.Element, error) {
	strategies, ok := strategyTable[intent]
	if !ok {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrNotFound, intent)
	}

	element, name, err := FirstMatch(page, strategies, perStrategyTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, intent)
	}

	logger.Debug("Intent resolved", "intent", intent, "strategy", name)
	return element, nil
}

// FirstMatch walks an ordered strategy list and returns the first match along
// with the matching strategy's name. It fails only after every strategy has
// been tried.
func FirstMatch(page *rod.Page, strategies []Strategy, timeout time.Duration) (*rod.Element, string, error) {
	for _, strategy := range strategies {
		element, err := strategy.Locate(page, timeout)
		if err == nil && element != nil {
			return element, strategy.Name, nil
		}
	}
	return nil, "", ErrNotFound
}

// ProfileLinkStrategies builds the ordered strategies for locating a search
// result link pointing at a profile handle.
func ProfileLinkStrategies(handle string) []Strategy {
	return []Strategy{
		css("profile-href", fmt.Sprintf("a[href='/%s/']", handle)),
		css("profile-href-loose", fmt.Sprintf("a[href*='/%s']", handle)),
	}
}

// exactText matches elements of the given tags whose text is exactly the
// target string.
func exactText(text string, tags ...string) Strategy {
	return Strategy{
		Name:   "exact-text:" + text,
		Locate: xpathLocator(tagUnion(tags, fmt.Sprintf("[text()='%s']", text))),
	}
}

// containsText matches elements of the given tags whose text contains the
// target string.
func containsText(text string, tags ...string) Strategy {
	return Strategy{
		Name:   "contains-text:" + text,
		Locate: xpathLocator(tagUnion(tags, fmt.Sprintf("[contains(text(), '%s')]", text))),
	}
}

// bruteScan is the last-resort strategy: scan every element containing the
// keyword and return the first that is visible and interactable.
func bruteScan(keyword string) Strategy {
	expr := fmt.Sprintf("//*[contains(text(), '%s')]", keyword)
	return Strategy{
		Name: "brute-scan:" + keyword,
		Locate: func(page *rod.Page, timeout time.Duration) (*rod.Element, error) {
			elements, err := page.Timeout(timeout).ElementsX(expr)
			if err != nil {
				return nil, err
			}
			for _, element := range elements {
				if isInteractable(element) {
					return element, nil
				}
			}
			return nil, fmt.Errorf("no interactable element contains %q", keyword)
		},
	}
}

func css(name, selector string) Strategy {
	return Strategy{
		Name: "css:" + name,
		Locate: func(page *rod.Page, timeout time.Duration) (*rod.Element, error) {
			return page.Timeout(timeout).Element(selector)
		},
	}
}

func xpath(name, expr string) Strategy {
	return Strategy{Name: "xpath:" + name, Locate: xpathLocator(expr)}
}

func xpathLocator(expr string) func(*rod.Page, time.Duration) (*rod.Element, error) {
	return func(page *rod.Page, timeout time.Duration) (*rod.Element, error) {
		return page.Timeout(timeout).ElementX(expr)
	}
}

// tagUnion builds an XPath expression matching any of the tags with the given
// predicate, e.g. //div[...] | //button[...] | //a[...].
func tagUnion(tags []string, predicate string) string {
	expr := ""
	for i, tag := range tags {
		if i > 0 {
			expr += " | "
		}
		expr += "//" + tag + predicate
	}
	return expr
}

// isInteractable reports whether an element is visible and not disabled.
func isInteractable(element *rod.Element) bool {
	visible, err := element.Visible()
	if err != nil || !visible {
		return false
	}

	disabled, err := element.Attribute("disabled")
	if err == nil && disabled != nil {
		return false
	}

	return true
}
