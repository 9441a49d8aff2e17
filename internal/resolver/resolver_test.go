package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStrategy builds a strategy whose locator never touches the page.
func fakeStrategy(name string, element *rod.Element, err error, calls *[]string) Strategy {
	return Strategy{
		Name: name,
		Locate: func(_ *rod.Page, _ time.Duration) (*rod.Element, error) {
			*calls = append(*calls, name)
			return element, err
		},
	}
}

func TestFirstMatchReturnsFirstHit(t *testing.T) {
	var calls []string
	want := &rod.Element{}

	strategies := []Strategy{
		fakeStrategy("first", nil, errors.New("miss"), &calls),
		fakeStrategy("second", want, nil, &calls),
		fakeStrategy("third", &rod.Element{}, nil, &calls),
	}

	got, name, err := FirstMatch(nil, strategies, time.Second)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, "second", name)

	// The winning strategy short-circuits the rest.
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestFirstMatchTriesStrategiesInOrder(t *testing.T) {
	var calls []string

	strategies := []Strategy{
		fakeStrategy("a", nil, errors.New("miss"), &calls),
		fakeStrategy("b", nil, errors.New("miss"), &calls),
		fakeStrategy("c", &rod.Element{}, nil, &calls),
	}

	_, _, err := FirstMatch(nil, strategies, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestFirstMatchExhaustionIsErrNotFound(t *testing.T) {
	var calls []string

	strategies := []Strategy{
		fakeStrategy("a", nil, errors.New("miss"), &calls),
		fakeStrategy("b", nil, errors.New("miss"), &calls),
	}

	_, _, err := FirstMatch(nil, strategies, time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestFindUnknownIntent(t *testing.T) {
	_, err := Find(nil, Intent("no-such-intent"), time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEveryIntentHasStrategies(t *testing.T) {
	intents := []Intent{
		IntentMessageButton,
		IntentMessageInput,
		IntentSendButton,
		IntentLoginUsername,
		IntentLoginPassword,
		IntentLoginSubmit,
		IntentDismissPopup,
		IntentSearchInput,
	}

	for _, intent := range intents {
		assert.NotEmpty(t, Strategies(intent), "intent %s", intent)
	}
}

func TestMessageButtonStrategyOrdering(t *testing.T) {
	strategies := Strategies(IntentMessageButton)
	require.Len(t, strategies, 3)

	// Exact text match outranks substring match, which outranks the brute scan.
	assert.Equal(t, "exact-text:Message", strategies[0].Name)
	assert.Equal(t, "contains-text:Message", strategies[1].Name)
	assert.Equal(t, "brute-scan:Message", strategies[2].Name)
}

func TestProfileLinkStrategies(t *testing.T) {
	strategies := ProfileLinkStrategies("alice")
	require.Len(t, strategies, 2)
	assert.Equal(t, "css:profile-href", strategies[0].Name)
	assert.Equal(t, "css:profile-href-loose", strategies[1].Name)
}
