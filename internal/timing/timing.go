// Package timing produces the randomized delays and typing cadences that make
// the automation pace like a person. The model only draws durations; it never
// sleeps and never touches the browser, so every rule is testable with
// statistical assertions.
package timing

import (
	"math/rand"
	"strings"
	"time"
)

// Profile holds the tunable constants of the timing model. The defaults are
// empirically chosen pacing heuristics and are expected to drift with platform
// policy, so nothing here is hard-coded law.
type Profile struct {
	// Inter-character ranges per message phase.
	OpeningKeyMin time.Duration
	OpeningKeyMax time.Duration
	MiddleKeyMin  time.Duration
	MiddleKeyMax  time.Duration
	ClosingKeyMin time.Duration
	ClosingKeyMax time.Duration

	// Extra pause after punctuation characters.
	PunctuationPauseMin time.Duration
	PunctuationPauseMax time.Duration

	// Mid-typing thinking pauses.
	ThinkPauseChance float64
	ThinkPauseMin    time.Duration
	ThinkPauseMax    time.Duration

	// Typo-correction prologue before the real text.
	TypoChance float64

	// Inter-message pacing.
	MessageJitter   float64       // fraction of base, e.g. 0.2 for ±20%
	MessageFloor    time.Duration // never pace below this
	BreakEveryMin   int           // extended break every BreakEveryMin..BreakEveryMax sends
	BreakEveryMax   int
	BreakExtraMin   time.Duration
	BreakExtraMax   time.Duration
	AccountMultiple float64 // inter-account delay as a multiple of the message base
}

// DefaultProfile returns the stock pacing constants.
func DefaultProfile() Profile {
	return Profile{
		OpeningKeyMin:       150 * time.Millisecond,
		OpeningKeyMax:       350 * time.Millisecond,
		MiddleKeyMin:        80 * time.Millisecond,
		MiddleKeyMax:        200 * time.Millisecond,
		ClosingKeyMin:       120 * time.Millisecond,
		ClosingKeyMax:       300 * time.Millisecond,
		PunctuationPauseMin: 200 * time.Millisecond,
		PunctuationPauseMax: 500 * time.Millisecond,
		ThinkPauseChance:    0.05,
		ThinkPauseMin:       300 * time.Millisecond,
		ThinkPauseMax:       800 * time.Millisecond,
		TypoChance:          0.15,
		MessageJitter:       0.2,
		MessageFloor:        15 * time.Second,
		BreakEveryMin:       5,
		BreakEveryMax:       10,
		BreakExtraMin:       20 * time.Second,
		BreakExtraMax:       60 * time.Second,
		AccountMultiple:     2,
	}
}

// Model draws delays from a Profile. Not safe for concurrent use; the campaign
// loop is single-threaded by design.
type Model struct {
	profile   Profile
	rng       *rand.Rand
	nextBreak int
}

// NewModel creates a model seeded from the clock.
func NewModel(profile Profile) *Model {
	return NewModelWithSource(profile, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewModelWithSource creates a model with an explicit random source, used by
// tests that need reproducible draws.
func NewModelWithSource(profile Profile, rng *rand.Rand) *Model {
	m := &Model{profile: profile, rng: rng}
	m.nextBreak = m.rollBreakInterval()
	return m
}

// InterCharacterDelay returns the pause before the character at position within
// a message of the given length. Typing is slower over the opening 20%, fastest
// through the middle 60%, and moderately slower over the final 20%. Punctuation
// earns an extra pause, and occasionally the typist stops to think.
func (m *Model) InterCharacterDelay(position, length int, char rune) time.Duration {
	var delay time.Duration

	switch {
	case length <= 0:
		delay = m.between(m.profile.MiddleKeyMin, m.profile.MiddleKeyMax)
	case float64(position) < float64(length)*0.2:
		delay = m.between(m.profile.OpeningKeyMin, m.profile.OpeningKeyMax)
	case float64(position) < float64(length)*0.8:
		delay = m.between(m.profile.MiddleKeyMin, m.profile.MiddleKeyMax)
	default:
		delay = m.between(m.profile.ClosingKeyMin, m.profile.ClosingKeyMax)
	}

	if strings.ContainsRune(".,!?", char) {
		delay += m.between(m.profile.PunctuationPauseMin, m.profile.PunctuationPauseMax)
	}

	if m.rng.Float64() < m.profile.ThinkPauseChance {
		delay += m.between(m.profile.ThinkPauseMin, m.profile.ThinkPauseMax)
	}

	return delay
}

// TypoCorrection decides whether the typist fumbles before starting the real
// text. When it returns ok, the caller should emit wrongChar followed by a
// backspace before typing the message.
func (m *Model) TypoCorrection(firstChar rune) (wrongChar rune, ok bool) {
	if m.rng.Float64() >= m.profile.TypoChance {
		return 0, false
	}
	return adjacentKey(m.rng, firstChar), true
}

// InterMessageDelay returns the pause after a successful send. The base is
// jittered by ±MessageJitter and floored at MessageFloor; every randomized
// BreakEveryMin..BreakEveryMax sends an extended break is added on top.
func (m *Model) InterMessageDelay(base time.Duration, sent int) time.Duration {
	delay := m.jitter(base)
	if delay < m.profile.MessageFloor {
		delay = m.profile.MessageFloor
	}

	if sent > 0 && sent >= m.nextBreak {
		delay += m.between(m.profile.BreakExtraMin, m.profile.BreakExtraMax)
		m.nextBreak = sent + m.rollBreakInterval()
	}

	return delay
}

// InterAccountDelay returns the pause between finishing one account and
// starting the next.
func (m *Model) InterAccountDelay(base time.Duration) time.Duration {
	return m.jitter(time.Duration(float64(base) * m.profile.AccountMultiple))
}

// PageSettleDelay returns a pause that mimics waiting for a page to register
// visually before acting on it.
func (m *Model) PageSettleDelay() time.Duration {
	return m.between(3*time.Second, 5*time.Second)
}

// ReadingDelay returns a pause that mimics skimming a profile before reaching
// for the message control.
func (m *Model) ReadingDelay() time.Duration {
	return m.between(2*time.Second, 4*time.Second)
}

// ShortDelay returns a small pause between adjacent UI interactions.
func (m *Model) ShortDelay() time.Duration {
	return m.between(500*time.Millisecond, 1500*time.Millisecond)
}

func (m *Model) between(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(m.rng.Int63n(int64(max-min)))
}

func (m *Model) jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	factor := 1 + (m.rng.Float64()*2-1)*m.profile.MessageJitter
	return time.Duration(float64(base) * factor)
}

func (m *Model) rollBreakInterval() int {
	lo, hi := m.profile.BreakEveryMin, m.profile.BreakEveryMax
	if lo < 1 {
		lo = 1
	}
	if hi <= lo {
		return lo
	}
	return lo + m.rng.Intn(hi-lo+1)
}

// adjacentKey picks a QWERTY neighbour of char, falling back to the character
// itself when it has no mapped neighbours.
func adjacentKey(rng *rand.Rand, char rune) rune {
	neighbours := map[rune]string{
		'a': "sqwz", 'b': "vghn", 'c': "xdfv", 'd': "serfcx",
		'e': "wrds", 'f': "drtgvc", 'g': "ftyhbv", 'h': "gyujnb",
		'i': "uokj", 'j': "huikmn", 'k': "jiolm", 'l': "kop",
		'm': "njk", 'n': "bhjm", 'o': "iplk", 'p': "ol",
		'q': "wa", 'r': "etfd", 's': "awedxz", 't': "rygf",
		'u': "yijh", 'v': "cfgb", 'w': "qesa", 'x': "zsdc",
		'y': "tuhg", 'z': "asx",
	}

	lower := char
	if lower >= 'A' && lower <= 'Z' {
		lower += 'a' - 'A'
	}

	options, found := neighbours[lower]
	if !found || len(options) == 0 {
		return char
	}
	return rune(options[rng.Intn(len(options))])
}
