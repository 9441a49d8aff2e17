package timing

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(seed int64) *Model {
	return NewModelWithSource(DefaultProfile(), rand.New(rand.NewSource(seed)))
}

func TestInterCharacterDelayPhaseBounds(t *testing.T) {
	profile := DefaultProfile()
	// Think pauses off so the phase ranges are exact.
	profile.ThinkPauseChance = 0
	m := NewModelWithSource(profile, rand.New(rand.NewSource(1)))

	const length = 100
	for i := 0; i < 1000; i++ {
		for position := 0; position < length; position++ {
			delay := m.InterCharacterDelay(position, length, 'a')

			switch {
			case position < 20:
				assert.GreaterOrEqual(t, delay, profile.OpeningKeyMin)
				assert.Less(t, delay, profile.OpeningKeyMax)
			case position < 80:
				assert.GreaterOrEqual(t, delay, profile.MiddleKeyMin)
				assert.Less(t, delay, profile.MiddleKeyMax)
			default:
				assert.GreaterOrEqual(t, delay, profile.ClosingKeyMin)
				assert.Less(t, delay, profile.ClosingKeyMax)
			}
		}
	}
}

func TestInterCharacterDelayPhaseAverages(t *testing.T) {
	profile := DefaultProfile()
	profile.ThinkPauseChance = 0
	m := NewModelWithSource(profile, rand.New(rand.NewSource(2)))

	average := func(position int) time.Duration {
		const samples = 5000
		var total time.Duration
		for i := 0; i < samples; i++ {
			total += m.InterCharacterDelay(position, 100, 'a')
		}
		return total / samples
	}

	opening := average(5)
	middle := average(50)
	closing := average(90)

	// Opening is slowest, middle is fastest, closing sits between.
	assert.Greater(t, opening, middle)
	assert.Greater(t, closing, middle)
	assert.Greater(t, opening, closing)
}

func TestInterCharacterDelayPunctuationPause(t *testing.T) {
	profile := DefaultProfile()
	profile.ThinkPauseChance = 0
	m := NewModelWithSource(profile, rand.New(rand.NewSource(3)))

	for i := 0; i < 200; i++ {
		delay := m.InterCharacterDelay(50, 100, '.')
		assert.GreaterOrEqual(t, delay, profile.MiddleKeyMin+profile.PunctuationPauseMin)
	}
}

func TestTypoCorrectionRate(t *testing.T) {
	m := newTestModel(4)

	hits := 0
	const samples = 10000
	for i := 0; i < samples; i++ {
		if _, ok := m.TypoCorrection('h'); ok {
			hits++
		}
	}

	rate := float64(hits) / samples
	assert.InDelta(t, DefaultProfile().TypoChance, rate, 0.02)
}

func TestTypoCorrectionPicksAdjacentKey(t *testing.T) {
	profile := DefaultProfile()
	profile.TypoChance = 1
	m := NewModelWithSource(profile, rand.New(rand.NewSource(5)))

	for i := 0; i < 100; i++ {
		wrong, ok := m.TypoCorrection('h')
		require.True(t, ok)
		assert.True(t, strings.ContainsRune("gyujnb", wrong), "got %q", wrong)
	}
}

func TestInterMessageDelayFloorAndJitter(t *testing.T) {
	profile := DefaultProfile()
	m := NewModelWithSource(profile, rand.New(rand.NewSource(6)))

	// Base below the floor always comes back at the floor or above.
	for i := 0; i < 200; i++ {
		delay := m.InterMessageDelay(1*time.Second, 0)
		assert.GreaterOrEqual(t, delay, profile.MessageFloor)
	}

	// Base well above the floor stays within the jitter band.
	base := 60 * time.Second
	lo := time.Duration(float64(base) * (1 - profile.MessageJitter))
	hi := time.Duration(float64(base) * (1 + profile.MessageJitter))
	for i := 0; i < 200; i++ {
		delay := m.InterMessageDelay(base, 0)
		assert.GreaterOrEqual(t, delay, lo)
		assert.LessOrEqual(t, delay, hi)
	}
}

func TestInterMessageDelayExtendedBreak(t *testing.T) {
	profile := DefaultProfile()
	m := NewModelWithSource(profile, rand.New(rand.NewSource(7)))

	base := 60 * time.Second
	breakThreshold := time.Duration(float64(base)*(1+profile.MessageJitter)) + 1

	breaks := 0
	for sent := 1; sent <= 100; sent++ {
		if m.InterMessageDelay(base, sent) >= breakThreshold {
			breaks++
		}
	}

	// Breaks land every 5 to 10 sends over 100 sends.
	assert.GreaterOrEqual(t, breaks, 10)
	assert.LessOrEqual(t, breaks, 20)
}

func TestInterAccountDelayIsMultipleOfBase(t *testing.T) {
	profile := DefaultProfile()
	m := NewModelWithSource(profile, rand.New(rand.NewSource(8)))

	base := 30 * time.Second
	scaled := time.Duration(float64(base) * profile.AccountMultiple)
	lo := time.Duration(float64(scaled) * (1 - profile.MessageJitter))
	hi := time.Duration(float64(scaled) * (1 + profile.MessageJitter))

	for i := 0; i < 200; i++ {
		delay := m.InterAccountDelay(base)
		assert.GreaterOrEqual(t, delay, lo)
		assert.LessOrEqual(t, delay, hi)
	}
}

func TestFixedDelaysStayInRange(t *testing.T) {
	m := newTestModel(9)

	for i := 0; i < 200; i++ {
		settle := m.PageSettleDelay()
		assert.GreaterOrEqual(t, settle, 3*time.Second)
		assert.Less(t, settle, 5*time.Second)

		reading := m.ReadingDelay()
		assert.GreaterOrEqual(t, reading, 2*time.Second)
		assert.Less(t, reading, 4*time.Second)

		short := m.ShortDelay()
		assert.GreaterOrEqual(t, short, 500*time.Millisecond)
		assert.Less(t, short, 1500*time.Millisecond)
	}
}

func TestDrawsAreReproducibleWithSameSeed(t *testing.T) {
	a := newTestModel(42)
	b := newTestModel(42)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.InterCharacterDelay(i, 50, 'x'), b.InterCharacterDelay(i, 50, 'x'))
	}
}
