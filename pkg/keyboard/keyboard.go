// Package keyboard tracks which keys are held down.
//
// Terminals report key presses and auto-repeats but no releases, so a key
// counts as held until no press for it has been seen for the hold window.
package keyboard

import (
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gwillem/vectorpad/pkg/teleop"
)

// Keys the drive screen handles itself. They cannot be bound.
const (
	ToggleKey    = "tab"
	QuitKey      = "esc"
	InterruptKey = "ctrl+c"
)

// DefaultHold covers the initial auto-repeat delay of most keyboards.
const DefaultHold = 600 * time.Millisecond

// Tracker records key presses and reports the held keys.
// It is safe for concurrent use.
type Tracker struct {
	hold  time.Duration
	clock clock.Clock

	mu      sync.Mutex
	pressed map[string]time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHold sets the hold window.
func WithHold(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.hold = d
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		hold:    DefaultHold,
		clock:   clock.New(),
		pressed: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Hold returns the hold window.
func (t *Tracker) Hold() time.Duration {
	return t.hold
}

// Press marks key as held from now.
func (t *Tracker) Press(key string) {
	key = Normalize(key)
	if key == "" {
		return
	}
	t.mu.Lock()
	t.pressed[key] = t.clock.Now()
	t.mu.Unlock()
}

// Release marks key as no longer held.
func (t *Tracker) Release(key string) {
	t.mu.Lock()
	delete(t.pressed, Normalize(key))
	t.mu.Unlock()
}

// ReleaseAll forgets every key.
func (t *Tracker) ReleaseAll() {
	t.mu.Lock()
	clear(t.pressed)
	t.mu.Unlock()
}

// Keys returns a fresh set of the keys pressed within the hold window.
// Expired keys are forgotten.
func (t *Tracker) Keys() teleop.KeySet {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	ks := make(teleop.KeySet, len(t.pressed))
	for k, at := range t.pressed {
		if now.Sub(at) >= t.hold {
			delete(t.pressed, k)
			continue
		}
		ks[k] = true
	}
	return ks
}

// Normalize maps a key name to the identifier used in key sets.
// Shifted letters count as the plain letter so caps lock does not matter.
func Normalize(key string) string {
	if len([]rune(key)) == 1 {
		return strings.ToLower(key)
	}
	return key
}

// Reserved reports whether key is taken by the drive screen.
func Reserved(key string) bool {
	switch Normalize(key) {
	case ToggleKey, QuitKey, InterruptKey:
		return true
	}
	return false
}

// NormalizeKeyMap returns km with every binding normalized, so bindings
// match the keys a Tracker reports.
func NormalizeKeyMap(km teleop.KeyMap) teleop.KeyMap {
	for _, b := range []*string{
		&km.Forward, &km.Left, &km.Backward, &km.Right,
		&km.LiftUp, &km.LiftDown, &km.HeadUp, &km.HeadDown,
	} {
		*b = Normalize(*b)
	}
	return km
}
