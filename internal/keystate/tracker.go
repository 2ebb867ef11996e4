// Package keystate records which keys are currently held.
package keystate

import (
	"sync"

	"rigela/internal/keys"
)

// Tracker is a concurrency-safe pressed/released table. Keys never seen are
// reported as released. The zero value is ready to use.
type Tracker struct {
	mu      sync.RWMutex
	pressed map[keys.Keys]bool
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{pressed: make(map[keys.Keys]bool)}
}

// Update records the transition and returns the previous pressed state.
// The previous state distinguishes a fresh press from auto-repeat.
func (t *Tracker) Update(k keys.Keys, pressed bool) (wasPressed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pressed == nil {
		t.pressed = make(map[keys.Keys]bool)
	}
	wasPressed = t.pressed[k]
	t.pressed[k] = pressed
	return wasPressed
}

// IsPressed reports the last recorded state of k.
func (t *Tracker) IsPressed(k keys.Keys) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pressed[k]
}

// AllPressed reports whether every key in ks is currently held.
// An empty list is trivially satisfied.
func (t *Tracker) AllPressed(ks ...keys.Keys) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, k := range ks {
		if !t.pressed[k] {
			return false
		}
	}
	return true
}

// Pressed returns the held keys in enumeration order.
func (t *Tracker) Pressed() []keys.Keys {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]keys.Keys, 0, len(t.pressed))
	for _, k := range keys.All() {
		if t.pressed[k] {
			out = append(out, k)
		}
	}
	return out
}

// Reset marks every key released.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.pressed)
}
