package combokey

import (
	"sync"
	"time"
)

const (
	DefaultDoublePressWindow  = 400 * time.Millisecond
	DefaultLongPressThreshold = 800 * time.Millisecond
)

// ComboKeyExt is a chord's press history.
type ComboKeyExt struct {
	ComboKey
	// PressedAt is the time of the last fresh key-down of the chord.
	PressedAt time.Time
	// LastSingle is the time of the last single activation, or zero.
	LastSingle time.Time
	// Count is the number of activations since the last reset.
	Count int
	// LongFired is set once a long press has fired for the current hold.
	LongFired bool
}

// Detector classifies chord activations into press patterns. Patterns are
// derived from timestamps when a key-down arrives; no timers run.
type Detector struct {
	mu            sync.Mutex
	now           func() time.Time
	doubleWindow  time.Duration
	longThreshold time.Duration
	history       map[ComboKey]*ComboKeyExt
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithTimings sets the double-press window and long-press threshold.
// Non-positive values keep the defaults.
func WithTimings(doubleWindow, longThreshold time.Duration) DetectorOption {
	return func(d *Detector) {
		d.setTimings(doubleWindow, longThreshold)
	}
}

// NewDetector returns a detector with default timings.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		now:           time.Now,
		doubleWindow:  DefaultDoublePressWindow,
		longThreshold: DefaultLongPressThreshold,
		history:       make(map[ComboKey]*ComboKeyExt),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetTimings updates the timings at runtime, e.g. after a config reload.
func (d *Detector) SetTimings(doubleWindow, longThreshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setTimings(doubleWindow, longThreshold)
}

func (d *Detector) setTimings(doubleWindow, longThreshold time.Duration) {
	if doubleWindow > 0 {
		d.doubleWindow = doubleWindow
	}
	if longThreshold > 0 {
		d.longThreshold = longThreshold
	}
}

// Observe classifies a key-down that satisfies chord. fresh is true when the
// key-down is a new press of one of the chord's keys, false for auto-repeat
// and for unrelated keys pressed while the chord is held.
//
// A fresh key-down is DoublePress when the chord's previous activation was a
// single press less than the double-press window ago, otherwise SinglePress.
// A repeat escalates to LongPress once per hold after the threshold and
// yields Idle otherwise.
func (d *Detector) Observe(chord ComboKey, fresh bool) PressPattern {
	return d.observe(chord, fresh, true)
}

// ObserveSingle is Observe for a chord nobody binds to a double press: every
// fresh key-down is a SinglePress, however quickly it follows the last one.
func (d *Detector) ObserveSingle(chord ComboKey, fresh bool) PressPattern {
	return d.observe(chord, fresh, false)
}

func (d *Detector) observe(chord ComboKey, fresh, allowDouble bool) PressPattern {
	chord = chord.Chord()
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	ext, ok := d.history[chord]
	if !ok {
		ext = &ComboKeyExt{ComboKey: chord}
		d.history[chord] = ext
	}

	if !fresh {
		if ext.PressedAt.IsZero() {
			ext.PressedAt = now
			return Idle
		}
		if ext.LongFired || now.Sub(ext.PressedAt) < d.longThreshold {
			return Idle
		}
		ext.LongFired = true
		ext.LastSingle = time.Time{}
		ext.Count = 0
		return LongPress
	}

	ext.PressedAt = now
	ext.LongFired = false
	withinWindow := !ext.LastSingle.IsZero() && now.Sub(ext.LastSingle) < d.doubleWindow
	if withinWindow && allowDouble {
		ext.LastSingle = time.Time{}
		ext.Count = 0
		return DoublePress
	}
	if withinWindow {
		ext.Count++
	} else {
		ext.Count = 1
	}
	ext.LastSingle = now
	return SinglePress
}

// History returns a copy of the chord's press history.
func (d *Detector) History(chord ComboKey) (ComboKeyExt, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ext, ok := d.history[chord.Chord()]
	if !ok {
		return ComboKeyExt{}, false
	}
	return *ext, true
}

// Reset forgets all press history.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.history)
}
