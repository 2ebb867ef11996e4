// Package combokey models key chords with a press pattern and detects which
// pattern a live key-down stream produces.
package combokey

import (
	"errors"
	"fmt"
	"strings"

	"rigela/internal/keys"
)

// ErrEmptyChord is returned when a chord carries no usable key.
var ErrEmptyChord = errors.New("chord has no keys")

// ComboKey is a chord: one main key, a modifier set and a press pattern.
type ComboKey struct {
	Main      keys.Keys
	Modifiers keys.ModifierKeys
	Pattern   PressPattern
}

// PressedState reports whether a set of keys is held.
type PressedState interface {
	AllPressed(ks ...keys.Keys) bool
}

// New builds a chord. A main key that is itself a modifier is removed from
// the modifier set so the chord's key list carries no duplicate.
func New(main keys.Keys, mods keys.ModifierKeys, pattern PressPattern) ComboKey {
	mods &^= keys.ModifierOf(main)
	return ComboKey{Main: main, Modifiers: mods, Pattern: pattern}
}

// FromKeys builds a single-press chord from an unordered key list. The last
// non-modifier key becomes the main key; a list made only of modifiers uses
// its last element as the main key.
func FromKeys(ks ...keys.Keys) (ComboKey, error) {
	var mods keys.ModifierKeys
	main := keys.VkNone
	lastMod := keys.VkNone
	for _, k := range ks {
		if k == keys.VkNone {
			continue
		}
		if k.IsModifier() {
			mods |= keys.ModifierOf(k)
			lastMod = k
			continue
		}
		main = k
	}
	if main == keys.VkNone {
		main = lastMod
	}
	if main == keys.VkNone {
		return ComboKey{}, ErrEmptyChord
	}
	return New(main, mods, SinglePress), nil
}

// MustFromKeys is FromKeys for static chord tables.
func MustFromKeys(ks ...keys.Keys) ComboKey {
	c, err := FromKeys(ks...)
	if err != nil {
		panic(err)
	}
	return c
}

// WithPattern returns c with its pattern replaced.
func (c ComboKey) WithPattern(p PressPattern) ComboKey {
	c.Pattern = p
	return c
}

// Chord returns c without its pattern. Chords that differ only in pattern
// share press history.
func (c ComboKey) Chord() ComboKey {
	c.Pattern = Idle
	return c
}

// Keys lists the modifiers in canonical order followed by the main key.
func (c ComboKey) Keys() []keys.Keys {
	out := c.Modifiers.Keys()
	return append(out, c.Main)
}

// SatisfiedBy reports whether every key of the chord is held. Extra held
// keys do not prevent a match.
func (c ComboKey) SatisfiedBy(state PressedState) bool {
	if c.Main == keys.VkNone {
		return false
	}
	return state.AllPressed(c.Keys()...)
}

// String renders the chord as "RigelA+Ctrl+A", with "(Double)", "(Long)" or
// "(Idle)" appended for non-single patterns.
func (c ComboKey) String() string {
	var b strings.Builder
	if mods := c.Modifiers.String(); mods != "" {
		b.WriteString(mods)
		b.WriteByte('+')
	}
	b.WriteString(c.Main.String())
	if c.Pattern != SinglePress {
		fmt.Fprintf(&b, "(%s)", c.Pattern)
	}
	return b.String()
}

func (c ComboKey) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ComboKey) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
