package keys

import "strings"

// ModifierKeys is a set of chord modifiers stored as a bitmask.
type ModifierKeys uint8

const (
	ModNone   ModifierKeys = 0
	ModRigelA ModifierKeys = 1 << (iota - 1)
	ModCtrl
	ModShift
	ModAlt
	ModWin
)

// modifierOrder is the canonical display and iteration order.
var modifierOrder = [...]struct {
	mod ModifierKeys
	key Keys
}{
	{ModRigelA, VkRigelA},
	{ModCtrl, VkCtrl},
	{ModShift, VkShift},
	{ModAlt, VkAlt},
	{ModWin, VkWin},
}

// ModifierOf returns the modifier bit for k, or ModNone.
func ModifierOf(k Keys) ModifierKeys {
	for _, m := range modifierOrder {
		if m.key == k {
			return m.mod
		}
	}
	return ModNone
}

// Modifiers builds a set from keys; non-modifier keys are ignored.
func Modifiers(ks ...Keys) ModifierKeys {
	var m ModifierKeys
	for _, k := range ks {
		m |= ModifierOf(k)
	}
	return m
}

// Has reports whether every bit of other is set in m.
func (m ModifierKeys) Has(other ModifierKeys) bool {
	return m&other == other
}

// With returns m with other added.
func (m ModifierKeys) With(other ModifierKeys) ModifierKeys {
	return m | other
}

// Empty reports whether no modifier is set.
func (m ModifierKeys) Empty() bool {
	return m == ModNone
}

// Count returns the number of modifiers in m.
func (m ModifierKeys) Count() int {
	n := 0
	for _, o := range modifierOrder {
		if m&o.mod != 0 {
			n++
		}
	}
	return n
}

// Keys returns the modifiers as keys in canonical order.
func (m ModifierKeys) Keys() []Keys {
	out := make([]Keys, 0, m.Count())
	for _, o := range modifierOrder {
		if m&o.mod != 0 {
			out = append(out, o.key)
		}
	}
	return out
}

// String returns the modifiers joined with "+", e.g. "RigelA+Ctrl".
func (m ModifierKeys) String() string {
	ks := m.Keys()
	if len(ks) == 0 {
		return ""
	}
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = k.String()
	}
	return strings.Join(parts, "+")
}
