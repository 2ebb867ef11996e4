package commander

import (
	"slices"

	"rigela/internal/combokey"
	"rigela/internal/keys"
)

// Match is the winning talent and the chord that selected it.
type Match struct {
	Talent Talent
	Chord  combokey.ComboKey
}

// Matcher resolves held keys to a talent.
type Matcher struct {
	registry *Registry
	detector *combokey.Detector
}

// NewMatcher returns a matcher over registry using detector for press
// patterns.
func NewMatcher(registry *Registry, detector *combokey.Detector) *Matcher {
	return &Matcher{registry: registry, detector: detector}
}

type candidate struct {
	talent Talent
	chord  combokey.ComboKey
}

// Match walks talents in registration order and returns the first whose
// effective chord is satisfied by state with a declared pattern equal to the
// detected one. consumed is true whenever any effective chord is satisfied,
// even if no declaration matched the detected pattern.
//
// key is the key whose key-down triggered the match and fresh is false for
// its auto-repeats. A key-down only counts as a new activation of a chord
// when key is one of the chord's keys. A chord that no satisfied declaration
// binds to a double press is never classified as one.
func (m *Matcher) Match(state combokey.PressedState, key keys.Keys, fresh bool) (match Match, consumed bool) {
	var (
		candidates []candidate
		doubles    map[combokey.ComboKey]bool
	)
	for _, t := range m.registry.Talents() {
		for _, chord := range m.registry.EffectiveChords(t) {
			if !chord.SatisfiedBy(state) {
				continue
			}
			candidates = append(candidates, candidate{talent: t, chord: chord})
			if chord.Pattern == combokey.DoublePress {
				if doubles == nil {
					doubles = make(map[combokey.ComboKey]bool, 1)
				}
				doubles[chord.Chord()] = true
			}
		}
	}
	if len(candidates) == 0 {
		return Match{}, false
	}

	detected := make(map[combokey.ComboKey]combokey.PressPattern, 2)
	for _, c := range candidates {
		chord := c.chord.Chord()
		pattern, ok := detected[chord]
		if !ok {
			pattern = m.observe(chord, fresh && slices.Contains(chord.Keys(), key), doubles[chord])
			detected[chord] = pattern
		}
		if c.chord.Pattern.Normalize() == pattern {
			return Match{Talent: c.talent, Chord: c.chord}, true
		}
	}
	return Match{}, true
}

func (m *Matcher) observe(chord combokey.ComboKey, fresh, double bool) combokey.PressPattern {
	if double {
		return m.detector.Observe(chord, fresh)
	}
	return m.detector.ObserveSingle(chord, fresh)
}
