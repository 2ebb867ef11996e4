package commander

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"rigela/internal/combokey"
)

// Registry is the ordered list of talents plus the user's chord overrides.
// Registration order is match priority.
type Registry struct {
	mu      sync.RWMutex
	talents []Talent
	ids     map[string]int

	overrides atomic.Pointer[map[string][]combokey.ComboKey]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]int)}
}

// Register appends t. Talent ids are unique.
func (r *Registry) Register(t Talent) error {
	if t == nil || t.ID() == "" {
		return fmt.Errorf("register talent: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ids[t.ID()]; exists {
		return fmt.Errorf("register talent %q: %w", t.ID(), ErrDuplicateTalent)
	}
	r.ids[t.ID()] = len(r.talents)
	r.talents = append(r.talents, t)
	return nil
}

// Talents returns the talents in registration order.
func (r *Registry) Talents() []Talent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.talents)
}

// Lookup returns the talent with the given id.
func (r *Registry) Lookup(id string) (Talent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.ids[id]
	if !ok {
		return nil, false
	}
	return r.talents[i], true
}

// SetOverrides replaces the override table. Ids with an empty chord list
// are treated as absent.
func (r *Registry) SetOverrides(overrides map[string][]combokey.ComboKey) {
	next := make(map[string][]combokey.ComboKey, len(overrides))
	for id, chords := range overrides {
		if len(chords) > 0 {
			next[id] = slices.Clone(chords)
		}
	}
	r.overrides.Store(&next)
}

// Overrides returns a copy of the override table.
func (r *Registry) Overrides() map[string][]combokey.ComboKey {
	p := r.overrides.Load()
	if p == nil {
		return map[string][]combokey.ComboKey{}
	}
	return maps.Clone(*p)
}

// EffectiveChords returns the override chords for t when configured,
// otherwise its declared defaults.
func (r *Registry) EffectiveChords(t Talent) []combokey.ComboKey {
	if p := r.overrides.Load(); p != nil {
		if chords, ok := (*p)[t.ID()]; ok {
			return chords
		}
	}
	return DefaultChords(t)
}
