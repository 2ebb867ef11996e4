package combokey

import (
	"fmt"
	"strings"

	"rigela/internal/keys"
)

// Parse parses a chord like "RigelA+Ctrl+A", "RigelA+F12(Double)" or
// "NumPadDiv". Key names are case-insensitive. Every token except the last
// must name a modifier.
func Parse(spec string) (ComboKey, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return ComboKey{}, ErrEmptyChord
	}

	pattern := SinglePress
	if strings.HasSuffix(raw, ")") {
		open := strings.LastIndexByte(raw, '(')
		if open < 0 {
			return ComboKey{}, fmt.Errorf("unbalanced pattern suffix in chord %q", raw)
		}
		p, err := ParsePattern(raw[open+1 : len(raw)-1])
		if err != nil {
			return ComboKey{}, fmt.Errorf("chord %q: %w", raw, err)
		}
		pattern = p
		raw = strings.TrimSpace(raw[:open])
	}

	parts := splitChord(raw)
	if len(parts) == 0 {
		return ComboKey{}, ErrEmptyChord
	}

	var mods keys.ModifierKeys
	for _, token := range parts[:len(parts)-1] {
		k, ok := keys.LookupName(token)
		if !ok || !k.IsModifier() {
			return ComboKey{}, fmt.Errorf("unknown modifier %q in chord %q", token, raw)
		}
		mods |= keys.ModifierOf(k)
	}

	keyToken := parts[len(parts)-1]
	main, ok := keys.LookupName(keyToken)
	if !ok || main == keys.VkNone {
		return ComboKey{}, fmt.Errorf("unknown key %q in chord %q", keyToken, raw)
	}
	return New(main, mods, pattern), nil
}

// MustParse is Parse for static chord tables.
func MustParse(spec string) ComboKey {
	c, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// splitChord splits on "+" while keeping a trailing "+" as a key name, so
// "Ctrl+NumPad+" keeps its last token.
func splitChord(raw string) []string {
	fields := strings.Split(raw, "+")
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		token := strings.TrimSpace(fields[i])
		if token == "" {
			if len(out) > 0 && i == len(fields)-1 {
				out[len(out)-1] += "+"
			}
			continue
		}
		out = append(out, token)
	}
	return out
}
