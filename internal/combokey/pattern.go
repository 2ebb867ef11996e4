package combokey

import (
	"fmt"
	"strings"
)

// PressPattern is the temporal shape of a chord activation.
type PressPattern uint8

const (
	Idle PressPattern = iota
	SinglePress
	DoublePress
	LongPress
)

var patternNames = [...]string{
	Idle:        "Idle",
	SinglePress: "Single",
	DoublePress: "Double",
	LongPress:   "Long",
}

func (p PressPattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("PressPattern(%d)", uint8(p))
}

// Normalize maps a declared Idle pattern onto SinglePress.
func (p PressPattern) Normalize() PressPattern {
	if p == Idle {
		return SinglePress
	}
	return p
}

// ParsePattern resolves a pattern name case-insensitively.
func ParsePattern(s string) (PressPattern, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IDLE":
		return Idle, nil
	case "SINGLE", "":
		return SinglePress, nil
	case "DOUBLE":
		return DoublePress, nil
	case "LONG":
		return LongPress, nil
	}
	return Idle, fmt.Errorf("unknown press pattern %q", s)
}

func (p PressPattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PressPattern) UnmarshalText(text []byte) error {
	v, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
