package combokey

import (
	"errors"
	"testing"

	"rigela/internal/keys"
)

func TestParseSuccess(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ComboKey
	}{
		{
			name:  "rigela escape",
			input: "RigelA+Esc",
			want:  New(keys.VkEscape, keys.ModRigelA, SinglePress),
		},
		{
			name:  "case and spacing",
			input: "  rigela + ctrl + a ",
			want:  New(keys.VkA, keys.ModRigelA|keys.ModCtrl, SinglePress),
		},
		{
			name:  "double suffix",
			input: "RigelA+F12(Double)",
			want:  New(keys.VkF12, keys.ModRigelA, DoublePress),
		},
		{
			name:  "long suffix with space",
			input: "Ctrl+Up (long)",
			want:  New(keys.VkUp, keys.ModCtrl, LongPress),
		},
		{
			name:  "alias names",
			input: "Control+Escape",
			want:  New(keys.VkEscape, keys.ModCtrl, SinglePress),
		},
		{
			name:  "bare keypad key",
			input: "NumPadDiv",
			want:  New(keys.VkNumPadDiv, keys.ModNone, SinglePress),
		},
		{
			name:  "trailing plus key",
			input: "Shift+NumPad+",
			want:  New(keys.VkNumPadAdd, keys.ModShift, SinglePress),
		},
		{
			name:  "modifier as main key",
			input: "Ctrl+RigelA",
			want:  New(keys.VkRigelA, keys.ModCtrl, SinglePress),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "only separators", input: "+"},
		{name: "unknown key", input: "RigelA+Hyper"},
		{name: "non modifier prefix", input: "A+B"},
		{name: "unknown pattern", input: "RigelA+A(Triple)"},
		{name: "unbalanced suffix", input: "RigelA+A)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.input); err == nil {
				t.Fatalf("Parse(%q) error = nil", tt.input)
			}
		})
	}
	if _, err := Parse(""); !errors.Is(err, ErrEmptyChord) {
		t.Fatalf("Parse(\"\") error = %v, want ErrEmptyChord", err)
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	chords := []ComboKey{
		New(keys.VkEscape, keys.ModRigelA, SinglePress),
		New(keys.VkF12, keys.ModRigelA, DoublePress),
		New(keys.VkZ, keys.ModCtrl|keys.ModShift|keys.ModAlt|keys.ModWin, LongPress),
		New(keys.VkNumPadAdd, keys.ModNone, SinglePress),
		New(keys.VkRigelA, keys.ModNone, Idle),
	}
	for _, c := range chords {
		got, err := Parse(c.String())
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", c.String(), err)
		}
		if got != c {
			t.Errorf("Parse(%q) = %+v, want %+v", c.String(), got, c)
		}
	}
}
