package keyfeed

import (
	"log/slog"
	"testing"

	"rigela/internal/keys"
)

func TestEncodeFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame func() ([]byte, error)
		want  string
	}{
		{
			name:  "key down",
			frame: func() ([]byte, error) { return EncodeKey(keys.VkA, true) },
			want:  `{"type":"key","key":"A","pressed":true}`,
		},
		{
			name:  "numpad key up",
			frame: func() ([]byte, error) { return EncodeKey(keys.VkNumPadDiv, false) },
			want:  `{"type":"key","key":"NumPadDiv","pressed":false}`,
		},
		{
			name:  "talent",
			frame: func() ([]byte, error) { return EncodeTalent("program.current_date", "RigelA+F12(Double)") },
			want:  `{"type":"talent","id":"program.current_date","chord":"RigelA+F12(Double)"}`,
		},
		{
			name:  "log",
			frame: func() ([]byte, error) { return EncodeLog(slog.LevelError, "hook failed") },
			want:  `{"type":"log","level":"ERROR","message":"hook failed"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.frame()
			if err != nil {
				t.Fatalf("encode error = %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("frame = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeTalentRequiresID(t *testing.T) {
	if _, err := EncodeTalent("", "RigelA+M"); err == nil {
		t.Fatal("EncodeTalent(\"\") expected error")
	}
}

func TestIsTopic(t *testing.T) {
	for _, topic := range []string{TopicKeys, TopicTalents, TopicLog} {
		if !IsTopic(topic) {
			t.Errorf("IsTopic(%q) = false", topic)
		}
	}
	for _, topic := range []string{"", "panes", "KEYS"} {
		if IsTopic(topic) {
			t.Errorf("IsTopic(%q) = true", topic)
		}
	}
}
