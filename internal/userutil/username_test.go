package userutil

import (
	"strings"
	"testing"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "alice", want: "alice"},
		{name: "domain user", input: "DOMAIN\\user", want: "DOMAIN_user"},
		{name: "email", input: "user@domain.com", want: "user_domain.com"},
		{name: "run of invalid", input: "a  !b", want: "a_b"},
		{name: "empty", input: "", want: "unknown"},
		{name: "whitespace", input: "  ", want: "unknown"},
		{name: "capped", input: strings.Repeat("x", 100), want: strings.Repeat("x", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUsername(tt.input); got != tt.want {
				t.Fatalf("SanitizeUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrentUsernamePrefersEnv(t *testing.T) {
	t.Setenv("USERNAME", "screen reader")
	if got := CurrentUsername(); got != "screen_reader" {
		t.Fatalf("CurrentUsername() = %q, want screen_reader", got)
	}
}

func TestCurrentUsernameFallback(t *testing.T) {
	t.Setenv("USERNAME", "")
	if got := CurrentUsername(); got == "" {
		t.Fatal("CurrentUsername() returned empty string")
	}
}

func TestObjectName(t *testing.T) {
	t.Setenv("USERNAME", "bob")
	if got := ObjectName(`Global\RigelA-`); got != `Global\RigelA-bob` {
		t.Fatalf("ObjectName() = %q", got)
	}
}
