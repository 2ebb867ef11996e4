// Package userutil derives per-user object names (named pipe, mutex).
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

const maxNameLen = 64

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeUsername maps value onto [a-zA-Z0-9._-], collapsing each run of
// other characters into "_" and capping the result at 64 bytes.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	value = invalidUsernameRune.ReplaceAllString(value, "_")
	if len(value) > maxNameLen {
		value = value[:maxNameLen]
	}
	return value
}

// CurrentUsername returns the sanitized login name: USERNAME first, then the
// OS account, then "unknown".
func CurrentUsername() string {
	username := strings.TrimSpace(os.Getenv("USERNAME"))
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}
	return SanitizeUsername(username)
}

// ObjectName joins prefix and the current user, e.g. `Global\RigelA-alice`.
func ObjectName(prefix string) string {
	return prefix + CurrentUsername()
}
