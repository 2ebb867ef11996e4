//go:build windows

package main

import (
	"log/slog"
	"os"

	"golang.org/x/sys/windows"
)

const utf8CodePage = 65001

// setConsoleUTF8 switches the console output codepage so spoken text that
// is logged to stderr renders correctly. Nothing happens when stderr is
// redirected or the process has no console.
func setConsoleUTF8() {
	var mode uint32
	if err := windows.GetConsoleMode(windows.Handle(os.Stderr.Fd()), &mode); err != nil {
		return
	}
	if err := windows.SetConsoleOutputCP(utf8CodePage); err != nil {
		slog.Debug("[DEBUG-APP] console codepage unchanged", "error", err)
	}
}
