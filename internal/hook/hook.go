// Package hook installs process-wide low-level keyboard and mouse hooks.
//
// A hook procedure receives each OS event together with a continuation that
// forwards the event to the next hook in the chain. The procedure either
// returns the continuation's result (pass-through) or a non-zero value
// without calling it (swallow). The continuation must be called with no
// locks held: it may re-enter the process.
package hook

import "errors"

var (
	// ErrUnsupported is returned on platforms without low-level hooks.
	ErrUnsupported = errors.New("low-level input hooks are not supported on this platform")
	// ErrNotInstalled is returned when unhooking a hook that is not active.
	ErrNotInstalled = errors.New("hook is not installed")
	// ErrAlreadyInstalled is returned when a hook of the same kind is active.
	ErrAlreadyInstalled = errors.New("hook is already installed")
)

// Swallow is the value a procedure returns to consume an event.
const Swallow uintptr = 1

// KeyEvent is one keyboard transition.
type KeyEvent struct {
	VKCode   uint32
	ScanCode uint32
	Extended bool
	Pressed  bool
	// Injected is set for synthesized input (SendInput, other hooks).
	Injected bool
	Time     uint32
}

// MouseAction classifies a mouse event.
type MouseAction uint8

const (
	MouseMove MouseAction = iota
	MouseLeftDown
	MouseLeftUp
	MouseRightDown
	MouseRightUp
	MouseMiddleDown
	MouseMiddleUp
	MouseWheel
	MouseOther
)

// MouseEvent is one mouse notification in screen coordinates.
type MouseEvent struct {
	X, Y     int32
	Action   MouseAction
	Injected bool
	Time     uint32
}

// Next forwards the current event down the hook chain.
type Next func() uintptr

// KeyboardProc handles a keyboard event.
type KeyboardProc func(ev KeyEvent, next Next) uintptr

// MouseProc handles a mouse event.
type MouseProc func(ev MouseEvent, next Next) uintptr

// Hook is an installed hook.
type Hook interface {
	// Unhook removes the hook. A second call returns ErrNotInstalled.
	Unhook() error
}

// Installer installs hooks. At most one hook of each kind is active.
type Installer interface {
	InstallKeyboard(proc KeyboardProc) (Hook, error)
	InstallMouse(proc MouseProc) (Hook, error)
}
