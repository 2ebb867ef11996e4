package testutil

import (
	"sync"
	"sync/atomic"

	"rigela/internal/hook"
)

// FakeInstaller is an in-process hook.Installer that lets tests drive hook
// procedures synchronously, the way the OS hook thread would.
type FakeInstaller struct {
	mu      sync.Mutex
	kbdProc hook.KeyboardProc
	mseProc hook.MouseProc

	// KeyboardErr and MouseErr make the next install of that kind fail.
	KeyboardErr error
	MouseErr    error

	passed atomic.Int64
}

var _ hook.Installer = (*FakeInstaller)(nil)

type fakeInstalledHook struct {
	owner    *FakeInstaller
	unhooked atomic.Bool
	clear    func()
}

func (h *fakeInstalledHook) Unhook() error {
	if !h.unhooked.CompareAndSwap(false, true) {
		return hook.ErrNotInstalled
	}
	h.owner.mu.Lock()
	h.clear()
	h.owner.mu.Unlock()
	return nil
}

func (f *FakeInstaller) InstallKeyboard(proc hook.KeyboardProc) (hook.Hook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.KeyboardErr != nil {
		return nil, f.KeyboardErr
	}
	if f.kbdProc != nil {
		return nil, hook.ErrAlreadyInstalled
	}
	f.kbdProc = proc
	return &fakeInstalledHook{owner: f, clear: func() { f.kbdProc = nil }}, nil
}

func (f *FakeInstaller) InstallMouse(proc hook.MouseProc) (hook.Hook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MouseErr != nil {
		return nil, f.MouseErr
	}
	if f.mseProc != nil {
		return nil, hook.ErrAlreadyInstalled
	}
	f.mseProc = proc
	return &fakeInstalledHook{owner: f, clear: func() { f.mseProc = nil }}, nil
}

// Installed reports which hooks are active.
func (f *FakeInstaller) Installed() (keyboard, mouse bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kbdProc != nil, f.mseProc != nil
}

// Passed counts events forwarded through the continuation.
func (f *FakeInstaller) Passed() int64 {
	return f.passed.Load()
}

// Key delivers a keyboard transition and reports whether it was swallowed.
// Events sent while no keyboard hook is installed pass through.
func (f *FakeInstaller) Key(vk uint32, extended, pressed bool) (swallowed bool) {
	return f.KeyWithNext(hook.KeyEvent{VKCode: vk, Extended: extended, Pressed: pressed}, nil)
}

// KeyWithNext delivers ev; onNext runs inside the continuation.
func (f *FakeInstaller) KeyWithNext(ev hook.KeyEvent, onNext func()) (swallowed bool) {
	f.mu.Lock()
	proc := f.kbdProc
	f.mu.Unlock()
	next := f.next(onNext)
	if proc == nil {
		next()
		return false
	}
	return proc(ev, next) != 0
}

// Move delivers a mouse move and reports whether it was swallowed.
func (f *FakeInstaller) Move(x, y int32) (swallowed bool) {
	return f.Mouse(hook.MouseEvent{X: x, Y: y, Action: hook.MouseMove})
}

// Mouse delivers a mouse event and reports whether it was swallowed.
func (f *FakeInstaller) Mouse(ev hook.MouseEvent) (swallowed bool) {
	f.mu.Lock()
	proc := f.mseProc
	f.mu.Unlock()
	next := f.next(nil)
	if proc == nil {
		next()
		return false
	}
	return proc(ev, next) != 0
}

func (f *FakeInstaller) next(onNext func()) hook.Next {
	return func() uintptr {
		f.passed.Add(1)
		if onNext != nil {
			onNext()
		}
		return 0
	}
}
