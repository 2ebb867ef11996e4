//go:build windows

package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmSysKeyDown  = 0x0104
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	pmNoRemove    = 0x0000

	llkhfExtended = 0x01
	llkhfInjected = 0x10
	llmhfInjected = 0x01

	stopTimeout = 2 * time.Second
)

// kbdLLHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdLLHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type point struct {
	x int32
	y int32
}

// msLLHookStruct mirrors MSLLHOOKSTRUCT.
type msLLHookStruct struct {
	pt          point
	mouseData   uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// winMsg mirrors MSG.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

// windows.NewCallback slots are never freed, so each callback is created
// once and dispatches to the currently installed proc.
var (
	keyboardProc atomic.Pointer[KeyboardProc]
	mouseProc    atomic.Pointer[MouseProc]

	keyboardCallback = sync.OnceValue(func() uintptr { return windows.NewCallback(keyboardHookProc) })
	mouseCallback    = sync.OnceValue(func() uintptr { return windows.NewCallback(mouseHookProc) })
)

type windowsInstaller struct {
	mu       sync.Mutex
	keyboard *threadHook
	mouse    *threadHook
}

// NewInstaller returns the Win32 installer.
func NewInstaller() Installer {
	return &windowsInstaller{}
}

func (w *windowsInstaller) InstallKeyboard(proc KeyboardProc) (Hook, error) {
	if proc == nil {
		return nil, errors.New("keyboard proc is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.keyboard != nil && !w.keyboard.unhooked.Load() {
		return nil, ErrAlreadyInstalled
	}
	p := &proc
	keyboardProc.Store(p)
	h, err := startThreadHook("keyboard", whKeyboardLL, keyboardCallback(), func() { keyboardProc.CompareAndSwap(p, nil) })
	if err != nil {
		keyboardProc.CompareAndSwap(p, nil)
		return nil, err
	}
	w.keyboard = h
	return h, nil
}

func (w *windowsInstaller) InstallMouse(proc MouseProc) (Hook, error) {
	if proc == nil {
		return nil, errors.New("mouse proc is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mouse != nil && !w.mouse.unhooked.Load() {
		return nil, ErrAlreadyInstalled
	}
	p := &proc
	mouseProc.Store(p)
	h, err := startThreadHook("mouse", whMouseLL, mouseCallback(), func() { mouseProc.CompareAndSwap(p, nil) })
	if err != nil {
		mouseProc.CompareAndSwap(p, nil)
		return nil, err
	}
	w.mouse = h
	return h, nil
}

// threadHook is a hook owned by a dedicated OS thread running a message
// loop; low-level hooks are only called while their thread pumps messages.
type threadHook struct {
	name     string
	threadID uint32
	done     chan struct{}
	unhooked atomic.Bool
	release  func()
}

type loopReady struct {
	threadID uint32
	err      error
}

func startThreadHook(name string, idHook int, callback uintptr, release func()) (*threadHook, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	readyCh := make(chan loopReady, 1)
	h := &threadHook{name: name, done: make(chan struct{}), release: release}
	go runHookLoop(name, idHook, callback, readyCh, h.done)

	ready := <-readyCh
	if ready.err != nil {
		return nil, fmt.Errorf("install %s hook: %w", name, ready.err)
	}
	h.threadID = ready.threadID
	return h, nil
}

func (h *threadHook) Unhook() error {
	if !h.unhooked.CompareAndSwap(false, true) {
		return ErrNotInstalled
	}
	defer h.release()

	stopErr := postQuit(h.threadID)
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case <-h.done:
	case <-timer.C:
		slog.Warn("[DEBUG-HOOK] hook loop stop timed out, thread may leak", "hook", h.name)
		stopErr = errors.Join(stopErr, fmt.Errorf("%s hook loop stop timed out", h.name))
	}
	return stopErr
}

func runHookLoop(name string, idHook int, callback uintptr, readyCh chan<- loopReady, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	threadID := windows.GetCurrentThreadId()

	// Force creation of the thread message queue so WM_QUIT can be posted.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		readyCh <- loopReady{err: fmt.Errorf("GetModuleHandleEx: %w", err)}
		return
	}
	hhook, _, err := procSetWindowsHookExW.Call(uintptr(idHook), callback, uintptr(module), 0)
	if hhook == 0 {
		if err == syscall.Errno(0) {
			err = errors.New("SetWindowsHookExW failed")
		}
		readyCh <- loopReady{err: err}
		return
	}
	defer func() {
		if res, _, err := procUnhookWindowsHookEx.Call(hhook); res == 0 {
			slog.Error("[DEBUG-HOOK] UnhookWindowsHookEx failed", "hook", name, "error", err)
		}
	}()

	slog.Debug("[DEBUG-HOOK] hook installed", "hook", name, "threadID", threadID)
	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[DEBUG-HOOK] GetMessageW returned error, exiting loop", "hook", name, "error", lastErr)
			return
		case 0:
			slog.Debug("[DEBUG-HOOK] hook loop received WM_QUIT", "hook", name)
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func callNext(nCode, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func keyboardHookProc(nCode, wParam, lParam uintptr) uintptr {
	proc := keyboardProc.Load()
	if int32(nCode) < 0 || proc == nil {
		return callNext(nCode, wParam, lParam)
	}
	info := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
	ev := KeyEvent{
		VKCode:   info.vkCode,
		ScanCode: info.scanCode,
		Extended: info.flags&llkhfExtended != 0,
		Pressed:  wParam == wmKeyDown || wParam == wmSysKeyDown,
		Injected: info.flags&llkhfInjected != 0,
		Time:     info.time,
	}
	return (*proc)(ev, func() uintptr { return callNext(nCode, wParam, lParam) })
}

func mouseHookProc(nCode, wParam, lParam uintptr) uintptr {
	proc := mouseProc.Load()
	if int32(nCode) < 0 || proc == nil {
		return callNext(nCode, wParam, lParam)
	}
	info := (*msLLHookStruct)(unsafe.Pointer(lParam))
	ev := MouseEvent{
		X:        info.pt.x,
		Y:        info.pt.y,
		Action:   mouseAction(wParam),
		Injected: info.flags&llmhfInjected != 0,
		Time:     info.time,
	}
	return (*proc)(ev, func() uintptr { return callNext(nCode, wParam, lParam) })
}

func mouseAction(wParam uintptr) MouseAction {
	switch wParam {
	case wmMouseMove:
		return MouseMove
	case wmLButtonDown:
		return MouseLeftDown
	case wmLButtonUp:
		return MouseLeftUp
	case wmRButtonDown:
		return MouseRightDown
	case wmRButtonUp:
		return MouseRightUp
	case wmMButtonDown:
		return MouseMiddleDown
	case wmMButtonUp:
		return MouseMiddleUp
	case wmMouseWheel:
		return MouseWheel
	}
	return MouseOther
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
