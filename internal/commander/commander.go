// Package commander owns the input pipeline: it installs the low-level
// hooks, tracks key state, matches chords against registered talents and
// dispatches the winner onto the task runtime.
package commander

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"rigela/internal/combokey"
	"rigela/internal/eventcore"
	"rigela/internal/hook"
	"rigela/internal/keys"
	"rigela/internal/keystate"
	"rigela/internal/workerutil"
)

var (
	ErrAlreadyApplied  = errors.New("commander already applied")
	ErrNotApplied      = errors.New("commander not applied")
	ErrDuplicateTalent = errors.New("duplicate talent id")
)

// Spawner schedules fire-and-forget work.
type Spawner interface {
	Spawn(name string, fn workerutil.Task) error
}

// Publisher accepts semantic events.
type Publisher interface {
	Publish(ev eventcore.Event)
}

// MouseReader receives accepted mouse positions while mouse reading is on.
type MouseReader interface {
	ReadAt(ctx context.Context, x, y int32)
}

// KeyListener is notified of every transition of the keys it subscribed to.
type KeyListener func(key keys.Keys, pressed bool)

type keyListener struct {
	id     uuid.UUID
	filter map[keys.Keys]struct{}
	fn     KeyListener
}

func (l keyListener) wants(k keys.Keys) bool {
	if len(l.filter) == 0 {
		return true
	}
	_, ok := l.filter[k]
	return ok
}

// Options configures New. Spawner is required; nil collaborators get
// defaults or are skipped.
type Options struct {
	Installer   hook.Installer
	Spawner     Spawner
	Events      Publisher
	Registry    *Registry
	Detector    *combokey.Detector
	Tracker     *keystate.Tracker
	MouseReader MouseReader
	// MouseRead is the initial mouse-read flag.
	MouseRead bool
}

// Commander is the shared context of the input pipeline. One instance is
// created at startup, applied once and disposed once.
type Commander struct {
	installer hook.Installer
	spawner   Spawner
	events    Publisher
	registry  *Registry
	detector  *combokey.Detector
	matcher   *Matcher
	tracker   *keystate.Tracker

	lastPressed atomic.Uint32
	mouseRead   atomic.Bool
	mouseReader atomic.Pointer[MouseReader]

	// mouseMu guards the last accepted mouse sample.
	mouseMu sync.Mutex
	lastX   int32
	lastY   int32

	// blockedMu guards keys whose key-down was consumed; their key-up is
	// consumed too.
	blockedMu sync.Mutex
	blocked   map[keys.Keys]struct{}

	listenersMu sync.RWMutex
	listeners   []keyListener

	hookMu       sync.Mutex
	keyboardHook hook.Hook
	mouseHook    hook.Hook
}

// New builds a Commander. It does not install hooks; see Apply.
func New(opts Options) *Commander {
	if opts.Installer == nil {
		opts.Installer = hook.NewInstaller()
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Detector == nil {
		opts.Detector = combokey.NewDetector()
	}
	if opts.Tracker == nil {
		opts.Tracker = keystate.New()
	}
	c := &Commander{
		installer: opts.Installer,
		spawner:   opts.Spawner,
		events:    opts.Events,
		registry:  opts.Registry,
		detector:  opts.Detector,
		matcher:   NewMatcher(opts.Registry, opts.Detector),
		tracker:   opts.Tracker,
		blocked:   make(map[keys.Keys]struct{}),
	}
	c.mouseRead.Store(opts.MouseRead)
	if opts.MouseReader != nil {
		c.SetMouseReader(opts.MouseReader)
	}
	return c
}

// Registry returns the talent registry.
func (c *Commander) Registry() *Registry { return c.registry }

// Detector returns the press-pattern detector.
func (c *Commander) Detector() *combokey.Detector { return c.detector }

// Tracker returns the key state tracker.
func (c *Commander) Tracker() *keystate.Tracker { return c.tracker }

// Apply installs the keyboard and mouse hooks. A failure is returned to the
// caller with no hook left installed.
func (c *Commander) Apply() error {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	if c.keyboardHook != nil || c.mouseHook != nil {
		return ErrAlreadyApplied
	}

	kh, err := c.installer.InstallKeyboard(c.HandleKey)
	if err != nil {
		return fmt.Errorf("apply commander: %w", err)
	}
	mh, err := c.installer.InstallMouse(c.HandleMouse)
	if err != nil {
		if unhookErr := kh.Unhook(); unhookErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback keyboard hook: %w", unhookErr))
		}
		return fmt.Errorf("apply commander: %w", err)
	}
	c.keyboardHook = kh
	c.mouseHook = mh
	slog.Info("[DEBUG-HOOK] input hooks installed", "talents", len(c.registry.Talents()))
	return nil
}

// Dispose removes whichever hooks are installed.
func (c *Commander) Dispose() error {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	if c.keyboardHook == nil && c.mouseHook == nil {
		return ErrNotApplied
	}

	var errs []error
	if c.keyboardHook != nil {
		if err := c.keyboardHook.Unhook(); err != nil {
			errs = append(errs, fmt.Errorf("unhook keyboard: %w", err))
		}
		c.keyboardHook = nil
	}
	if c.mouseHook != nil {
		if err := c.mouseHook.Unhook(); err != nil {
			errs = append(errs, fmt.Errorf("unhook mouse: %w", err))
		}
		c.mouseHook = nil
	}
	c.tracker.Reset()
	slog.Info("[DEBUG-HOOK] input hooks removed")
	return errors.Join(errs...)
}

// Applied reports whether hooks are installed.
func (c *Commander) Applied() bool {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	return c.keyboardHook != nil
}

// LastPressedKey returns the last non-modifier key passed through.
func (c *Commander) LastPressedKey() keys.Keys {
	return keys.Keys(c.lastPressed.Load())
}

// SetLastPressedKey overwrites the last pressed key.
func (c *Commander) SetLastPressedKey(k keys.Keys) {
	c.lastPressed.Store(uint32(k))
}

// MouseRead reports whether mouse positions are read.
func (c *Commander) MouseRead() bool {
	return c.mouseRead.Load()
}

// SetMouseRead switches mouse reading.
func (c *Commander) SetMouseRead(on bool) {
	c.mouseRead.Store(on)
}

// ToggleMouseRead flips mouse reading and returns the new state.
func (c *Commander) ToggleMouseRead() bool {
	for {
		old := c.mouseRead.Load()
		if c.mouseRead.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetMouseReader replaces the mouse position consumer.
func (c *Commander) SetMouseReader(r MouseReader) {
	if r == nil {
		c.mouseReader.Store(nil)
		return
	}
	c.mouseReader.Store(&r)
}

// AddKeyEventListener subscribes fn to transitions of the given keys, or of
// every key when none are given. fn runs on the task runtime.
func (c *Commander) AddKeyEventListener(filter []keys.Keys, fn KeyListener) uuid.UUID {
	l := keyListener{id: uuid.New(), fn: fn}
	if len(filter) > 0 {
		l.filter = make(map[keys.Keys]struct{}, len(filter))
		for _, k := range filter {
			l.filter[k] = struct{}{}
		}
	}
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenersMu.Unlock()
	return l.id
}

// RemoveKeyEventListener unsubscribes a listener and reports whether it
// existed.
func (c *Commander) RemoveKeyEventListener(id uuid.UUID) bool {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return true
		}
	}
	return false
}
