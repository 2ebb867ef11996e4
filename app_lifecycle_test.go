package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"rigela/internal/config"
	"rigela/internal/hook"
	"rigela/internal/keys"
	"rigela/internal/testutil"
	"rigela/internal/workerutil"
)

type recordingPerformer struct {
	mu    sync.Mutex
	spoke []string
}

func (p *recordingPerformer) Speak(_ context.Context, text string) error {
	p.mu.Lock()
	p.spoke = append(p.spoke, text)
	p.mu.Unlock()
	return nil
}

func (p *recordingPerformer) said() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.spoke)
}

// newTestApp points the config at a temp file holding cfg and swaps the
// hook installer for a fake.
func newTestApp(t *testing.T, cfg config.Config) (*App, *testutil.FakeInstaller, *recordingPerformer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(config.EnvConfigPath, path)
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvMouseRead, "")
	os.Unsetenv(config.EnvMouseRead)
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("config.Save() error = %v", err)
	}

	fake := &testutil.FakeInstaller{}
	origInstaller := newInstallerFn
	origLogger := setDefaultLoggerFn
	newInstallerFn = func() hook.Installer { return fake }
	setDefaultLoggerFn = func(*slog.Logger) {}
	t.Cleanup(func() {
		newInstallerFn = origInstaller
		setDefaultLoggerFn = origLogger
	})

	app := NewApp()
	performer := &recordingPerformer{}
	app.performer = performer
	return app, fake, performer
}

func quietConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Pipe.Enabled = false
	return cfg
}

func press(fake *testutil.FakeInstaller, k keys.Keys, pressed bool) bool {
	code, ext, _ := k.Scan()
	return fake.Key(code, ext, pressed)
}

// chord presses ks in order, releases them in reverse and reports whether
// the last key-down was swallowed.
func chord(fake *testutil.FakeInstaller, ks ...keys.Keys) bool {
	swallowed := false
	for _, k := range ks {
		swallowed = press(fake, k, true)
	}
	for _, k := range slices.Backward(ks) {
		press(fake, k, false)
	}
	return swallowed
}

func TestStartupInstallsHooksAndDispatchesTalents(t *testing.T) {
	app, fake, performer := newTestApp(t, quietConfig())
	if err := app.startup(context.Background()); err != nil {
		t.Fatalf("startup() error = %v", err)
	}
	if kbd, mouse := fake.Installed(); !kbd || !mouse {
		t.Fatalf("Installed() = %v, %v after startup", kbd, mouse)
	}
	if app.commander.MouseRead() {
		t.Fatal("mouse read should start disabled")
	}

	if !chord(fake, keys.VkRigelA, keys.VkM) {
		t.Fatal("RigelA+M was not swallowed")
	}
	testutil.WaitFor(t, time.Second, app.commander.MouseRead)
	testutil.WaitFor(t, time.Second, func() bool {
		return slices.Contains(performer.said(), "Mouse reading on")
	})

	app.shutdown()
	if kbd, mouse := fake.Installed(); kbd || mouse {
		t.Fatalf("Installed() = %v, %v after shutdown", kbd, mouse)
	}
	if err := app.runtime.Spawn("late", func(context.Context) {}); !errors.Is(err, workerutil.ErrRuntimeStopped) {
		t.Fatalf("Spawn() after shutdown error = %v, want ErrRuntimeStopped", err)
	}
	// A second shutdown is a no-op.
	app.shutdown()
}

func TestStartupFailsWhenHooksCannotBeInstalled(t *testing.T) {
	app, fake, _ := newTestApp(t, quietConfig())
	fake.KeyboardErr = hook.ErrUnsupported

	err := app.startup(context.Background())
	if !errors.Is(err, hook.ErrUnsupported) {
		t.Fatalf("startup() error = %v, want ErrUnsupported", err)
	}
	if kbd, mouse := fake.Installed(); kbd || mouse {
		t.Fatalf("Installed() = %v, %v after failed startup", kbd, mouse)
	}
	if err := app.runtime.Spawn("late", func(context.Context) {}); !errors.Is(err, workerutil.ErrRuntimeStopped) {
		t.Fatalf("runtime still accepts tasks after failed startup: %v", err)
	}
}

func TestStartupAppliesConfiguredOverrides(t *testing.T) {
	cfg := quietConfig()
	cfg.Mouse.Read = true
	cfg.Hotkeys = map[string][]string{
		"mouse.read.toggle": {"RigelA+K"},
		"mouse.click":       {"not a chord"},
	}
	app, fake, _ := newTestApp(t, cfg)
	if err := app.startup(context.Background()); err != nil {
		t.Fatalf("startup() error = %v", err)
	}
	t.Cleanup(app.shutdown)

	if !app.commander.MouseRead() {
		t.Fatal("mouse.read: true was not applied")
	}
	if chord(fake, keys.VkRigelA, keys.VkM) {
		t.Fatal("default chord RigelA+M still swallowed after override")
	}
	if !chord(fake, keys.VkRigelA, keys.VkK) {
		t.Fatal("override chord RigelA+K was not swallowed")
	}
	testutil.WaitFor(t, time.Second, func() bool { return !app.commander.MouseRead() })

	// The malformed override leaves mouse.click on its default chord.
	if !chord(fake, keys.VkNumPadDiv) {
		t.Fatal("mouse.click default chord not swallowed")
	}
}

func TestApplyConfigReloadKeepsRuntimeMouseToggle(t *testing.T) {
	app, fake, _ := newTestApp(t, quietConfig())
	if err := app.startup(context.Background()); err != nil {
		t.Fatalf("startup() error = %v", err)
	}
	t.Cleanup(app.shutdown)

	chord(fake, keys.VkRigelA, keys.VkM)
	testutil.WaitFor(t, time.Second, app.commander.MouseRead)

	// Unchanged mouse.read: the runtime toggle survives the reload.
	reloaded := app.getConfigSnapshot()
	reloaded.Hotkeys = map[string][]string{"program.current_time": {"RigelA+T"}}
	app.applyConfig(reloaded)
	if !app.commander.MouseRead() {
		t.Fatal("reload with unchanged mouse.read reset the runtime toggle")
	}
	if !chord(fake, keys.VkRigelA, keys.VkT) {
		t.Fatal("reloaded override RigelA+T was not swallowed")
	}

	// Changed mouse.read: the configured value wins.
	reloaded.Mouse.Read = true
	app.applyConfig(reloaded)
	reloaded.Mouse.Read = false
	app.applyConfig(reloaded)
	if app.commander.MouseRead() {
		t.Fatal("reload with changed mouse.read was not applied")
	}
}

func TestRunReturnsWhenExitTalentFires(t *testing.T) {
	app, fake, _ := newTestApp(t, quietConfig())

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()
	testutil.WaitFor(t, 2*time.Second, func() bool {
		kbd, _ := fake.Installed()
		return kbd
	})

	if !chord(fake, keys.VkRigelA, keys.VkEscape) {
		t.Fatal("RigelA+Esc was not swallowed")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the exit talent")
	}
	if kbd, _ := fake.Installed(); kbd {
		t.Fatal("keyboard hook still installed after Run returned")
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	app, fake, _ := newTestApp(t, quietConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	testutil.WaitFor(t, 2*time.Second, func() bool {
		kbd, _ := fake.Installed()
		return kbd
	})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunReturnsStartupError(t *testing.T) {
	app, fake, _ := newTestApp(t, quietConfig())
	fake.MouseErr = errors.New("access denied")

	if err := app.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want hook installation failure")
	}
}
