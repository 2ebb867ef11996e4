package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"rigela/internal/combokey"
	"rigela/internal/commander"
	"rigela/internal/config"
	"rigela/internal/eventcore"
	"rigela/internal/hook"
	"rigela/internal/ipc"
	"rigela/internal/keyfeed"
	"rigela/internal/sessionlog"
	"rigela/internal/talent"
	"rigela/internal/workerutil"
)

var (
	newInstallerFn                = hook.NewInstaller
	newPipeServerFn               = ipc.NewServer
	newConfigWatcherFn            = config.NewWatcher
	setDefaultLoggerFn            = slog.SetDefault
	logOutput           io.Writer = os.Stderr
)

const (
	shutdownWaitTimeout = 10 * time.Second
	runtimeQueueSize    = 512
)

// startup builds the pipeline bottom-up and installs the hooks last, so no
// input reaches a half-built pipeline. Only a hook installation failure is
// fatal; every other front end degrades with a warning.
func (a *App) startup(ctx context.Context) error {
	setConsoleUTF8()

	a.configPath = config.DefaultPath()
	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Config failures are non-fatal: run with defaults.
		slog.Warn("[WARN-CONFIG] failed to load config, running with defaults",
			"path", a.configPath, "error", err)
		cfg = config.DefaultConfig()
	}
	a.configureLogging()
	a.applyConfig(cfg)
	cfg = a.getConfigSnapshot()

	a.runtime = workerutil.NewRuntime(workerutil.RuntimeOptions{Name: "rigela", QueueSize: runtimeQueueSize})
	a.runtime.Start(ctx)
	a.events = eventcore.New(a.runtime, eventcore.WithMaxFingerprints(cfg.EventCore.MaxFingerprints))
	a.commander = commander.New(commander.Options{
		Installer: newInstallerFn(),
		Spawner:   a.runtime,
		Events:    a.events,
		Detector: combokey.NewDetector(combokey.WithTimings(
			cfg.Keyboard.DoublePressWindow, cfg.Keyboard.LongPressThreshold)),
		MouseReader: talent.PointReader{Performer: a.performer},
	})
	a.applyConfig(cfg)

	deps := talent.Deps{Performer: a.performer, Host: a.commander, Exit: a.requestExit}
	if err := talent.Register(a.commander.Registry(), deps); err != nil {
		a.stopRuntime()
		return fmt.Errorf("register talents: %w", err)
	}
	a.observers = append(a.observers,
		a.events.Subscribe(talent.EventObserver(deps, a.events)),
		a.events.Subscribe(a.forwardTalentEvent),
	)

	a.startKeyFeed(ctx, cfg)

	if err := a.commander.Apply(); err != nil {
		a.stopKeyFeed()
		a.stopRuntime()
		return fmt.Errorf("install input hooks: %w", err)
	}

	a.startPipeServer(cfg)
	a.startConfigWatcher()
	slog.Info("[DEBUG-APP] RigelA started",
		"config", a.configPath,
		"talents", len(a.commander.Registry().Talents()),
		"mouseRead", a.commander.MouseRead(),
	)
	return nil
}

// configureLogging installs the process logger: text on stderr at the
// configured level, with warnings teed to the key feed.
func (a *App) configureLogging() {
	base := slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: &a.logLevel})
	setDefaultLoggerFn(slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, a.forwardLogEntry)))
}

func (a *App) startKeyFeed(ctx context.Context, cfg config.Config) {
	if !cfg.KeyFeed.Enabled {
		return
	}
	hub := keyfeed.NewHub(keyfeed.HubOptions{Addr: cfg.KeyFeed.Addr})
	if err := hub.Start(ctx); err != nil {
		slog.Warn("[DEBUG-WS] key feed failed to start", "addr", cfg.KeyFeed.Addr, "error", err)
		return
	}
	a.feed.Store(hub)
	a.feedListener = a.commander.AddKeyEventListener(nil, hub.PublishKey)
}

func (a *App) stopKeyFeed() {
	hub := a.feed.Swap(nil)
	if hub == nil {
		return
	}
	if a.commander != nil {
		a.commander.RemoveKeyEventListener(a.feedListener)
	}
	if err := hub.Stop(); err != nil {
		slog.Warn("[DEBUG-WS] key feed stop failed", "error", err)
	}
}

func (a *App) startPipeServer(cfg config.Config) {
	if !cfg.Pipe.Enabled {
		return
	}
	server := newPipeServerFn("", a.events, a.commander)
	if err := server.Start(); err != nil {
		if errors.Is(err, ipc.ErrUnsupported) {
			slog.Debug("[ipc] named pipes unavailable on this platform")
			return
		}
		slog.Warn("[ipc] pipe server failed to start, out-of-process events unavailable", "error", err)
		return
	}
	a.pipeServer = server
}

func (a *App) startConfigWatcher() {
	watcher, err := newConfigWatcherFn(a.configPath, 0, a.applyConfig)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config watcher unavailable, edits apply after restart", "error", err)
		return
	}
	a.watcher = watcher
}

// shutdown tears the pipeline down top-down: front ends first, then the
// hooks, then the runtime that ran their tasks.
func (a *App) shutdown() {
	if !a.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Warn("[WARN-CONFIG] config watcher close failed", "error", err)
		}
	}
	if a.pipeServer != nil {
		if err := a.pipeServer.Stop(); err != nil {
			slog.Warn("[ipc] pipe server stop failed", "error", err)
		}
	}
	if a.commander != nil && a.commander.Applied() {
		if err := a.commander.Dispose(); err != nil {
			slog.Warn("[DEBUG-HOOK] input hooks removal failed", "error", err)
		}
	}
	if a.events != nil {
		for _, id := range a.observers {
			a.events.Unsubscribe(id)
		}
	}
	a.stopKeyFeed()
	a.stopRuntime()
	slog.Info("[DEBUG-APP] RigelA stopped")
}

func (a *App) stopRuntime() {
	if a.runtime == nil {
		return
	}
	if err := a.runtime.StopTimeout(shutdownWaitTimeout); err != nil {
		slog.Warn("[DEBUG-PANIC] timed out waiting for runtime tasks during shutdown", "error", err)
	}
	spawned, panicked := a.runtime.Stats()
	slog.Debug("[DEBUG-PANIC] runtime stopped", "spawned", spawned, "panicked", panicked)
}
