package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"rigela/internal/commander"
	"rigela/internal/config"
	"rigela/internal/eventcore"
	"rigela/internal/ipc"
	"rigela/internal/keyfeed"
	"rigela/internal/talent"
	"rigela/internal/workerutil"
)

// App composes the input pipeline, the event hub and their front ends.
// It is created once in main, started once and shut down once.
type App struct {
	// Configuration state.
	// Lock ordering (outer -> inner):
	//   reloadMu -> cfgMu
	cfgMu      sync.RWMutex
	reloadMu   sync.Mutex
	cfg        config.Config
	configPath string
	logLevel   slog.LevelVar
	// configApplied is guarded by reloadMu.
	configApplied bool

	// Pipeline services. Set during startup before any hook is installed
	// and never reassigned afterwards.
	runtime   *workerutil.Runtime
	events    *eventcore.Core
	commander *commander.Commander
	performer talent.Performer

	pipeServer *ipc.Server
	watcher    *config.Watcher

	// feed is nil unless key_feed.enabled. Read by the log tee from any
	// goroutine.
	feed         atomic.Pointer[keyfeed.Hub]
	feedListener uuid.UUID
	observers    []uuid.UUID

	shuttingDown atomic.Bool
	exitOnce     sync.Once
	exitCh       chan struct{}
}

// NewApp creates the application.
func NewApp() *App {
	return &App{
		performer: talent.LogPerformer{},
		exitCh:    make(chan struct{}),
	}
}

// requestExit asks Run to shut down. Safe to call more than once and from
// any goroutine.
func (a *App) requestExit() {
	a.exitOnce.Do(func() {
		slog.Info("[DEBUG-APP] exit requested")
		close(a.exitCh)
	})
}

// Run starts the application and blocks until ctx is cancelled or a talent
// requests exit. A startup failure is returned without waiting.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-a.exitCh:
	}
	a.shutdown()
	return nil
}
