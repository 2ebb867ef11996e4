package workerutil

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRuntimeStopped is returned by Spawn after Stop.
var ErrRuntimeStopped = errors.New("task runtime stopped")

const defaultQueueSize = 256

// Task is a unit of fire-and-forget work.
type Task func(ctx context.Context)

type namedTask struct {
	name string
	fn   Task
}

// RuntimeOptions configures NewRuntime.
type RuntimeOptions struct {
	// Name labels the runtime in logs.
	Name string
	// QueueSize is the hand-off buffer. Zero means 256.
	QueueSize int
}

// Runtime executes tasks on their own goroutines. Spawn never blocks, so it
// is safe to call from an OS hook callback.
type Runtime struct {
	name  string
	queue chan namedTask

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders Spawn against Stop so no task is added after stopped is set.
	mu      sync.RWMutex
	stopped bool
	started bool

	pumpWG sync.WaitGroup
	tasks  sync.WaitGroup

	spawned  atomic.Int64
	panicked atomic.Int64
}

// NewRuntime returns an unstarted runtime. Tasks spawned before Start are
// buffered.
func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Name == "" {
		opts.Name = "runtime"
	}
	return &Runtime{
		name:  opts.Name,
		queue: make(chan namedTask, opts.QueueSize),
	}
}

// Start launches the hand-off pump. Tasks observe a context derived from ctx
// that is cancelled by Stop. Calling Start twice is a no-op.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)

	RunWithPanicRecovery(r.ctx, r.name+"-pump", &r.pumpWG, r.pump, RecoveryOptions{})
}

// Spawn schedules fn and returns immediately. When the hand-off buffer is
// full the task is launched directly.
func (r *Runtime) Spawn(name string, fn Task) error {
	if fn == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRuntimeStopped
	}

	r.tasks.Add(1)
	r.spawned.Add(1)
	t := namedTask{name: name, fn: fn}
	select {
	case r.queue <- t:
	default:
		if !r.started {
			r.tasks.Done()
			slog.Warn("[DEBUG-PANIC] task queue full before start, dropping task",
				"runtime", r.name, "task", name)
			return nil
		}
		slog.Debug("[DEBUG-PANIC] task queue full, launching directly",
			"runtime", r.name, "task", name)
		go r.run(r.ctx, t)
	}
	return nil
}

func (r *Runtime) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			go r.run(ctx, t)
		}
	}
}

func (r *Runtime) run(ctx context.Context, t namedTask) {
	defer r.tasks.Done()
	if callRecovering(t.name, func() { t.fn(ctx) }) {
		r.panicked.Add(1)
	}
}

// Wait blocks until every spawned task has finished. It must not race with
// Spawn calls made from outside running tasks.
func (r *Runtime) Wait() {
	r.tasks.Wait()
}

// Stop rejects further Spawn calls, cancels running tasks' context, drops
// tasks still buffered and waits for in-flight tasks until ctx expires.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.pumpWG.Wait()

	dropped := 0
	for drained := false; !drained; {
		select {
		case <-r.queue:
			dropped++
			r.tasks.Done()
		default:
			drained = true
		}
	}
	if dropped > 0 {
		slog.Debug("[DEBUG-PANIC] dropped buffered tasks on stop", "runtime", r.name, "count", dropped)
	}

	done := make(chan struct{})
	go func() {
		r.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports how many tasks were spawned and how many panicked.
func (r *Runtime) Stats() (spawned, panicked int64) {
	return r.spawned.Load(), r.panicked.Load()
}

// StopTimeout is Stop bounded by d.
func (r *Runtime) StopTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return r.Stop(ctx)
}
