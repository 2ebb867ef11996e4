package workerutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRuntimeRunsSpawnedTasks(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{Name: "test"})
	rt.Start(context.Background())
	t.Cleanup(func() { _ = rt.StopTimeout(time.Second) })

	var ran atomic.Int32
	for range 50 {
		if err := rt.Spawn("count", func(context.Context) { ran.Add(1) }); err != nil {
			t.Fatalf("Spawn() error = %v", err)
		}
	}
	rt.Wait()
	if got := ran.Load(); got != 50 {
		t.Fatalf("ran %d tasks, want 50", got)
	}
	if spawned, _ := rt.Stats(); spawned != 50 {
		t.Fatalf("Stats() spawned = %d, want 50", spawned)
	}
}

func TestRuntimeSpawnDoesNotBlockWhenQueueFull(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{Name: "full", QueueSize: 1})
	rt.Start(context.Background())
	t.Cleanup(func() { _ = rt.StopTimeout(time.Second) })

	release := make(chan struct{})
	var ran atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 20 {
			_ = rt.Spawn("blocked", func(context.Context) {
				<-release
				ran.Add(1)
			})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Spawn blocked with a full queue")
	}
	close(release)
	rt.Wait()
	if got := ran.Load(); got != 20 {
		t.Fatalf("ran %d tasks, want 20", got)
	}
}

func TestRuntimeRecoversTaskPanic(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{Name: "panic"})
	rt.Start(context.Background())
	t.Cleanup(func() { _ = rt.StopTimeout(time.Second) })

	var after atomic.Bool
	_ = rt.Spawn("boom", func(context.Context) { panic("boom") })
	rt.Wait()
	_ = rt.Spawn("after", func(context.Context) { after.Store(true) })
	rt.Wait()

	if !after.Load() {
		t.Fatal("runtime stopped running tasks after a panic")
	}
	if _, panicked := rt.Stats(); panicked != 1 {
		t.Fatalf("Stats() panicked = %d, want 1", panicked)
	}
}

func TestRuntimeStop(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{})
	rt.Start(context.Background())

	cancelled := make(chan struct{})
	_ = rt.Spawn("long", func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})
	time.Sleep(10 * time.Millisecond)

	if err := rt.StopTimeout(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Fatal("task context not cancelled by Stop")
	}
	if err := rt.Spawn("late", func(context.Context) {}); !errors.Is(err, ErrRuntimeStopped) {
		t.Fatalf("Spawn() after Stop error = %v, want ErrRuntimeStopped", err)
	}
	if err := rt.StopTimeout(time.Second); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestRuntimeStopTimesOut(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{})
	rt.Start(context.Background())
	release := make(chan struct{})
	defer close(release)
	_ = rt.Spawn("stuck", func(context.Context) { <-release })
	time.Sleep(10 * time.Millisecond)

	if err := rt.StopTimeout(20 * time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() error = %v, want DeadlineExceeded", err)
	}
}

func TestRuntimeStopBeforeStartDropsBuffered(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{QueueSize: 4})
	var ran atomic.Bool
	_ = rt.Spawn("buffered", func(context.Context) { ran.Store(true) })
	if err := rt.StopTimeout(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if ran.Load() {
		t.Fatal("buffered task ran although the runtime never started")
	}
}
