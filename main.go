package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"rigela/internal/ipc"
	"rigela/internal/singleinstance"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Single-instance check BEFORE any hook is installed. Two instances would
	// both swallow every chord.
	mutexLock, err := singleinstance.TryLock(singleinstance.DefaultMutexName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, notifying it")
		notifyRunningInstance()
		return 0
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] mutex creation failed, proceeding without single-instance guard", "error", err)
	}
	if mutexLock != nil {
		defer func() {
			if releaseErr := mutexLock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] mutex release failed", "error", releaseErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewApp().Run(ctx); err != nil {
		slog.Error("[DEBUG-APP] startup failed", "error", err)
		return 1
	}
	return 0
}

// notifyRunningInstance publishes a custom event to the running instance so
// it can announce the duplicate launch.
func notifyRunningInstance() {
	req := ipc.Request{
		Op: ipc.OpPublish,
		Event: &ipc.EventPayload{
			Kind:    "custom",
			Name:    "instance",
			Payload: "RigelA is already running",
		},
	}
	if _, err := ipc.Send("", req); err != nil {
		slog.Warn("[DEBUG-SINGLE] failed to signal existing instance", "error", err)
	}
}
