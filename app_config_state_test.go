package main

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"rigela/internal/config"
)

func TestGetConfigSnapshotReturnsIndependentCopy(t *testing.T) {
	app := &App{}
	base := config.DefaultConfig()
	base.Hotkeys = map[string][]string{"mouse.read.toggle": {"RigelA+M"}}
	app.setConfigSnapshot(base)

	snapshot := app.getConfigSnapshot()
	snapshot.Hotkeys["snapshot-only"] = []string{"Ctrl+A"}
	snapshot.Hotkeys["mouse.read.toggle"][0] = "RigelA+K"

	latest := app.getConfigSnapshot()
	if _, exists := latest.Hotkeys["snapshot-only"]; exists {
		t.Fatal("getConfigSnapshot returned shared map reference")
	}
	if got := latest.Hotkeys["mouse.read.toggle"][0]; got != "RigelA+M" {
		t.Fatalf("getConfigSnapshot returned shared slice reference, chord = %q", got)
	}
}

func TestConfigSnapshotConcurrency(t *testing.T) {
	app := &App{}
	app.setConfigSnapshot(config.DefaultConfig())

	const goroutines = 12
	const iterations = 200

	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := range goroutines {
		wg.Go(func() {
			<-start
			for j := range iterations {
				cfg := app.getConfigSnapshot()
				if cfg.Hotkeys == nil {
					cfg.Hotkeys = map[string][]string{}
				}
				cfg.Hotkeys[fmt.Sprintf("goroutine-%d", i)] = []string{fmt.Sprintf("Ctrl+F%d", j%12+1)}
				if i%2 == 0 {
					app.setConfigSnapshot(cfg)
					continue
				}
				_ = app.getConfigSnapshot()
			}
		})
	}

	close(start)
	wg.Wait()

	final := app.getConfigSnapshot()
	if final.Log.Level == "" {
		t.Fatal("config corruption detected: log level should not be empty")
	}
	foundWriterKey := false
	for key := range final.Hotkeys {
		if strings.HasPrefix(key, "goroutine-") {
			foundWriterKey = true
			break
		}
	}
	if !foundWriterKey {
		t.Fatal("config snapshot should include at least one writer entry")
	}
}

func TestApplyConfigBeforeStartupOnlyStoresSnapshot(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "")
	app := NewApp()
	cfg := config.DefaultConfig()
	cfg.Log.Level = "debug"
	app.applyConfig(cfg)

	if got := app.getConfigSnapshot().Log.Level; got != "debug" {
		t.Fatalf("snapshot log level = %q, want debug", got)
	}
	if got := app.logLevel.Level().String(); got != "DEBUG" {
		t.Fatalf("log level = %s, want DEBUG", got)
	}
}
