package sessionlog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

type entryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *entryRecorder) forward(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *entryRecorder) all() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

type errorHandler struct{ err error }

func (h *errorHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h *errorHandler) Handle(context.Context, slog.Record) error { return h.err }
func (h *errorHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *errorHandler) WithGroup(string) slog.Handler             { return h }

type sinkRecorder struct {
	levels   []slog.Level
	messages []string
}

func (s *sinkRecorder) PublishLog(level slog.Level, message string) {
	s.levels = append(s.levels, level)
	s.messages = append(s.messages, message)
}

func TestTeeHandlerForwardsByLevel(t *testing.T) {
	tests := []struct {
		name        string
		log         func(*slog.Logger)
		wantForward bool
		wantLevel   slog.Level
	}{
		{name: "error", log: func(l *slog.Logger) { l.Error("hook install failed") }, wantForward: true, wantLevel: slog.LevelError},
		{name: "warn", log: func(l *slog.Logger) { l.Warn("hook install failed") }, wantForward: true, wantLevel: slog.LevelWarn},
		{name: "info", log: func(l *slog.Logger) { l.Info("hook install failed") }},
		{name: "debug", log: func(l *slog.Logger) { l.Debug("hook install failed") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rec := &entryRecorder{}
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			tt.log(slog.New(NewTeeHandler(base, slog.LevelWarn, rec.forward)))

			if !strings.Contains(buf.String(), "hook install failed") {
				t.Fatalf("base handler did not receive record: %q", buf.String())
			}
			entries := rec.all()
			if !tt.wantForward {
				if len(entries) != 0 {
					t.Fatalf("forwarded %d entries, want 0", len(entries))
				}
				return
			}
			if len(entries) != 1 {
				t.Fatalf("forwarded %d entries, want 1", len(entries))
			}
			if entries[0].Level != tt.wantLevel || entries[0].Message != "hook install failed" {
				t.Fatalf("entry = %+v", entries[0])
			}
		})
	}
}

func TestTeeHandlerCollectsAttrs(t *testing.T) {
	rec := &entryRecorder{}
	logger := slog.New(NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn, rec.forward))

	logger.With("component", "config").WithGroup("reload").Warn("[WARN-CONFIG] reload failed", "path", "config.yaml")

	entries := rec.all()
	if len(entries) != 1 {
		t.Fatalf("forwarded %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.Source != "reload" {
		t.Errorf("Source = %q, want reload", got.Source)
	}
	if want := "[WARN-CONFIG] reload failed component=config reload.path=config.yaml"; got.Text() != want {
		t.Errorf("Text() = %q, want %q", got.Text(), want)
	}
}

func TestTeeHandlerWithAttrsDoesNotLeakBetweenChildren(t *testing.T) {
	rec := &entryRecorder{}
	root := slog.New(NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn, rec.forward)).With("a", 1)

	root.With("b", 2).Warn("first")
	root.With("c", 3).Warn("second")

	entries := rec.all()
	if len(entries) != 2 {
		t.Fatalf("forwarded %d entries, want 2", len(entries))
	}
	if entries[0].Text() != "first a=1 b=2" || entries[1].Text() != "second a=1 c=3" {
		t.Fatalf("texts = %q, %q", entries[0].Text(), entries[1].Text())
	}
}

func TestTeeHandlerNestedGroups(t *testing.T) {
	rec := &entryRecorder{}
	h := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn, rec.forward)
	slog.New(h).WithGroup("app").WithGroup("hook").Error("boom")

	entries := rec.all()
	if len(entries) != 1 || entries[0].Source != "app.hook" {
		t.Fatalf("entries = %+v, want Source app.hook", entries)
	}
}

func TestTeeHandlerWithGroupEmptyReturnsReceiver(t *testing.T) {
	h := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelInfo, nil)
	if h.WithGroup("") != slog.Handler(h) {
		t.Fatal("WithGroup(\"\") should return the receiver unchanged")
	}
	if h.WithAttrs(nil) != slog.Handler(h) {
		t.Fatal("WithAttrs(nil) should return the receiver unchanged")
	}
}

func TestTeeHandlerNilForward(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, nil)).Error("still logged")
	if !strings.Contains(buf.String(), "still logged") {
		t.Fatalf("base output = %q", buf.String())
	}
}

func TestTeeHandlerBaseErrorStillForwards(t *testing.T) {
	baseErr := errors.New("disk full")
	rec := &entryRecorder{}
	h := NewTeeHandler(&errorHandler{err: baseErr}, slog.LevelWarn, rec.forward)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "critical", 0))
	if !errors.Is(err, baseErr) {
		t.Fatalf("Handle() error = %v, want %v", err, baseErr)
	}
	if len(rec.all()) != 1 {
		t.Fatalf("forwarded %d entries, want 1", len(rec.all()))
	}
}

func TestToSink(t *testing.T) {
	sink := &sinkRecorder{}
	logger := slog.New(NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn, ToSink(sink)))

	logger.Warn("mouse hook failed", "error", "access denied")
	logger.Info("ignored")

	if len(sink.messages) != 1 {
		t.Fatalf("sink got %d messages, want 1", len(sink.messages))
	}
	if sink.levels[0] != slog.LevelWarn || sink.messages[0] != "mouse hook failed error=access denied" {
		t.Fatalf("sink got %v %q", sink.levels[0], sink.messages[0])
	}
}

func TestTeeHandlerForwardPanicWritesToStderr(t *testing.T) {
	origStderr := os.Stderr
	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stderr = writePipe
	t.Cleanup(func() {
		os.Stderr = origStderr
		_ = readPipe.Close()
		_ = writePipe.Close()
	})

	h := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelInfo, func(Entry) {
		panic("stderr panic test")
	})
	if handleErr := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0)); handleErr != nil {
		t.Fatalf("Handle() error = %v, want nil", handleErr)
	}
	_ = writePipe.Close()

	stderrBytes, readErr := io.ReadAll(readPipe)
	if readErr != nil {
		t.Fatalf("io.ReadAll(stderr) error = %v", readErr)
	}
	if !strings.Contains(string(stderrBytes), "[session-log] forward panicked: stderr panic test") {
		t.Fatalf("stderr output = %q, want panic diagnostic prefix", stderrBytes)
	}
}
