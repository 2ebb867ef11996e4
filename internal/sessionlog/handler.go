// Package sessionlog tees warnings and errors out of the slog pipeline, so
// the key feed can show them next to key activity.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"
)

// Entry is one forwarded record. Attrs holds attributes bound with
// WithAttrs followed by the record's own, keys qualified by group.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Source  string
	Attrs   []slog.Attr
}

// Text renders the entry as `message key=value ...`.
func (e Entry) Text() string {
	if len(e.Attrs) == 0 {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Message)
	for _, a := range e.Attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	return b.String()
}

// ForwardFunc receives entries at or above the tee threshold.
type ForwardFunc func(Entry)

// LogSink is a destination for rendered log lines.
type LogSink interface {
	PublishLog(level slog.Level, message string)
}

// ToSink adapts sink to a ForwardFunc.
func ToSink(sink LogSink) ForwardFunc {
	return func(e Entry) {
		sink.PublishLog(e.Level, e.Text())
	}
}

// TeeHandler delegates every record to base and additionally forwards
// records at or above minLevel.
type TeeHandler struct {
	base     slog.Handler
	forward  ForwardFunc
	minLevel slog.Level
	group    string
	attrs    []slog.Attr
}

// NewTeeHandler wraps base. A nil forward makes the handler a pass-through.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, forward ForwardFunc) *TeeHandler {
	return &TeeHandler{
		base:     base,
		forward:  forward,
		minLevel: minLevel,
	}
}

// Enabled defers to base; minLevel only gates forwarding.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle writes the record to base, then forwards it when eligible. The
// forward runs even if base fails; base's error is returned.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.forward == nil || record.Level < h.minLevel {
		return err
	}

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Source:  h.group,
		Attrs:   slices.Clone(h.attrs),
	}
	record.Attrs(func(a slog.Attr) bool {
		entry.Attrs = append(entry.Attrs, h.qualify(a))
		return true
	})

	func() {
		defer func() {
			if r := recover(); r != nil {
				// stderr, not slog: logging here would re-enter this handler.
				fmt.Fprintf(os.Stderr, "[session-log] forward panicked: %v\n%s\n", r, debug.Stack())
			}
		}()
		h.forward(entry)
	}()
	return err
}

// WithAttrs binds attrs on base and on forwarded entries.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	next.base = h.base.WithAttrs(attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return next
}

// WithGroup nests subsequent attributes under name.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.base = h.base.WithGroup(name)
	if h.group == "" {
		next.group = name
	} else {
		next.group = h.group + "." + name
	}
	return next
}

func (h *TeeHandler) clone() *TeeHandler {
	return &TeeHandler{
		base:     h.base,
		forward:  h.forward,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    slices.Clip(h.attrs),
	}
}

func (h *TeeHandler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" {
		return a
	}
	return slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
}
