package main

import (
	"context"

	"rigela/internal/eventcore"
	"rigela/internal/sessionlog"
)

// forwardTalentEvent mirrors talent dispatches onto the key feed.
func (a *App) forwardTalentEvent(_ context.Context, ev eventcore.Event) {
	if ev.Kind != eventcore.KindTalent {
		return
	}
	if hub := a.feed.Load(); hub != nil {
		hub.PublishTalent(ev.Name, ev.Payload)
	}
}

// forwardLogEntry is the log tee target. It runs inside slog handlers on
// arbitrary goroutines, so it only reads the feed pointer.
func (a *App) forwardLogEntry(e sessionlog.Entry) {
	if hub := a.feed.Load(); hub != nil {
		hub.PublishLog(e.Level, e.Text())
	}
}
