package talent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rigela/internal/eventcore"
)

const (
	// lockAnnounceWindow suppresses repeated lock announcements.
	lockAnnounceWindow = 300 * time.Millisecond
	// customAnnounceWindow suppresses identical notifications from other
	// processes.
	customAnnounceWindow = time.Second
)

// Deduper is the de-duplication half of the event hub.
type Deduper interface {
	ShouldIgnore(fingerprint string, window time.Duration) bool
}

// PointReader speaks mouse positions; it satisfies commander.MouseReader.
type PointReader struct {
	Performer Performer
}

// ReadAt announces the position.
func (r PointReader) ReadAt(ctx context.Context, x, y int32) {
	if r.Performer == nil {
		return
	}
	if err := r.Performer.Speak(ctx, fmt.Sprintf("%d, %d", x, y)); err != nil {
		slog.Debug("[DEBUG-EVENT] mouse position not spoken", "error", err)
	}
}

// EventObserver handles cursor and lock key events: cursor keys become the
// last pressed key, lock keys are announced once per burst. Custom events
// speak their payload unless an identical one was spoken within a second.
func EventObserver(d Deps, dedup Deduper) eventcore.Observer {
	return func(ctx context.Context, ev eventcore.Event) {
		switch ev.Kind {
		case eventcore.KindCursorKey:
			if d.Host != nil {
				d.Host.SetLastPressedKey(ev.Key)
			}
		case eventcore.KindLockKey:
			if dedup != nil && dedup.ShouldIgnore("lock:"+ev.Key.String(), lockAnnounceWindow) {
				return
			}
			if err := d.speak(ctx, ev.Key.String()); err != nil {
				slog.Debug("[DEBUG-EVENT] lock key not spoken", "key", ev.Key, "error", err)
			}
		case eventcore.KindCustom:
			if ev.Payload == "" {
				return
			}
			if dedup != nil && dedup.ShouldIgnore(ev.Fingerprint(), customAnnounceWindow) {
				return
			}
			if err := d.speak(ctx, ev.Payload); err != nil {
				slog.Debug("[DEBUG-EVENT] notification not spoken", "name", ev.Name, "error", err)
			}
		}
	}
}
