// Package eventcore deduplicates bursty notifications and fans events out to
// observers on the task runtime.
package eventcore

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"rigela/internal/workerutil"
)

// Spawner schedules fire-and-forget work.
type Spawner interface {
	Spawn(name string, fn workerutil.Task) error
}

// Observer receives published events on a runtime goroutine.
type Observer func(ctx context.Context, ev Event)

type fingerprint struct {
	key  string
	seen time.Time
}

type observerEntry struct {
	id uuid.UUID
	fn Observer
}

// Core owns the dedup list and the observer set.
type Core struct {
	spawner Spawner
	now     func() time.Time
	limit   int

	filterMu sync.Mutex
	order    *list.List // of *fingerprint, least recently refreshed first
	index    map[string]*list.Element

	obsMu     sync.RWMutex
	observers []observerEntry
}

// Option configures a Core.
type Option func(*Core)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxFingerprints caps the dedup list. Zero keeps it unbounded. When the
// cap is exceeded the least recently refreshed fingerprint is evicted.
func WithMaxFingerprints(n int) Option {
	return func(c *Core) {
		if n > 0 {
			c.limit = n
		}
	}
}

// New returns a Core that dispatches on spawner.
func New(spawner Spawner, opts ...Option) *Core {
	c := &Core{
		spawner: spawner,
		now:     time.Now,
		order:   list.New(),
		index:   make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldIgnore reports whether an event with this fingerprint was seen less
// than window ago. A suppressed call leaves the recorded time untouched. A
// non-suppressed call records the fingerprint at the current time, replacing
// any earlier entry, and returns false.
func (c *Core) ShouldIgnore(key string, window time.Duration) bool {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()

	now := c.now()
	if el, ok := c.index[key]; ok {
		fp := el.Value.(*fingerprint)
		if now.Sub(fp.seen) < window {
			return true
		}
		c.order.Remove(el)
		delete(c.index, key)
	}

	c.index[key] = c.order.PushBack(&fingerprint{key: key, seen: now})
	if c.limit > 0 {
		for c.order.Len() > c.limit {
			oldest := c.order.Front()
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(*fingerprint).key)
		}
	}
	return false
}

// Fingerprints returns the number of recorded fingerprints.
func (c *Core) Fingerprints() int {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	return c.order.Len()
}

// Subscribe registers an observer and returns its handle.
func (c *Core) Subscribe(fn Observer) uuid.UUID {
	id := uuid.New()
	c.obsMu.Lock()
	c.observers = append(c.observers, observerEntry{id: id, fn: fn})
	c.obsMu.Unlock()
	return id
}

// Unsubscribe removes an observer. It reports whether the handle was known.
func (c *Core) Unsubscribe(id uuid.UUID) bool {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for i, o := range c.observers {
		if o.id == id {
			c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Publish schedules one runtime task that delivers ev to every observer
// registered at the time of the call. It never blocks on observers.
func (c *Core) Publish(ev Event) {
	c.obsMu.RLock()
	observers := make([]Observer, len(c.observers))
	for i, o := range c.observers {
		observers[i] = o.fn
	}
	c.obsMu.RUnlock()
	if len(observers) == 0 {
		return
	}

	err := c.spawner.Spawn("event:"+ev.Kind.String(), func(ctx context.Context) {
		for _, fn := range observers {
			fn(ctx, ev)
		}
	})
	if err != nil {
		slog.Debug("[DEBUG-EVENT] event dropped", "kind", ev.Kind, "error", err)
	}
}
