package commander

import (
	"context"
	"log/slog"

	"rigela/internal/eventcore"
	"rigela/internal/hook"
	"rigela/internal/keys"
)

// mouseMinDistanceSq is the squared distance a sample must move from the
// last accepted one to be read.
const mouseMinDistanceSq = 100

// HandleKey is the keyboard hook procedure. Every lock it takes is released
// before next is called.
func (c *Commander) HandleKey(ev hook.KeyEvent, next hook.Next) uintptr {
	k := keys.Decode(ev.VKCode, ev.Extended)
	wasPressed := c.tracker.Update(k, ev.Pressed)
	c.notifyListeners(k, ev.Pressed)

	if !ev.Pressed {
		if c.takeBlocked(k) {
			return hook.Swallow
		}
		return next()
	}

	if k != keys.VkNone {
		match, consumed := c.matcher.Match(c.tracker, k, !wasPressed)
		if consumed {
			c.setBlocked(k)
			if match.Talent != nil {
				c.dispatch(match)
			}
			return hook.Swallow
		}
	}

	if k != keys.VkNone && !k.IsModifier() {
		c.SetLastPressedKey(k)
	}
	if c.events != nil {
		switch {
		case k.IsCursorKey():
			c.events.Publish(eventcore.CursorKey(k))
		case k.IsLockKey() && !wasPressed:
			c.events.Publish(eventcore.LockKey(k, uint16(ev.VKCode)))
		}
	}
	return next()
}

// HandleMouse is the mouse hook procedure. Mouse events always pass
// through; moves at least 10px from the last accepted sample are forwarded
// to the MouseReader while mouse reading is on.
func (c *Commander) HandleMouse(ev hook.MouseEvent, next hook.Next) uintptr {
	if ev.Action != hook.MouseMove || !c.mouseRead.Load() {
		return next()
	}

	c.mouseMu.Lock()
	dx := int64(ev.X) - int64(c.lastX)
	dy := int64(ev.Y) - int64(c.lastY)
	accepted := dx*dx+dy*dy >= mouseMinDistanceSq
	if accepted {
		c.lastX, c.lastY = ev.X, ev.Y
	}
	c.mouseMu.Unlock()

	if accepted {
		if r := c.mouseReader.Load(); r != nil {
			reader, x, y := *r, ev.X, ev.Y
			c.spawn("mouse:read", func(ctx context.Context) { reader.ReadAt(ctx, x, y) })
		}
	}
	return next()
}

func (c *Commander) dispatch(m Match) {
	t, chord := m.Talent, m.Chord
	slog.Debug("[DEBUG-CMD] talent matched", "talent", t.ID(), "chord", chord.String())
	c.spawn("talent:"+t.ID(), func(ctx context.Context) {
		if err := t.Perform(ctx); err != nil {
			slog.Warn("[DEBUG-CMD] talent failed", "talent", t.ID(), "error", err)
		}
	})
	if c.events != nil {
		c.events.Publish(eventcore.TalentPerformed(t.ID(), chord.String()))
	}
}

func (c *Commander) notifyListeners(k keys.Keys, pressed bool) {
	c.listenersMu.RLock()
	var fns []KeyListener
	for _, l := range c.listeners {
		if l.wants(k) {
			fns = append(fns, l.fn)
		}
	}
	c.listenersMu.RUnlock()
	if len(fns) == 0 {
		return
	}
	c.spawn("key:listeners", func(context.Context) {
		for _, fn := range fns {
			fn(k, pressed)
		}
	})
}

func (c *Commander) spawn(name string, fn func(ctx context.Context)) {
	if c.spawner == nil {
		return
	}
	if err := c.spawner.Spawn(name, fn); err != nil {
		slog.Debug("[DEBUG-CMD] task not scheduled", "task", name, "error", err)
	}
}

func (c *Commander) setBlocked(k keys.Keys) {
	c.blockedMu.Lock()
	c.blocked[k] = struct{}{}
	c.blockedMu.Unlock()
}

func (c *Commander) takeBlocked(k keys.Keys) bool {
	c.blockedMu.Lock()
	defer c.blockedMu.Unlock()
	if _, ok := c.blocked[k]; ok {
		delete(c.blocked, k)
		return true
	}
	return false
}
