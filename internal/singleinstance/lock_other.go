//go:build !windows

package singleinstance

import (
	"errors"
	"sync"
)

// Without a session-wide mutex the lock only guards the current process.
var (
	heldMu sync.Mutex
	held   = make(map[string]bool)
)

// Lock is a process-local lock.
type Lock struct {
	name string
}

// TryLock takes name unless this process already holds it.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	heldMu.Lock()
	defer heldMu.Unlock()
	if held[name] {
		return nil, ErrAlreadyRunning
	}
	held[name] = true
	return &Lock{name: name}, nil
}

// Release frees the lock. Safe on a nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.name == "" {
		return nil
	}
	heldMu.Lock()
	delete(held, l.name)
	heldMu.Unlock()
	l.name = ""
	return nil
}
