// Package singleinstance keeps a second RigelA from installing hooks while
// one is already running for the same user.
package singleinstance

import (
	"errors"

	"rigela/internal/userutil"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the
// lock.
var ErrAlreadyRunning = errors.New("another RigelA instance is already running")

const mutexPrefix = `Global\RigelA-`

// DefaultMutexName returns the per-user lock name, e.g. `Global\RigelA-alice`.
func DefaultMutexName() string {
	return userutil.ObjectName(mutexPrefix)
}
