package testutil

import (
	"testing"
	"time"
)

// Ptr returns a pointer to v, for struct literals with pointer fields.
//
//	testutil.Ptr(true)   // *bool
//	testutil.Ptr(42)     // *int
func Ptr[T any](v T) *T { return &v }

// WaitFor polls cond until it returns true or timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
