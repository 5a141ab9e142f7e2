// Package arbiter enforces the single-active-client policy of the
// stream transport.
//
// The arbiter is a two-state machine, Idle and Busy. A connection wins
// the session by an atomic Idle→Busy transition; everyone else is
// answered with a rejection and closed before a session ever exists.
package arbiter

import "sync/atomic"

const (
	idle int32 = 0
	busy int32 = 1
)

// Arbiter holds the process-wide stream-client slot.
type Arbiter struct {
	state atomic.Int32
}

// New returns an Arbiter in the Idle state.
func New() *Arbiter {
	return &Arbiter{}
}

// TryAcquire attempts the Idle→Busy transition. Exactly one of any
// number of concurrent callers succeeds.
func (a *Arbiter) TryAcquire() bool {
	return a.state.CompareAndSwap(idle, busy)
}

// Release returns the arbiter to Idle. It is called when the owning
// connection disconnects; releasing an already-idle arbiter is a no-op.
func (a *Arbiter) Release() {
	a.state.Store(idle)
}

// Busy reports whether a client currently owns the slot.
func (a *Arbiter) Busy() bool {
	return a.state.Load() == busy
}
