package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultTCPAddr is the stream listener's bind address.
	DefaultTCPAddr = ":9090"

	// DefaultUDPAddr is the datagram listener's bind address.
	DefaultUDPAddr = ":9091"

	// DefaultChunkTimeout is how long a chunk sender waits for an
	// acknowledgment before retransmitting.
	DefaultChunkTimeout = 5 * time.Second

	// DefaultChunkRetries is how many times a chunk is sent before the
	// transfer is abandoned.
	DefaultChunkRetries = 5

	// DefaultIdleTimeout is how long a datagram session may sit quiet
	// before the sweeper reclaims it.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultSweepInterval is how often idle sessions are checked.
	DefaultSweepInterval = 30 * time.Second

	// DefaultConnTimeout is the client-side dial timeout.
	DefaultConnTimeout = 30 * time.Second
)
