// Package config defines the runtime configuration for fileshell and
// validates it before the server or client starts.
package config

import (
	"net"
	"os"
	"time"

	"fileshell/internal/errors"
)

// Config holds every tuneable for a single fileshell invocation.
type Config struct {
	// ── Mode ─────────────────────────────────────────────────────────
	Listen bool // -l: run the server
	UDP    bool // -u: client talks datagram instead of stream

	// ── Addresses ────────────────────────────────────────────────────
	TCPAddr string // server bind / client dial address (stream)
	UDPAddr string // server bind / client dial address (datagram)

	// ── Server ───────────────────────────────────────────────────────
	Root          string // sandbox root directory
	IdleTimeout   time.Duration
	SweepInterval time.Duration

	// ── Client ───────────────────────────────────────────────────────
	ChunkTimeout time.Duration
	ChunkRetries int
	Timeout      time.Duration // dial timeout
	Op           string        // ls, cd, up, mkdir, cp, put, get
	Args         []string      // operands for Op

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	addr := c.TCPAddr
	if c.UDP {
		addr = c.UDPAddr
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return &errors.ConfigError{
			Field:   "address",
			Value:   addr,
			Message: "not a host:port pair",
			Hint:    "use --tcp host:port or --udp host:port",
		}
	}

	if c.Listen {
		if c.Root == "" {
			return &errors.ConfigError{
				Field:   "root",
				Message: "server mode requires a sandbox root",
				Hint:    "pass -r/--root <dir>",
			}
		}
		info, err := os.Stat(c.Root)
		if err != nil {
			return &errors.ConfigError{
				Field:   "root",
				Value:   c.Root,
				Message: "cannot stat sandbox root",
				Hint:    "create the directory first",
			}
		}
		if !info.IsDir() {
			return &errors.ConfigError{
				Field:   "root",
				Value:   c.Root,
				Message: "sandbox root is not a directory",
			}
		}
		if c.Op != "" {
			return &errors.ConfigError{
				Field:   "operation",
				Value:   c.Op,
				Message: "server mode takes no operation",
				Hint:    "drop -l to run as a client",
			}
		}
		return nil
	}

	if c.Op == "" {
		return &errors.ConfigError{
			Field:   "operation",
			Message: "client mode requires an operation",
			Hint:    "one of: ls, cd, up, mkdir, cp, put, get",
		}
	}
	if err := validateOp(c.Op, len(c.Args)); err != nil {
		return err
	}

	if c.ChunkRetries < 1 {
		return &errors.ConfigError{
			Field:   "chunk-retries",
			Message: "must be at least 1",
		}
	}
	return nil
}

// opArity maps each client operation to its required operand count.
var opArity = map[string]int{
	"ls":    0,
	"up":    0,
	"cd":    1,
	"mkdir": 1,
	"get":   1,
	"cp":    2,
	"put":   1, // local path; optional destination directory
}

func validateOp(op string, argc int) error {
	want, ok := opArity[op]
	if !ok {
		return &errors.ConfigError{
			Field:   "operation",
			Value:   op,
			Message: "unknown operation",
			Hint:    "one of: ls, cd, up, mkdir, cp, put, get",
		}
	}
	// put accepts an optional second operand (destination directory).
	if argc == want || (op == "put" && argc == 2) {
		return nil
	}
	return &errors.ConfigError{
		Field:   "operation",
		Value:   op,
		Message: "wrong number of arguments",
	}
}
