// Package errors provides domain-specific error types for fileshell.
//
// These types carry structured context (operation, address, retryability)
// that helps callers decide how to handle failures and map them onto the
// wire protocol's Error responses.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrServerBusy is returned when the stream transport already has an
	// active client and a second connection is rejected.
	ErrServerBusy = errors.New("server busy: another client is connected")

	// ErrNoActiveTransfer is returned for a chunk request arriving while
	// the session has no transfer in progress.
	ErrNoActiveTransfer = errors.New("no active transfer")

	// ErrTransferActive is returned when a session tries to start a second
	// transfer while one is still in progress.
	ErrTransferActive = errors.New("transfer already active")

	// ErrChunkTimeout signals that no acknowledgment arrived within the
	// per-chunk wait. The sender retransmits; it is only surfaced once the
	// retry budget is exhausted.
	ErrChunkTimeout = errors.New("chunk acknowledgment timed out")

	// ── Filesystem adapter failures ──────────────────────────────────

	// ErrPathEscape means a resolved path would leave the sandbox root.
	ErrPathEscape = errors.New("path escapes sandbox root")

	ErrNotFound         = errors.New("no such file or directory")
	ErrNotADirectory    = errors.New("not a directory")
	ErrAlreadyExists    = errors.New("already exists")
	ErrPermissionDenied = errors.New("permission denied")
)

// ── Structured error types ───────────────────────────────────────────

// ProtocolError represents a malformed or undecodable wire frame.
// The connection (or datagram) that produced it is dropped; session
// state is never touched.
type ProtocolError struct {
	Op  string // "read frame", "decode request", "decode response"
	Err error  // underlying decode failure
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Protocol creates a ProtocolError for the given decode/framing operation.
func Protocol(op string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Err: err}
}

// Protocolf creates a ProtocolError from a format string.
func Protocolf(op, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTimeout reports whether err represents an expired I/O deadline.
// Chunk retransmission keys off this: timeouts are retried, everything
// else aborts the transfer.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrChunkTimeout) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use fileshell/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
