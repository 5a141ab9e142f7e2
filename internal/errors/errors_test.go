package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimeout struct{ timeout bool }

func (e *fakeTimeout) Error() string   { return "deadline exceeded" }
func (e *fakeTimeout) Timeout() bool   { return e.timeout }
func (e *fakeTimeout) Temporary() bool { return e.timeout }

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(ErrChunkTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("chunk 3: %w", ErrChunkTimeout)))
	assert.True(t, IsTimeout(&fakeTimeout{timeout: true}))
	assert.False(t, IsTimeout(&fakeTimeout{timeout: false}))
	assert.False(t, IsTimeout(New("boom")))
	assert.False(t, IsTimeout(nil))
}

func TestIsProtocol(t *testing.T) {
	err := Protocol("decode request", New("unknown tag 0x7f"))
	assert.True(t, IsProtocol(err))
	assert.True(t, IsProtocol(fmt.Errorf("session: %w", err)))
	assert.False(t, IsProtocol(New("boom")))

	assert.Contains(t, err.Error(), "decode request")
	assert.Contains(t, err.Error(), "unknown tag")
}

func TestProtocolfUnwrap(t *testing.T) {
	err := Protocolf("read frame", "payload of %d bytes exceeds limit", 1<<30)
	require.True(t, IsProtocol(err))
	assert.Contains(t, Unwrap(err).Error(), "exceeds limit")
}

func TestWrapRetryability(t *testing.T) {
	timeout := Wrap("dial", "127.0.0.1:9090", &fakeTimeout{timeout: true})
	assert.True(t, timeout.Retryable)
	assert.True(t, IsRetryable(timeout))
	assert.Contains(t, timeout.Error(), "retryable")

	fatal := Wrap("dial", "127.0.0.1:9090", New("connection refused"))
	assert.False(t, fatal.Retryable)
	assert.False(t, IsRetryable(fatal))
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{
		Field:   "root",
		Value:   "/no/such",
		Message: "cannot stat sandbox root",
		Hint:    "create the directory first",
	}
	assert.Contains(t, err.Error(), "--root=/no/such")
	assert.Contains(t, err.Error(), "hint: create the directory first")

	bare := &ConfigError{Field: "operation", Message: "client mode requires an operation"}
	assert.NotContains(t, bare.Error(), "hint:")
}
