// Package session tracks per-client conversational state: current
// working directory, in-progress transfer, and last activity.
//
// On the stream transport a session lives exactly as long as its
// connection. On the datagram transport sessions are keyed by source
// address and owned by a Manager, which evicts them after an idle
// timeout since a datagram client may vanish without signaling.
package session

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileshell/internal/transfer"
)

// Direction tells an active transfer's orientation.
type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Transfer is the context attached to a session while an upload or
// download is in progress. It is exclusively owned by its session and
// never shared.
type Transfer struct {
	Name      string
	Size      uint64
	Direction Direction

	file *os.File
	// Exactly one of these is set, matching Direction.
	Recv    *transfer.Receiver
	Chunker *transfer.Chunker
}

// NewUpload builds an upload context writing into f.
func NewUpload(f *os.File, name string, size uint64) *Transfer {
	return &Transfer{
		Name:      name,
		Size:      size,
		Direction: Upload,
		file:      f,
		Recv:      transfer.NewReceiver(f, size),
	}
}

// NewDownload builds a download context reading from f.
func NewDownload(f *os.File, name string, size uint64) *Transfer {
	return &Transfer{
		Name:      name,
		Size:      size,
		Direction: Download,
		file:      f,
		Chunker:   transfer.NewChunker(f, size),
	}
}

// File exposes the underlying handle for streaming-mode transfers.
func (t *Transfer) File() *os.File { return t.file }

// Done reports whether the transfer has moved its final chunk.
func (t *Transfer) Done() bool {
	switch {
	case t == nil:
		return true
	case t.Recv != nil:
		return t.Recv.Complete()
	case t.Chunker != nil:
		return t.Chunker.Done()
	}
	return t.file == nil
}

// Close flushes (uploads) and releases the file handle. A partial
// file stays on disk; nothing is rolled back.
func (t *Transfer) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	if t.Direction == Upload {
		_ = t.file.Sync()
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Session is the server-side record of one client conversation.
// Callers must hold the session's lock while reading or mutating its
// fields; the Manager's expiry sweep takes the same lock before
// evicting, so an in-flight request never races the sweeper.
type Session struct {
	mu sync.Mutex

	Key string // connection remote addr (stream) or source addr (datagram)
	ID  string // short correlation id for logs

	CWD      string // root-relative, normalized, never ..-escaped
	Transfer *Transfer

	lastSeen time.Time
}

// New returns a detached session for a stream connection. Stream
// sessions live exactly as long as their connection and never pass
// through a Manager.
func New(key string) *Session {
	return newSession(key, time.Now())
}

func newSession(key string, now time.Time) *Session {
	return &Session{
		Key:      key,
		ID:       uuid.NewString()[:8],
		lastSeen: now,
	}
}

// Lock acquires the session's exclusion scope.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases it.
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records activity. Callers hold the lock.
func (s *Session) Touch(now time.Time) { s.lastSeen = now }

// IdleSince reports how long the session has been quiet. Callers hold
// the lock.
func (s *Session) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.lastSeen)
}

// CloseTransfer releases any in-progress transfer. Callers hold the
// lock.
func (s *Session) CloseTransfer() {
	if s.Transfer != nil {
		_ = s.Transfer.Close()
		s.Transfer = nil
	}
}
