package transfer

import (
	"fmt"
	"io"

	"fileshell/internal/errors"
	"fileshell/internal/proto"
)

// ── Receiving half ───────────────────────────────────────────────────

// Verdict classifies an arriving chunk against the expected sequence.
type Verdict int

const (
	// VerdictApplied: the chunk carried the expected id and its payload
	// was consumed. Acknowledge it.
	VerdictApplied Verdict = iota
	// VerdictDuplicate: the chunk was already accepted (its ack got
	// lost). Re-acknowledge without re-applying the payload.
	VerdictDuplicate
	// VerdictFuture: the chunk is ahead of the expected id. Discard it
	// silently; the sender will retransmit in order.
	VerdictFuture
)

// Receiver reassembles a chunked transfer. Chunk ids must arrive
// strictly in sequence starting at 0; the receiver only ever advances
// by exactly one id per newly accepted chunk, which makes sender
// retransmission idempotent.
type Receiver struct {
	w        io.Writer
	size     uint64 // advertised total, 0 if unknown
	next     uint32
	received uint64
	complete bool
}

// NewReceiver returns a Receiver writing accepted payloads to w.
// size is the advertised transfer size (informational; termination is
// signalled by the last-chunk flag, never inferred from byte counts).
func NewReceiver(w io.Writer, size uint64) *Receiver {
	return &Receiver{w: w, size: size}
}

// Accept classifies the chunk and, when it is the expected one, writes
// its payload. A write failure aborts the transfer: the error is
// returned and the receiver's state does not advance.
func (r *Receiver) Accept(id uint32, data []byte, last bool) (Verdict, error) {
	if r.complete {
		// The final chunk's ack may have been lost; keep re-acking it.
		if id < r.next {
			return VerdictDuplicate, nil
		}
		return VerdictFuture, nil
	}
	switch {
	case id < r.next:
		return VerdictDuplicate, nil
	case id > r.next:
		return VerdictFuture, nil
	}

	if len(data) > 0 {
		if _, err := r.w.Write(data); err != nil {
			return VerdictApplied, fmt.Errorf("apply chunk %d: %w", id, err)
		}
	}
	r.next++
	r.received += uint64(len(data))
	if last {
		r.complete = true
	}
	return VerdictApplied, nil
}

// Next returns the next expected chunk id.
func (r *Receiver) Next() uint32 { return r.next }

// Received returns the byte count accepted so far.
func (r *Receiver) Received() uint64 { return r.received }

// Complete reports whether the last chunk has been accepted.
func (r *Receiver) Complete() bool { return r.complete }

// ── Sending half (request-driven) ────────────────────────────────────

// ErrChunkGone is returned by a Chunker asked for an id outside the
// resend window (anything other than the current or previous chunk).
var ErrChunkGone = errors.New("requested chunk is outside the resend window")

// Chunker cuts a reader into sequenced chunks on demand. It keeps the
// most recently produced chunk so a re-request (the requester's ack or
// our reply was lost) can be served byte-identically without seeking.
type Chunker struct {
	r     io.Reader
	size  uint64
	next  uint32
	sent  uint64
	cache *proto.FileChunk
	done  bool
}

// NewChunker returns a Chunker over r, whose advertised size is size.
func NewChunker(r io.Reader, size uint64) *Chunker {
	return &Chunker{r: r, size: size}
}

// Chunk produces the chunk with the given id. Requesting the current
// id reads fresh data and advances; re-requesting the previous id
// replays the cached chunk. Anything else fails with ErrChunkGone.
func (c *Chunker) Chunk(id uint32) (proto.FileChunk, error) {
	if c.cache != nil && id == c.cache.ID {
		return *c.cache, nil
	}
	if id != c.next || c.done {
		return proto.FileChunk{}, ErrChunkGone
	}

	buf := make([]byte, proto.MaxChunkSize)
	n, err := io.ReadFull(c.r, buf)
	switch err {
	case nil, io.ErrUnexpectedEOF, io.EOF:
		// A short (or empty) read is the natural end of the source.
	default:
		return proto.FileChunk{}, fmt.Errorf("read chunk %d: %w", id, err)
	}

	c.sent += uint64(n)
	last := n < proto.MaxChunkSize || c.sent == c.size
	chunk := proto.FileChunk{ID: id, Data: buf[:n], Last: last}
	c.cache = &chunk
	c.next++
	c.done = last
	return chunk, nil
}

// Done reports whether the last chunk has been produced.
func (c *Chunker) Done() bool { return c.done }

// Sent returns the byte count produced so far.
func (c *Chunker) Sent() uint64 { return c.sent }
