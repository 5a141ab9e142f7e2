package transfer

import (
	"context"
	"fmt"
	"io"

	"fileshell/internal/errors"
	"fileshell/internal/metrics"
	"fileshell/internal/proto"
	"fileshell/internal/retry"
	"fileshell/util"
)

// RoundTripper sends one encoded request frame and waits — bounded by
// the transport's read deadline — for the peer's reply. A deadline
// expiry must surface as a net.Error timeout so the engine can tell a
// lost datagram from a fatal failure.
type RoundTripper interface {
	RoundTrip(frame []byte) (proto.Response, error)
}

// Engine drives chunked-mode transfers over an unreliable transport.
// Each chunk is retransmitted on ack timeout up to Attempts times;
// retransmission is idempotent because the receiving side only
// advances on a newly expected id.
type Engine struct {
	Attempts int // per-chunk retry budget, including the first send
	Logger   *util.Logger
	Metrics  *metrics.Collector
}

// Upload pushes size bytes from src through rt as sequenced
// UploadChunk requests, waiting for the matching ChunkAck after each.
// It returns the number of payload bytes acknowledged.
func (e *Engine) Upload(ctx context.Context, rt RoundTripper, src io.Reader, size uint64) (uint64, error) {
	chunker := NewChunker(src, size)
	var sent uint64

	for id := uint32(0); ; id++ {
		chunk, err := chunker.Chunk(id)
		if err != nil {
			return sent, err
		}

		frame, err := proto.EncodeRequest(proto.UploadChunk{
			ID:   chunk.ID,
			Data: chunk.Data,
			Last: chunk.Last,
		})
		if err != nil {
			return sent, err
		}

		if err := e.deliver(ctx, rt, frame, chunk.ID); err != nil {
			return sent, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		sent += uint64(len(chunk.Data))
		e.Logger.Debug("chunk %d acked (%d/%d bytes)", chunk.ID, sent, size)

		if chunk.Last {
			return sent, nil
		}
	}
}

// deliver sends one pre-encoded chunk frame until its ack arrives or
// the retry budget runs out. The identical frame is retransmitted on
// every attempt.
func (e *Engine) deliver(ctx context.Context, rt RoundTripper, frame []byte, id uint32) error {
	loop := &retry.Loop{MaxAttempts: e.Attempts}
	return loop.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			e.Metrics.ChunkRetransmitted()
			e.Logger.Verbose("retransmitting chunk %d (attempt %d/%d)", id, attempt, e.Attempts)
		}

		resp, err := rt.RoundTrip(frame)
		if err != nil {
			if errors.IsTimeout(err) {
				return errors.ErrChunkTimeout
			}
			return retry.Permanent(err)
		}

		switch r := resp.(type) {
		case proto.ChunkAck:
			if r.ID == id {
				return nil
			}
			// A stale ack for an earlier chunk: our previous send was
			// duplicated somewhere. Resend and wait for the right one.
			return errors.ErrChunkTimeout
		case proto.Error:
			return retry.Permanent(fmt.Errorf("server: %s", r.Message))
		default:
			return retry.Permanent(fmt.Errorf("unexpected response %T to chunk %d", resp, id))
		}
	})
}

// Download pulls chunks through rt with sequenced DownloadChunk
// requests and reassembles them into dst. It returns the number of
// payload bytes written.
func (e *Engine) Download(ctx context.Context, rt RoundTripper, dst io.Writer) (uint64, error) {
	recv := NewReceiver(dst, 0)

	for !recv.Complete() {
		id := recv.Next()
		frame, err := proto.EncodeRequest(proto.DownloadChunk{ID: id})
		if err != nil {
			return recv.Received(), err
		}

		if err := e.fetch(ctx, rt, frame, recv, id); err != nil {
			return recv.Received(), fmt.Errorf("chunk %d: %w", id, err)
		}
		e.Logger.Debug("chunk %d received (%d bytes total)", id, recv.Received())
	}
	return recv.Received(), nil
}

// fetch requests one chunk until it is applied or the budget runs out.
func (e *Engine) fetch(ctx context.Context, rt RoundTripper, frame []byte, recv *Receiver, id uint32) error {
	loop := &retry.Loop{MaxAttempts: e.Attempts}
	return loop.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			e.Metrics.ChunkRetransmitted()
			e.Logger.Verbose("re-requesting chunk %d (attempt %d/%d)", id, attempt, e.Attempts)
		}

		resp, err := rt.RoundTrip(frame)
		if err != nil {
			if errors.IsTimeout(err) {
				return errors.ErrChunkTimeout
			}
			return retry.Permanent(err)
		}

		switch r := resp.(type) {
		case proto.FileChunk:
			verdict, err := recv.Accept(r.ID, r.Data, r.Last)
			if err != nil {
				// Local write failure: never retried.
				return retry.Permanent(err)
			}
			switch verdict {
			case VerdictApplied:
				return nil
			default:
				// A stale or future chunk (delayed datagram). Ask again.
				return errors.ErrChunkTimeout
			}
		case proto.Error:
			return retry.Permanent(fmt.Errorf("server: %s", r.Message))
		default:
			return retry.Permanent(fmt.Errorf("unexpected response %T to chunk request %d", resp, id))
		}
	})
}
