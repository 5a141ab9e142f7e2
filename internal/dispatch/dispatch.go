// Package dispatch maps decoded requests onto the filesystem adapter
// and transfer engine, using the caller's session state.
//
// Routing is pure: one request in, at most one response out. The
// transport layers own everything around it — framing, raw streaming
// phases, and delivery.
package dispatch

import (
	"fileshell/internal/errors"
	"fileshell/internal/fsbox"
	"fileshell/internal/metrics"
	"fileshell/internal/proto"
	"fileshell/internal/session"
	"fileshell/internal/transfer"
	"fileshell/util"
)

// Mode selects the transport semantics the dispatcher serves.
type Mode int

const (
	// Stream: transfers move raw bytes on the connection; chunk
	// messages are a protocol violation.
	Stream Mode = iota
	// Datagram: transfers move as sequenced, acknowledged chunks.
	Datagram
)

// Dispatcher routes requests for one transport.
type Dispatcher struct {
	fs      *fsbox.Box
	mode    Mode
	logger  *util.Logger
	metrics *metrics.Collector
}

// New returns a Dispatcher over the given sandbox.
func New(fs *fsbox.Box, mode Mode, logger *util.Logger, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{fs: fs, mode: mode, logger: logger, metrics: m}
}

// Handle produces the response for req against session s. The caller
// holds the session's lock. A nil response means deliberate silence:
// an out-of-sequence datagram chunk is discarded without a reply.
func (d *Dispatcher) Handle(s *session.Session, req proto.Request) proto.Response {
	switch r := req.(type) {
	case proto.List:
		entries, err := d.fs.List(s.CWD)
		if err != nil {
			return d.fail(s, "list", err)
		}
		return proto.Listing{Entries: entries}

	case proto.CdUp:
		cwd, err := d.fs.Up(s.CWD)
		if err != nil {
			return d.fail(s, "cd ..", err)
		}
		s.CWD = cwd
		return proto.Ok{}

	case proto.Cd:
		cwd, err := d.fs.ChangeDir(s.CWD, r.Path)
		if err != nil {
			return d.fail(s, "cd", err)
		}
		s.CWD = cwd
		return proto.Ok{}

	case proto.Mkdir:
		if err := d.fs.MakeDir(s.CWD, r.Name); err != nil {
			return d.fail(s, "mkdir", err)
		}
		return proto.Ok{}

	case proto.Copy:
		n, err := d.fs.Copy(s.CWD, r.Src, r.Dst)
		if err != nil {
			return d.fail(s, "copy", err)
		}
		return proto.CopyDone{Bytes: uint64(n)}

	case proto.UploadStart:
		return d.uploadStart(s, r)

	case proto.DownloadStart:
		return d.downloadStart(s, r)

	case proto.UploadChunk:
		if d.mode != Datagram {
			return d.fail(s, "upload chunk", errors.New("chunk messages are datagram-only"))
		}
		return d.uploadChunk(s, r)

	case proto.DownloadChunk:
		if d.mode != Datagram {
			return d.fail(s, "download chunk", errors.New("chunk messages are datagram-only"))
		}
		return d.downloadChunk(s, r)

	default:
		return d.fail(s, "dispatch", errors.Protocolf("dispatch", "unhandled request %T", req))
	}
}

func (d *Dispatcher) uploadStart(s *session.Session, r proto.UploadStart) proto.Response {
	if err := d.clearFinishedTransfer(s); err != nil {
		return d.fail(s, "upload", err)
	}

	f, err := d.fs.OpenForWrite(s.CWD, r.Dir, r.Name)
	if err != nil {
		return d.fail(s, "upload", err)
	}
	s.Transfer = session.NewUpload(f, r.Name, r.Size)
	d.metrics.TransferStarted()
	d.logger.Verbose("session %s: upload %q (%d bytes) started", s.ID, r.Name, r.Size)
	return proto.Ok{}
}

func (d *Dispatcher) downloadStart(s *session.Session, r proto.DownloadStart) proto.Response {
	if err := d.clearFinishedTransfer(s); err != nil {
		return d.fail(s, "download", err)
	}

	f, name, size, err := d.fs.OpenForRead(s.CWD, r.Path)
	if err != nil {
		return d.fail(s, "download", err)
	}
	s.Transfer = session.NewDownload(f, name, size)
	d.metrics.TransferStarted()
	d.logger.Verbose("session %s: download %q (%d bytes) started", s.ID, name, size)
	return proto.FileMetadata{Name: name, Size: size}
}

// clearFinishedTransfer rejects a new transfer while one is genuinely
// in progress, but lets a completed one (kept around so final-chunk
// acknowledgments can be replayed) be replaced.
func (d *Dispatcher) clearFinishedTransfer(s *session.Session) error {
	t := s.Transfer
	if t == nil {
		return nil
	}
	if t.Done() {
		s.CloseTransfer()
		return nil
	}
	return errors.ErrTransferActive
}

func (d *Dispatcher) uploadChunk(s *session.Session, r proto.UploadChunk) proto.Response {
	t := s.Transfer
	if t == nil || t.Direction != session.Upload {
		return d.fail(s, "upload chunk", errors.ErrNoActiveTransfer)
	}

	verdict, err := t.Recv.Accept(r.ID, r.Data, r.Last)
	if err != nil {
		// Local write failure: abort the transfer, keep the session.
		s.CloseTransfer()
		return d.fail(s, "upload chunk", err)
	}

	switch verdict {
	case transfer.VerdictApplied:
		d.metrics.BytesReceived(int64(len(r.Data)))
		if t.Recv.Complete() {
			// Flush and release the handle; the record stays so a
			// replayed final chunk still gets its ack.
			if err := t.Close(); err != nil {
				return d.fail(s, "upload chunk", err)
			}
			d.metrics.TransferCompleted()
			d.logger.Info("session %s: upload %q complete (%d bytes)", s.ID, t.Name, t.Recv.Received())
		}
		return proto.ChunkAck{ID: r.ID}
	case transfer.VerdictDuplicate:
		// The previous ack was lost; answer again without re-applying.
		return proto.ChunkAck{ID: r.ID}
	default:
		// Ahead of the expected id: drop silently, the sender will
		// retransmit in order.
		d.logger.Debug("session %s: discarding future chunk %d (expect %d)", s.ID, r.ID, t.Recv.Next())
		return nil
	}
}

func (d *Dispatcher) downloadChunk(s *session.Session, r proto.DownloadChunk) proto.Response {
	t := s.Transfer
	if t == nil || t.Direction != session.Download {
		return d.fail(s, "download chunk", errors.ErrNoActiveTransfer)
	}

	chunk, err := t.Chunker.Chunk(r.ID)
	if err != nil {
		if errors.Is(err, transfer.ErrChunkGone) {
			// Out-of-window request (a delayed duplicate datagram):
			// stay silent, the requester re-asks with its current id.
			d.logger.Debug("session %s: ignoring chunk request %d", s.ID, r.ID)
			return nil
		}
		// Local read failure: abort the transfer.
		s.CloseTransfer()
		return d.fail(s, "download chunk", err)
	}

	d.metrics.BytesSent(int64(len(chunk.Data)))
	if chunk.Last && t.File() != nil {
		// Release the handle now; the chunker's cache can still replay
		// the final chunk if this reply is lost.
		_ = t.Close()
		d.metrics.TransferCompleted()
		d.logger.Info("session %s: download %q complete (%d bytes)", s.ID, t.Name, t.Chunker.Sent())
	}
	return chunk
}

// fail converts an error into an Error response, recording it. The
// session's directory and transfer state are left exactly as they
// were (unless the failure itself tore the transfer down).
func (d *Dispatcher) fail(s *session.Session, op string, err error) proto.Response {
	d.metrics.RecordError(err.Error())
	d.logger.Verbose("session %s: %s failed: %v", s.ID, op, err)
	return proto.Error{Message: op + " failed: " + err.Error()}
}
