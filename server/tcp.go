package server

import (
	"context"
	"fmt"
	"io"
	"net"

	"fileshell/internal/dispatch"
	"fileshell/internal/proto"
	"fileshell/internal/session"
	"fileshell/internal/transfer"
)

// ── TCP ──────────────────────────────────────────────────────────────

func (s *Server) listenTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.TCPAddr, err)
	}
	defer ln.Close()

	log := s.logger.WithPrefix("tcp")
	log.Verbose("listening on %s", ln.Addr())

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	d := s.streamDispatcher()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.serveConn(ctx, conn, d)
	}
}

// serveConn handles one stream client end to end. Later arrivals are
// turned away with a Busy frame while a client holds the gate.
func (s *Server) serveConn(ctx context.Context, conn net.Conn, d *dispatch.Dispatcher) {
	defer conn.Close()
	log := s.logger.WithPrefix("tcp")

	if !s.gate.TryAcquire() {
		s.metrics.ClientRejected()
		log.Warn("rejecting %s: another client is connected", conn.RemoteAddr())
		_ = proto.WriteResponse(conn, proto.Busy{})
		return
	}
	defer s.gate.Release()

	sess := session.New(conn.RemoteAddr().String())
	defer sess.CloseTransfer()
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()
	log.Info("session %s: client %s connected", sess.ID, conn.RemoteAddr())

	for {
		if ctx.Err() != nil {
			return
		}
		req, err := proto.ReadRequest(conn)
		if err != nil {
			if err == io.EOF {
				log.Info("session %s: client disconnected", sess.ID)
			} else {
				log.Warn("session %s: read: %v", sess.ID, err)
			}
			return
		}

		if err := s.serveRequest(conn, sess, d, req); err != nil {
			log.Warn("session %s: %v", sess.ID, err)
			return
		}
	}
}

// serveRequest dispatches one request and runs any raw streaming
// phase it opens. A returned error means the connection is out of
// sync and must be dropped.
func (s *Server) serveRequest(conn net.Conn, sess *session.Session, d *dispatch.Dispatcher, req proto.Request) error {
	sess.Lock()
	resp := d.Handle(sess, req)
	sess.Unlock()

	if resp == nil {
		// The stream dispatcher always answers; treat silence as a bug.
		return fmt.Errorf("no response for %T", req)
	}
	if err := proto.WriteResponse(conn, resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	// An accepted transfer switches the connection into a raw byte
	// phase: exactly Size bytes move, then framing resumes.
	switch r := req.(type) {
	case proto.UploadStart:
		if _, ok := resp.(proto.Ok); ok {
			return s.receiveStream(conn, sess, r.Size)
		}
	case proto.DownloadStart:
		if meta, ok := resp.(proto.FileMetadata); ok {
			return s.sendStream(conn, sess, meta.Size)
		}
	}
	return nil
}

func (s *Server) receiveStream(conn net.Conn, sess *session.Session, size uint64) error {
	sess.Lock()
	t := sess.Transfer
	sess.Unlock()

	n, err := transfer.Stream(t.File(), conn, size)
	s.metrics.BytesReceived(int64(n))

	sess.Lock()
	sess.CloseTransfer()
	sess.Unlock()

	if err != nil {
		_ = proto.WriteResponse(conn, proto.Error{Message: "upload failed: " + err.Error()})
		return fmt.Errorf("receive %d bytes: %w", size, err)
	}
	s.metrics.TransferCompleted()
	s.logger.WithPrefix("tcp").Info("session %s: upload %q complete (%d bytes)", sess.ID, t.Name, n)
	return proto.WriteResponse(conn, proto.Ok{})
}

func (s *Server) sendStream(conn net.Conn, sess *session.Session, size uint64) error {
	sess.Lock()
	t := sess.Transfer
	sess.Unlock()

	n, err := transfer.Stream(conn, t.File(), size)
	s.metrics.BytesSent(int64(n))

	sess.Lock()
	sess.CloseTransfer()
	sess.Unlock()

	if err != nil {
		return fmt.Errorf("send %d bytes: %w", size, err)
	}
	s.metrics.TransferCompleted()
	s.logger.WithPrefix("tcp").Info("session %s: download %q complete (%d bytes)", sess.ID, t.Name, n)
	return nil
}
