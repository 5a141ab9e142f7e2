package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"fileshell/internal/dispatch"
	"fileshell/internal/proto"
)

// ── UDP ──────────────────────────────────────────────────────────────

func (s *Server) listenUDP(ctx context.Context) error {
	ua, err := net.ResolveUDPAddr("udp", s.cfg.UDPAddr)
	if err != nil {
		return fmt.Errorf("resolve UDP: %w", err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return fmt.Errorf("listen UDP on %s: %w", s.cfg.UDPAddr, err)
	}
	defer conn.Close()

	log := s.logger.WithPrefix("udp")
	log.Verbose("listening on %s", conn.LocalAddr())

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go s.sessions.Sweep(ctx, s.cfg.SweepInterval)

	d := s.datagramDispatcher()
	buf := make([]byte, proto.MaxDatagramSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("read datagram: %w", err)
			}
		}

		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		go s.serveDatagram(conn, src, pkt, d)
	}
}

// serveDatagram handles one request datagram. Concurrent datagrams
// from the same source serialize on the session lock, so chunk
// ordering is preserved per client.
func (s *Server) serveDatagram(conn *net.UDPConn, src *net.UDPAddr, pkt []byte, d *dispatch.Dispatcher) {
	log := s.logger.WithPrefix("udp")

	req, err := proto.DecodeDatagramRequest(pkt)
	if err != nil {
		// Can't trust the frame; don't even answer.
		log.Debug("dropping malformed datagram from %s: %v", src, err)
		return
	}

	sess, _ := s.sessions.GetOrCreate(src.String())

	sess.Lock()
	sess.Touch(time.Now())
	resp := d.Handle(sess, req)
	sess.Unlock()

	if resp == nil {
		// Deliberate silence: out-of-sequence chunk traffic.
		return
	}

	frame, err := proto.EncodeResponse(resp)
	if err != nil {
		log.Error("session %s: encode %T: %v", sess.ID, resp, err)
		return
	}
	if !proto.FitsDatagram(frame) {
		log.Warn("session %s: %T exceeds datagram limit, answering with error", sess.ID, resp)
		frame, _ = proto.EncodeResponse(proto.Error{Message: "response too large for datagram transport"})
	}
	if _, err := conn.WriteToUDP(frame, src); err != nil {
		log.Warn("session %s: write to %s: %v", sess.ID, src, err)
	}
}
