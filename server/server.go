// Package server runs the file-operation service: a stream listener
// and a datagram listener over one sandboxed directory tree, sharing
// the same request dispatcher.
package server

import (
	"context"
	"fmt"

	"fileshell/config"
	"fileshell/internal/arbiter"
	"fileshell/internal/dispatch"
	"fileshell/internal/fsbox"
	"fileshell/internal/metrics"
	"fileshell/internal/session"
	"fileshell/util"
)

// Server owns both listeners and their shared state.
type Server struct {
	cfg     *config.Config
	fs      *fsbox.Box
	logger  *util.Logger
	metrics *metrics.Collector

	// Stream side: one client at a time.
	gate *arbiter.Arbiter
	// Datagram side: sessions keyed by source address.
	sessions *session.Manager
}

// New builds a Server over the configured sandbox root.
func New(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (*Server, error) {
	fs, err := fsbox.New(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	return &Server{
		cfg:      cfg,
		fs:       fs,
		logger:   logger,
		metrics:  m,
		gate:     arbiter.New(),
		sessions: session.NewManager(cfg.IdleTimeout, logger.WithPrefix("udp"), m),
	}, nil
}

// Run binds both transports and serves until ctx expires or a
// listener fails. The first listener error tears the whole server
// down.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("serving %s (tcp %s, udp %s)", s.fs.Root(), s.cfg.TCPAddr, s.cfg.UDPAddr)

	errc := make(chan error, 2)
	go func() { errc <- s.listenTCP(ctx) }()
	go func() { errc <- s.listenUDP(ctx) }()

	err := <-errc
	cancel()
	<-errc
	return err
}

// streamDispatcher builds the dispatcher the stream transport uses.
func (s *Server) streamDispatcher() *dispatch.Dispatcher {
	return dispatch.New(s.fs, dispatch.Stream, s.logger.WithPrefix("tcp"), s.metrics)
}

// datagramDispatcher builds the dispatcher the datagram transport uses.
func (s *Server) datagramDispatcher() *dispatch.Dispatcher {
	return dispatch.New(s.fs, dispatch.Datagram, s.logger.WithPrefix("udp"), s.metrics)
}
