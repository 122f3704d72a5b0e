package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Server runs the API over HTTP.
type Server struct {
	srv      *http.Server
	listener net.Listener
	done     chan error
	base     context.CancelFunc
}

// NewServer creates a server for engine. interval paces /ws/progress.
func NewServer(engine Engine, interval time.Duration) *Server {
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		srv: &http.Server{
			Handler:           NewRouter(engine, interval),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
		base: cancel,
	}
}

// Start binds addr and serves in the background. Port 0 picks a free port;
// see Addr.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.done = make(chan error, 1)

	logrus.WithFields(logrus.Fields{
		"function": "Server.Start",
		"addr":     ln.Addr().String(),
	}).Info("API listening")

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done yields the serve error, nil after a clean shutdown.
func (s *Server) Done() <-chan error {
	return s.done
}

// Shutdown stops accepting requests and waits for active ones until ctx
// expires. Open progress streams are ended through the base context, since
// http.Server does not track hijacked connections.
func (s *Server) Shutdown(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "Server.Shutdown",
	}).Info("API shutting down")
	s.base()
	return s.srv.Shutdown(ctx)
}
