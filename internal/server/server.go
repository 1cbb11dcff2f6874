package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"erbgo/internal/common/errors"
	"erbgo/internal/common/logging"
)

// Server represents an HTTP server
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   logging.Logger
}

// New creates a new server instance listening on addr (host:port)
func New(handler http.Handler, addr string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "server")),
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned; errors after that are logged.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.InternalError("failed to listen on "+s.srv.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server stopped unexpectedly", err)
		}
	}()

	s.logger.Info("server listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
