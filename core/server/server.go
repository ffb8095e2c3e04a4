package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// settings collects the tunables applied to the underlying http.Server.
// Options mutate it before Start; it is not touched afterwards.
type settings struct {
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	tls             *tls.Config
}

// Server runs an http.Server with a context-driven lifecycle: Start
// blocks until the context is canceled or listening fails, Stop drains
// in-flight requests within the shutdown timeout, and Run packages both
// for errgroup use.
type Server struct {
	mu      sync.Mutex
	addr    string
	opts    settings
	logger  *slog.Logger
	inner   *http.Server
	running bool
}

// New builds a Server for addr. Without options it serves plain HTTP
// with the Default* timeouts and discards its own logs.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		opts: settings{
			readTimeout:     DefaultReadTimeout,
			writeTimeout:    DefaultWriteTimeout,
			idleTimeout:     DefaultIdleTimeout,
			shutdownTimeout: DefaultShutdownTimeout,
			maxHeaderBytes:  DefaultMaxHeaderBytes,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on the configured address and blocks until ctx is
// canceled (returning ctx.Err()) or the listener fails. A second Start
// on a running server returns ErrServerAlreadyRunning.
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	s.inner = &http.Server{
		Addr:           s.addr,
		Handler:        handler,
		ReadTimeout:    s.opts.readTimeout,
		WriteTimeout:   s.opts.writeTimeout,
		IdleTimeout:    s.opts.idleTimeout,
		MaxHeaderBytes: s.opts.maxHeaderBytes,
		TLSConfig:      s.opts.tls,
	}
	s.running = true
	srv, useTLS := s.inner, s.opts.tls != nil
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", s.addr), slog.Bool("tls", useTLS))

	serveErr := make(chan error, 1)
	go func() {
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains in-flight requests, waiting at most the shutdown timeout.
// Stopping a server that is not running is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.inner == nil {
		return nil
	}

	s.logger.Info("http server draining", slog.Duration("timeout", s.opts.shutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer cancel()

	err := s.inner.Shutdown(ctx)
	s.running = false
	if err != nil {
		s.logger.Error("http server shutdown failed", slog.Any("error", err))
		return err
	}

	s.logger.Info("http server stopped")
	return nil
}

// Run adapts the Start/Stop pair to the errgroup.Group contract: the
// returned function serves until ctx is canceled, then shuts down
// gracefully and reports nil. Cancellation is an orderly exit, not an
// error, so a coordinated shutdown does not fail the group.
func (s *Server) Run(ctx context.Context, handler http.Handler) func() error {
	return func() error {
		started := make(chan error, 1)
		go func() {
			started <- s.Start(ctx, handler)
		}()

		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				s.logger.Error("http server stop on cancel failed", slog.Any("error", err))
			}
			<-started
			return nil
		case err := <-started:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
