package server

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Option adjusts a Server before it starts. Options are applied inside
// New, so they need no synchronization.
type Option func(*Server)

// WithLogger routes the server's lifecycle logs to logger instead of
// discarding them.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTLS serves HTTPS using the given TLS configuration.
func WithTLS(config *tls.Config) Option {
	return func(s *Server) { s.opts.tls = config }
}

// WithShutdownTimeout bounds how long Stop waits for in-flight requests.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.opts.shutdownTimeout = timeout }
}

// WithReadTimeout bounds reading a full request, headers included.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.opts.readTimeout = timeout }
}

// WithWriteTimeout bounds writing a response.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.opts.writeTimeout = timeout }
}

// WithIdleTimeout bounds how long a keep-alive connection may sit idle.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.opts.idleTimeout = timeout }
}

// WithMaxHeaderBytes caps the size of request headers.
func WithMaxHeaderBytes(n int) Option {
	return func(s *Server) { s.opts.maxHeaderBytes = n }
}
