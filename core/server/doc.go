// Package server wraps http.Server with a context-driven lifecycle so
// the HTTP listener composes with the rest of the process under an
// errgroup.
//
// NewFromConfig reads the SERVER_* environment settings (address,
// timeouts, header cap, optional TLS key pair); New plus Options covers
// programmatic setup. Run returns a function shaped for errgroup.Go
// that serves until the group context is canceled, then drains
// in-flight requests within the shutdown timeout and exits cleanly:
//
//	srv, err := server.NewFromConfig(cfg.Server,
//		server.WithLogger(log.With("component", "server")),
//	)
//	if err != nil { ... }
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(srv.Run(ctx, router))
//
// Start and Stop are also usable directly. Start blocks until the
// context is canceled or the listener fails, and refuses to start twice
// with ErrServerAlreadyRunning; Stop is a no-op on a stopped server.
package server
