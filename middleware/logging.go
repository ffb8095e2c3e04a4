package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/logger"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Skip suppresses logging for matching requests (health probes).
	Skip func(ctx handler.Context) bool

	// Logger receives the request records (default: slog.Default()).
	Logger *slog.Logger

	// Level for successful requests; 4xx log at warn and 5xx at error
	// regardless (default: slog.LevelInfo).
	Level slog.Level

	// SlowThreshold raises requests slower than this to warn
	// (default: 5s).
	SlowThreshold time.Duration

	// Component tags the log records (default: "http").
	Component string
}

// Logging logs one record per request with method, path, status, size,
// and duration.
func Logging[C handler.Context]() handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{})
}

// LoggingWithLogger is Logging with a custom logger.
func LoggingWithLogger[C handler.Context](log *slog.Logger) handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{Logger: log})
}

// LoggingWithConfig builds the logging middleware.
func LoggingWithConfig[C handler.Context](cfg LoggingConfig) handler.Middleware[C] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 5 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			start := time.Now()
			req := ctx.Request()
			requestID, _ := GetRequestID(ctx)

			resp := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
				err := resp(lw, r)
				duration := time.Since(start)

				attrs := []slog.Attr{
					logger.Component(cfg.Component),
					logger.Method(req.Method),
					logger.Path(req.URL.Path),
					logger.StatusCode(lw.status),
					logger.BytesOut(int64(lw.size)),
					logger.Duration(duration),
				}
				if requestID != "" {
					attrs = append(attrs, logger.RequestID(requestID))
				}

				level := cfg.Level
				switch {
				case lw.status >= 500:
					level = slog.LevelError
					attrs = append(attrs, logger.Error(err))
				case lw.status >= 400:
					level = slog.LevelWarn
				case duration > cfg.SlowThreshold:
					level = slog.LevelWarn
					attrs = append(attrs, slog.Bool("slow_request", true))
				}

				cfg.Logger.LogAttrs(req.Context(), level, "request completed", attrs...)
				return err
			}
		}
	}
}

// loggingWriter captures the status and byte count of the response.
type loggingWriter struct {
	http.ResponseWriter
	status  int
	size    int
	written bool
}

func (w *loggingWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}
