package logger

import (
	"log/slog"
	"time"
)

// Attr helpers return a zero slog.Attr for empty input, which slog
// drops, so call sites never need nil checks.

// Error records err under "error"; nil yields nothing.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration records d under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ID records an identifier under a custom key; nil yields nothing.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// RequestID records an HTTP request ID; empty yields nothing.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Method records an HTTP method.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path records a URL path.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode records an HTTP status code.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// BytesOut records a response size.
func BytesOut(n int64) slog.Attr {
	return slog.Int64("bytes_out", n)
}

// Component tags a record with the emitting subsystem.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count records a quantity under a custom key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
