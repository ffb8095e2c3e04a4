package middleware

import (
	"net/http"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/pkg/clientip"
)

type clientIPContextKey struct{}

// ClientIPConfig configures the client IP middleware.
type ClientIPConfig struct {
	// Skip suppresses extraction for matching requests.
	Skip func(ctx handler.Context) bool

	// StoreInContext makes the IP available via GetClientIP.
	StoreInContext bool

	// StoreInHeader echoes the IP in a response header named HeaderName.
	StoreInHeader bool

	// HeaderName for StoreInHeader (default: "X-Client-IP").
	HeaderName string
}

// ClientIP resolves the client address behind proxies and stores it in
// the request context for GetClientIP.
func ClientIP[C handler.Context]() handler.Middleware[C] {
	return ClientIPWithConfig[C](ClientIPConfig{StoreInContext: true})
}

// ClientIPWithConfig builds the client IP middleware. With neither
// destination configured it defaults to storing in context.
func ClientIPWithConfig[C handler.Context](cfg ClientIPConfig) handler.Middleware[C] {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}
	if !cfg.StoreInContext && !cfg.StoreInHeader {
		cfg.StoreInContext = true
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			ip := clientip.GetIP(ctx.Request())
			if cfg.StoreInContext {
				ctx.SetValue(clientIPContextKey{}, ip)
			}

			resp := next(ctx)
			if !cfg.StoreInHeader {
				return resp
			}
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set(cfg.HeaderName, ip)
				return resp(w, r)
			}
		}
	}
}

// GetClientIP returns the client IP stored by the middleware, if any.
func GetClientIP(ctx handler.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok
}
