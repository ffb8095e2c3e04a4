package router

import "github.com/dmitrymomot/daybook/core/handler"

// chain wraps endpoint in middlewares so the first middleware in the
// slice is the outermost at request time.
func chain[C handler.Context](middlewares []handler.Middleware[C], endpoint handler.HandlerFunc[C]) handler.HandlerFunc[C] {
	h := endpoint
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
