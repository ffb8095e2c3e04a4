package router

import (
	"net/http"

	"github.com/dmitrymomot/daybook/core/handler"
)

// Router registers typed handlers against URL patterns and dispatches
// requests to them. Middleware attaches with Use (router-wide), With
// (per-chain), or Group/Route (per-subtree); Mount grafts one router
// under a path prefix of another.
type Router[C handler.Context] interface {
	http.Handler
	Routes

	Get(pattern string, h handler.HandlerFunc[C])
	Post(pattern string, h handler.HandlerFunc[C])
	Put(pattern string, h handler.HandlerFunc[C])
	Delete(pattern string, h handler.HandlerFunc[C])
	Patch(pattern string, h handler.HandlerFunc[C])
	Head(pattern string, h handler.HandlerFunc[C])
	Options(pattern string, h handler.HandlerFunc[C])

	// Handle registers h for every HTTP method; Method restricts it to
	// the listed ones.
	Handle(pattern string, h handler.HandlerFunc[C])
	Method(pattern string, h handler.HandlerFunc[C], methods ...string)

	Use(middlewares ...handler.Middleware[C])
	With(middlewares ...handler.Middleware[C]) Router[C]

	Group(fn func(r Router[C])) Router[C]
	Route(pattern string, fn func(r Router[C])) Router[C]
	Mount(pattern string, sub Router[C])
}

// Routes exposes the registered route table, mainly for startup logging.
type Routes interface {
	Routes() []Route
}

// Route is one registered method/pattern pair.
type Route struct {
	Method  string
	Pattern string
}

// New builds a Router for the context type C.
func New[C handler.Context](opts ...Option[C]) Router[C] {
	return newMux[C](opts...)
}
