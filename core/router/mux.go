package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/dmitrymomot/daybook/core/handler"
)

// mux implements Router on a flat, scored route table. The table is
// owned by the root mux; inline routers created by With and Group share
// it and bake their middleware into handlers at registration time.
type mux[C handler.Context] struct {
	root         *mux[C]
	routes       []*route[C]
	middlewares  []handler.Middleware[C]
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request, map[string]string) C
	logger       *slog.Logger
	parent       *mux[C]
	inline       bool
	sealed       bool // a route has been registered; Use is frozen
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		errorHandler: defaultErrorHandler[C],
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	m.root = m

	for _, opt := range opts {
		opt(m)
	}

	if m.newContext == nil {
		m.newContext = func(w http.ResponseWriter, r *http.Request, params map[string]string) C {
			// The built-in *Context works without a factory; custom
			// context types must provide one.
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(newContext(w, r, params)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}

	return m
}

// ServeHTTP implements http.Handler.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := newResponseWriter(w)

	if _, ok := knownMethods[r.Method]; !ok {
		m.errorHandler(m.newContext(ww, r, nil), ErrMethodNotAllowed)
		return
	}

	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	segs := splitPath(path)

	var (
		best       *route[C]
		bestParams map[string]string
		bestRest   []string
		allowed    []string
	)
	for _, rt := range m.routes {
		params, rest, ok := rt.match(segs)
		if !ok {
			continue
		}
		if rt.method != "" && rt.method != r.Method {
			if !slices.Contains(allowed, rt.method) {
				allowed = append(allowed, rt.method)
			}
			continue
		}
		if best == nil || rt.score() > best.score() {
			best, bestParams, bestRest = rt, params, rest
		}
	}

	ctx := m.newContext(ww, r, bestParams)

	defer func() {
		if p := recover(); p != nil {
			panicErr := &panicError{value: p, stack: debug.Stack()}
			if ww.Written() {
				m.logger.Error("panic after response written",
					"value", panicErr.value,
					"stack", string(panicErr.stack),
					"path", r.URL.Path,
					"method", r.Method,
					"status", ww.Status(),
				)
				return
			}
			m.errorHandler(ctx, panicErr)
		}
	}()

	if best == nil {
		if len(allowed) > 0 {
			if !ww.Written() {
				ww.Header().Set("Allow", strings.Join(allowed, ", "))
			}
			m.errorHandler(ctx, ErrMethodNotAllowed)
		} else {
			m.errorHandler(ctx, ErrNotFound)
		}
		return
	}

	// Mounted subrouters see the path below the mount point and run
	// with their own middleware stack.
	if best.sub != nil {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + strings.Join(bestRest, "/")
		best.sub.ServeHTTP(w, r2)
		return
	}

	fn := best.h
	if len(m.middlewares) > 0 {
		fn = chain(m.middlewares, fn)
	}

	resp := fn(ctx)
	if resp == nil {
		m.errorHandler(ctx, ErrNilResponse)
		return
	}
	if err := resp(ww, r); err != nil {
		m.errorHandler(ctx, err)
	}
}

func (m *mux[C]) Get(pattern string, h handler.HandlerFunc[C])     { m.handle(http.MethodGet, pattern, h) }
func (m *mux[C]) Post(pattern string, h handler.HandlerFunc[C])    { m.handle(http.MethodPost, pattern, h) }
func (m *mux[C]) Put(pattern string, h handler.HandlerFunc[C])     { m.handle(http.MethodPut, pattern, h) }
func (m *mux[C]) Delete(pattern string, h handler.HandlerFunc[C])  { m.handle(http.MethodDelete, pattern, h) }
func (m *mux[C]) Patch(pattern string, h handler.HandlerFunc[C])   { m.handle(http.MethodPatch, pattern, h) }
func (m *mux[C]) Head(pattern string, h handler.HandlerFunc[C])    { m.handle(http.MethodHead, pattern, h) }
func (m *mux[C]) Options(pattern string, h handler.HandlerFunc[C]) { m.handle(http.MethodOptions, pattern, h) }

// Handle registers a handler for every HTTP method.
func (m *mux[C]) Handle(pattern string, h handler.HandlerFunc[C]) {
	m.handle("", pattern, h)
}

// Method registers a handler for the named HTTP methods.
func (m *mux[C]) Method(pattern string, h handler.HandlerFunc[C], methods ...string) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", ErrInvalidMethod))
	}
	var done []string
	for _, method := range methods {
		method = strings.ToUpper(method)
		if _, ok := knownMethods[method]; !ok {
			panic(fmt.Errorf("%w: %s", ErrInvalidMethod, method))
		}
		if slices.Contains(done, method) {
			continue
		}
		done = append(done, method)
		m.handle(method, pattern, h)
	}
}

// Use appends middleware. On the root router middleware must be in
// place before the first route so every request sees the same stack;
// inline routers accept Use until their own routes are registered.
func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	if !m.inline && m.sealed {
		panic("router: middlewares must be registered before routes")
	}
	m.middlewares = append(m.middlewares, middlewares...)
}

// With returns an inline router whose middleware applies only to the
// routes registered through it.
func (m *mux[C]) With(middlewares ...handler.Middleware[C]) Router[C] {
	return &mux[C]{
		root:         m.root,
		parent:       m,
		inline:       true,
		middlewares:  slices.Clone(middlewares),
		errorHandler: m.errorHandler,
		newContext:   m.newContext,
		logger:       m.logger,
	}
}

// Group runs fn against an inline router and returns it.
func (m *mux[C]) Group(fn func(r Router[C])) Router[C] {
	im := m.With()
	if fn != nil {
		fn(im)
	}
	return im
}

// Route builds a sub-router, lets fn populate it, and mounts it at
// pattern.
func (m *mux[C]) Route(pattern string, fn func(r Router[C])) Router[C] {
	if fn == nil {
		panic(fmt.Errorf("%w on %q", ErrNilSubrouter, pattern))
	}
	sub := newMux[C]()
	sub.errorHandler = m.errorHandler
	sub.newContext = m.newContext
	sub.logger = m.logger
	fn(sub)
	m.Mount(pattern, sub)
	return sub
}

// Mount attaches a sub-router below pattern. The subrouter inherits
// the error handler, logger, and context factory so mounted trees
// behave like the rest of the router.
func (m *mux[C]) Mount(pattern string, sub Router[C]) {
	if sub == nil {
		panic(fmt.Errorf("%w on %q", ErrNilRouter, pattern))
	}
	subMux, ok := sub.(*mux[C])
	if !ok {
		panic("router: can only mount routers created by New")
	}
	subMux.errorHandler = m.errorHandler
	subMux.logger = m.logger
	subMux.newContext = m.newContext

	base := strings.TrimSuffix(strings.TrimSuffix(pattern, "/*"), "/")
	if base == "" {
		m.handle("", "/*", nil).sub = subMux
		return
	}
	// The bare mount point resolves to "/" inside the subrouter.
	m.handle("", base, nil).sub = subMux
	m.handle("", base+"/*", nil).sub = subMux
}

// Routes returns the registered route table. All-method entries report
// their method as "*".
func (m *mux[C]) Routes() []Route {
	out := make([]Route, 0, len(m.root.routes))
	for _, rt := range m.root.routes {
		method := rt.method
		if method == "" {
			method = "*"
		}
		out = append(out, Route{Method: method, Pattern: rt.pattern})
	}
	return out
}

// handle parses the pattern and appends the route to the root table.
// Inline routers bake their accumulated middleware into the handler
// here, outermost first.
func (m *mux[C]) handle(method, pattern string, fn handler.HandlerFunc[C]) *route[C] {
	segs, wildcard := parsePattern(pattern)

	h := fn
	if m.inline && fn != nil {
		var stack []handler.Middleware[C]
		for curr := m; curr != nil && curr.inline; curr = curr.parent {
			stack = append(slices.Clone(curr.middlewares), stack...)
		}
		if len(stack) > 0 {
			h = chain(stack, fn)
		}
	}

	root := m.root
	root.sealed = true
	rt := &route[C]{method: method, pattern: pattern, segs: segs, wildcard: wildcard, h: h}
	root.routes = append(root.routes, rt)
	return rt
}
