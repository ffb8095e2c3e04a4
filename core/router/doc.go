// Package router provides a typed-context HTTP router with middleware
// chaining, route grouping, and sub-router mounting. Handlers receive a
// caller-defined context type and return a handler.Response; errors and
// panics flow into one configurable error handler.
//
// # Basic Usage
//
//	r := router.New[*AppContext](
//		router.WithContextFactory(newAppContext),
//		router.WithErrorHandler[*AppContext](response.JSONErrorHandler),
//		router.WithLogger[*AppContext](log),
//		router.WithMiddleware(middleware.RequestID[*AppContext]()),
//	)
//
//	r.Get("/users/{id}", getUserHandler)
//	r.Post("/users", createUserHandler)
//
//	http.ListenAndServe(":8080", r)
//
// Path parameters use {name} syntax and are read from the context:
//
//	func getUserHandler(ctx *AppContext) handler.Response {
//		id := ctx.Param("id")
//		...
//	}
//
// Static segments outrank parameters when routes overlap, so
// /users/self wins over /users/{id} regardless of registration order.
//
// # Middleware, Groups, Mounting
//
// Use installs router-wide middleware and must come before the first
// route. With and Group scope middleware to a subset of routes:
//
//	r.Group(func(private router.Router[*AppContext]) {
//		private.Use(authMiddleware)
//		private.Get("/me", whoamiHandler)
//	})
//
//	r.With(bodyLimit).Post("/upload", uploadHandler)
//
// Route and Mount attach whole sub-routers below a prefix; the mounted
// router sees paths relative to the mount point and inherits the error
// handler, logger, and context factory.
//
// # Errors
//
// Unmatched paths and methods invoke the error handler with
// ErrNotFound or ErrMethodNotAllowed (405 responses carry an Allow
// header). Handler errors, nil responses, and recovered panics go
// through the same handler; panics arrive as a PanicError wrapping the
// value and stack.
package router
