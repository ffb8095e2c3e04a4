// Package middleware carries the cross-cutting request concerns the
// API router applies around its handlers: request IDs, client IP
// resolution, request logging, login throttling, body size caps, and
// session initiator resolution.
//
// Each middleware is generic over the handler.Context type and comes in
// two shapes, a zero-config constructor and a WithConfig variant, with
// Get* helpers for values stored on the context:
//
//	r := router.New[*Context](
//		router.WithMiddleware(
//			middleware.RequestID[*Context](),
//			middleware.ClientIP[*Context](),
//			middleware.LoggingWithLogger[*Context](log),
//		),
//	)
//
//	func handler(ctx *Context) handler.Response {
//		id, _ := middleware.GetRequestID(ctx)
//		ip, _ := middleware.GetClientIP(ctx)
//		...
//	}
//
// RateLimit throttles against a ratelimiter.Bucket keyed by client IP
// unless a custom KeyExtractor is given; SetHeaders adds the
// X-RateLimit-* trio and Retry-After on rejection. BodyLimitWithSize
// caps request bodies before handlers read them, attaching per-route
// with With:
//
//	r.With(middleware.BodyLimitWithSize[*Context](maxAudioBytes)).
//		Post("/entries/{id}/audio", uploadAudioHandler)
//
// Initiator resolves the session cookie through a session.Manager and
// rejects requests without a usable session. Verified sessions are
// required by default; AllowUnverified admits sessions still pending a
// second factor so the TOTP verification endpoint stays reachable.
//
// On rejection middleware return response.HTTPError values, which the
// router's error handler renders as JSON: 429 for throttled requests,
// 413 for oversized bodies, 401 or 404 for initiator failures.
package middleware
