// Package handler defines the contract between the router and the
// application's handlers: a handler takes a typed Context and returns a
// Response, which renders itself to the wire.
//
//	func getEntryHandler(ctx *api.Context) handler.Response {
//		entry, err := load(ctx, ctx.Param("id"))
//		if err != nil {
//			return response.Error(err)
//		}
//		return response.JSON(entry)
//	}
//
// Splitting "decide what to respond" from "write it" keeps handlers
// free of ResponseWriter plumbing and lets middleware wrap either
// phase: a Middleware wraps HandlerFunc values before the router runs
// them, and can also wrap the returned Response to touch headers after
// the handler decided.
//
// Context extends context.Context with the request, the response
// writer, path parameters, and SetValue for request-scoped data.
// Applications define their own implementation (the API adds Bind with
// validation) and instantiate the router with it; errors returned by a
// Response flow into the router's ErrorHandler.
package handler
