// Package response builds handler.Response values for the API: JSON
// and plain-text bodies, raw bytes, 204s, and structured errors.
//
//	func getEntryHandler(ctx handler.Context) handler.Response {
//		return response.JSON(entry)
//	}
//
//	func badInput(err error) handler.Response {
//		return response.Error(response.ErrBadRequest.WithError(err))
//	}
//
// HTTPError carries a status, a machine-readable code, a message, and
// optional details; the catalog (ErrBadRequest, ErrNotFound, ...)
// covers the statuses the API returns, customizable per call with the
// With* methods. ErrorHandler and JSONErrorHandler plug into the
// router and normalize every handler error through that catalog:
// HTTPErrors render as-is, errors exposing StatusCode() map to the
// matching entry, anything else becomes an opaque 500.
package response
