// Package api assembles the daybook HTTP surface: the session
// endpoints (login, second-factor verification, logout), account
// management (registration, password change, email verification), TOTP
// enrollment with QR provisioning, permission and group administration,
// and audio attachments.
//
// Handlers are thin: they bind and validate the request, consult the
// core engines through Deps, and map domain errors to stable wire codes
// in errors.go. Anything requiring an authenticated, verified user sits
// behind the initiator middleware.
package api
