// Package session manages login sessions: issuance, cookie encoding,
// initiator lookup, second-factor verification, and revocation.
//
// The cookie value is the 64-character base64url token followed by the
// base64url HMAC of the token under the process secret, so forged or
// truncated cookies are rejected before any database access. Lookup
// resolves a request to exactly one of nine outcomes (see Status); the
// HTTP layer maps each to a stable error name and status code.
//
//	mgr := session.NewManager(state, store, users, otpEngine, txRunner)
//
//	initiator, err := mgr.Lookup(ctx, r)
//	if err != nil {
//		return err // infrastructure failure, not a deny
//	}
//	switch initiator.Status {
//	case session.Found:
//		// initiator.User is the authenticated, verified user
//	case session.SessionUnverified:
//		// initiator.Session may be promoted via mgr.Verify
//	}
//
// The process secret is captured once at startup; rotating it
// invalidates all outstanding sessions.
package session
