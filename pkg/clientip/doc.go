// Package clientip resolves the originating client address of an HTTP
// request behind proxies and CDNs. Login throttling and audit logging
// both key on it.
//
// GetIP checks CF-Connecting-IP, True-Client-IP, X-Real-IP, then
// X-Forwarded-For, and falls back to RemoteAddr. The first two are set
// by CDNs that terminate the connection and are trusted outright;
// X-Forwarded-For may carry a client-controlled chain, so only its
// first valid entry counts. Every candidate is parsed with net.ParseIP
// (IPv4 and IPv6) and returned in normalized form; when nothing parses,
// GetIP returns "0.0.0.0" rather than an error.
//
//	ip := clientip.GetIP(r)
//	log.Info("login attempt", slog.String("client_ip", ip))
package clientip
