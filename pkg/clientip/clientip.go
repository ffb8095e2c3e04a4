package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Proxy headers in priority order. CF-Connecting-IP and True-Client-IP are
// set by CDNs that terminate the connection; X-Forwarded-For may carry a
// client-controlled chain, so only its first valid entry is used.
var headers = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
}

// GetIP extracts the originating client IP address from the request.
// It checks common proxy headers before falling back to RemoteAddr.
// Returns "0.0.0.0" when no valid address can be determined.
func GetIP(r *http.Request) string {
	if r == nil {
		return "0.0.0.0"
	}

	for _, header := range headers {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For is a comma-separated chain; the first entry is the client.
		for part := range strings.SplitSeq(value, ",") {
			if ip := parseIP(strings.TrimSpace(part)); ip != "" {
				return ip
			}
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := parseIP(host); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.RemoteAddr); ip != "" {
		return ip
	}

	return "0.0.0.0"
}

// parseIP returns the normalized string form of a valid IP, or "".
func parseIP(s string) string {
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
