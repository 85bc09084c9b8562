package utils

import (
	"net"
	"net/http"
	"strings"
)

// IPUnknown marks a request whose source address could not be determined.
// Unknown IPs are excluded from the dedup comparison rather than matched
// against each other.
const IPUnknown = "unknown"

// ClientIP resolves the requester's address from the usual proxy headers,
// falling back to the socket peer. Returns IPUnknown when nothing usable is
// present.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return IPUnknown
}
