package api

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the key used to rate limit a request: X-Real-IP, then
// the first X-Forwarded-For entry, then the peer address. The headers are
// trusted as set by the reverse proxy in front of the service.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
