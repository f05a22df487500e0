// Package guard provides client identity resolution.
package guard

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClientKey is the sentinel identity used when no address can be
// resolved. Missing metadata must never deny service.
const UnknownClientKey = "unknown"

// ClientKeyFromRequest derives the caller's identity string. Preference
// order: first X-Forwarded-For entry, X-Real-IP, the transport address host,
// the raw transport address, then the unknown sentinel. Proxies and NAT may
// collapse several users behind one key; that approximation is accepted.
func ClientKeyFromRequest(r *http.Request) string {
	if r == nil {
		return UnknownClientKey
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if first := strings.TrimSpace(parts[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote != "" {
		return remote
	}
	return UnknownClientKey
}
