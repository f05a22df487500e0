// Package guard provides origin validation for the transport layer.
package guard

import "net/http"

// CORSPolicy validates request origins against a fixed allowlist. An empty
// allowlist permits every origin.
type CORSPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

// NewCORSPolicy constructs a policy for the given origins.
func NewCORSPolicy(allowedOrigins []string) *CORSPolicy {
	if len(allowedOrigins) == 0 {
		return &CORSPolicy{allowAll: true}
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return &CORSPolicy{allowAll: true}
		}
		origins[origin] = struct{}{}
	}
	return &CORSPolicy{origins: origins}
}

// AllowOrigin reports whether the origin may access the portal.
func (p *CORSPolicy) AllowOrigin(origin string) bool {
	if p == nil || origin == "" {
		return false
	}
	if p.allowAll {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// Middleware applies the policy: allowed origins get the CORS response
// headers, preflight requests are answered directly, and disallowed origins
// simply get no CORS headers.
func (p *CORSPolicy) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && p.AllowOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
