// Package guard provides the HTTP middleware surface of the pipeline.
package guard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// securityHeaderSet is the fixed hardening header set applied to every
// response.
var securityHeaderSet = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Content-Security-Policy":   "default-src 'self'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
}

// SecurityHeaders sets the hardening header set and strips the framework
// identification header. It always calls through.
func (g *Guard) SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, value := range securityHeaderSet {
				w.Header().Set(name, value)
			}
			w.Header().Del("X-Powered-By")
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is the general pipeline entry point. It may short-circuit with
// 403 (blocked) or 429 (throttled).
func (g *Guard) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := g.Check(ClientKeyFromRequest(r))
			if !writeVerdict(w, verdict) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthRateLimit applies the narrower auth window. Mount it only on
// authentication-adjacent routes.
func (g *Guard) AuthRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := g.CheckAuth(ClientKeyFromRequest(r))
			if !writeVerdict(w, verdict) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ThreatScan runs the threat pattern scanner over the path, query, and
// body. A match blocks the identity and rejects the request with 403.
func (g *Guard) ThreatScan() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload := r.URL.RawQuery
			if body, ok := snapshotBody(r, g.maxBodyBytes()); ok {
				payload = payload + "\n" + body
			}
			verdict := g.ScanRequest(ClientKeyFromRequest(r), r.URL.Path, payload)
			if !writeVerdict(w, verdict) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInput strips null bytes and trims whitespace from string fields
// in JSON bodies and query parameters, excluding password fields. It always
// calls through; unparseable bodies pass untouched.
func (g *Guard) SanitizeInput() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sanitizeQuery(r)
			sanitizeJSONBody(r, g.maxBodyBytes())
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) maxBodyBytes() int64 {
	if g == nil || g.cfg == nil || g.cfg.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return g.cfg.MaxBodyBytes
}

// writeVerdict writes the failure body for a non-allow verdict. It reports
// true when the request may proceed.
func writeVerdict(w http.ResponseWriter, verdict Verdict) bool {
	switch verdict.Code {
	case VerdictAllow:
		return true
	case VerdictThrottled:
		retry := int(verdict.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeJSON(w, http.StatusTooManyRequests, guardFailure{
			Success:    false,
			Error:      verdict.Reason,
			RetryAfter: retry,
		})
	case VerdictBlocked, VerdictMalicious:
		writeJSON(w, http.StatusForbidden, guardFailure{
			Success: false,
			Error:   "access denied",
		})
	default:
		writeJSON(w, http.StatusForbidden, guardFailure{
			Success: false,
			Error:   "access denied",
		})
	}
	return false
}

func snapshotBody(r *http.Request, maxBytes int64) (string, bool) {
	if r == nil || r.Body == nil || r.ContentLength == 0 {
		return "", false
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	_ = r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return "", false
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return string(data), true
}

func sanitizeQuery(r *http.Request) {
	if r == nil || r.URL == nil || r.URL.RawQuery == "" {
		return
	}
	query := r.URL.Query()
	cleaned := url.Values{}
	for name, values := range query {
		if _, excluded := sanitizerExcludedFields[strings.ToLower(name)]; excluded {
			cleaned[name] = values
			continue
		}
		for _, value := range values {
			cleaned.Add(name, sanitizeString(value))
		}
	}
	r.URL.RawQuery = cleaned.Encode()
}

func sanitizeJSONBody(r *http.Request, maxBytes int64) {
	if r == nil || r.Body == nil || r.ContentLength == 0 {
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	_ = r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		r.Body = io.NopCloser(bytes.NewReader(data))
		return
	}
	cleaned, err := json.Marshal(SanitizeValue(decoded, ""))
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(data))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(cleaned))
	r.ContentLength = int64(len(cleaned))
}
