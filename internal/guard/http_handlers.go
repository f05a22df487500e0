// Package guard provides HTTP handlers for the portal surface.
package guard

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMaxBodyBytes = 1 << 20

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (t *HTTPTransport) handleReady(w http.ResponseWriter, r *http.Request) {
	if t.appReady != nil && t.appReady() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func (t *HTTPTransport) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "pong": true})
}

// handleLogin wraps the credential check with the lockout tracker: check
// the pair before, record failures after, clear on success.
func (t *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req httpLoginRequest
	if err := t.decodeJSON(w, r, &req); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		t.writeError(w, r, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	key := ClientKeyFromRequest(r)

	status := t.guard.IsLoginAllowed(username, key)
	if status.Locked {
		writeLocked(w, status)
		return
	}

	ok, err := t.credentials.Check(r.Context(), username, req.Password)
	if err != nil {
		t.writeError(w, r, http.StatusServiceUnavailable, Wrap(CodeInternal, "login backend unavailable", err))
		return
	}
	if !ok {
		status = t.guard.RecordFailedLogin(username, key)
		if status.Locked {
			writeLocked(w, status)
			return
		}
		remaining := status.Remaining
		writeJSON(w, http.StatusUnauthorized, httpLoginResponse{
			Success:           false,
			Error:             "invalid credentials",
			RemainingAttempts: &remaining,
		})
		return
	}

	t.guard.ClearLoginAttempts(username, key)
	writeJSON(w, http.StatusOK, httpLoginResponse{Success: true})
}

func (t *HTTPTransport) handleBlockedList(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	views := t.guard.BlockedIPs()
	if views == nil {
		views = []BlockedIPView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (t *HTTPTransport) handleBlock(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	var req httpBlockRequest
	if err := t.decodeJSON(w, r, &req); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.IP) == "" {
		t.writeError(w, r, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if err := t.guard.ManualBlockIPFor(strings.TrimSpace(req.IP), req.Reason, duration); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *HTTPTransport) handleUnblock(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		t.writeError(w, r, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	if err := t.guard.UnblockIP(ip); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *HTTPTransport) handleTrustedList(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	entries := t.guard.TrustedIPs()
	views := make([]httpTrustResponse, len(entries))
	for i, entry := range entries {
		views[i] = fromTrustEntry(entry)
	}
	writeJSON(w, http.StatusOK, views)
}

func (t *HTTPTransport) handleTrust(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	var req httpTrustRequest
	if err := t.decodeJSON(w, r, &req); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.IP) == "" {
		t.writeError(w, r, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	if err := t.guard.TrustIP(strings.TrimSpace(req.IP), req.Note); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *HTTPTransport) handleUntrust(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		t.writeError(w, r, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	if err := t.guard.UntrustIP(ip); err != nil {
		t.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *HTTPTransport) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !t.authorizeAdmin(w, r) {
		return
	}
	metrics := t.guard.Metrics()
	if metrics == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, metrics.Snapshot())
}

func (t *HTTPTransport) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return ErrInvalidInput
	}
	maxBytes := t.maxBody
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return ErrInvalidInput
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return ErrInvalidInput
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeLocked(w http.ResponseWriter, status LoginStatus) {
	retry := int(status.Wait.Seconds())
	if retry < 1 {
		retry = 1
	}
	writeJSON(w, http.StatusTooManyRequests, httpLoginResponse{
		Success:     false,
		Error:       "account temporarily locked",
		RetryAfter:  retry,
		LockedUntil: status.LockedUntil.UTC().Format(time.RFC3339),
	})
}

func (t *HTTPTransport) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if t != nil {
		t.logRequestError(r, status, err)
	}
	writeJSON(w, status, httpErrorResponse{Error: err.Error()})
}

func (t *HTTPTransport) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if t == nil || !t.enableAuth {
		return true
	}
	expected := "Bearer " + t.adminToken
	if r.Header.Get("Authorization") != expected {
		t.writeError(w, r, http.StatusUnauthorized, Wrap(CodeUnauthorized, "unauthorized", nil))
		return false
	}
	return true
}

func (t *HTTPTransport) logRequestError(r *http.Request, status int, err error) {
	if t == nil || t.logger == nil || r == nil || err == nil {
		return
	}
	fields := map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		t.logger.Error("http request error", fields)
		return
	}
	t.logger.Info("http request error", fields)
}
