// Package guard defines HTTP wire models.
package guard

import "time"

type guardFailure struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

type httpErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type httpLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type httpLoginResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
	RetryAfter        int    `json:"retryAfter,omitempty"`
	LockedUntil       string `json:"lockedUntil,omitempty"`
}

type httpBlockRequest struct {
	IP              string `json:"ip"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"durationMinutes"`
}

type httpTrustRequest struct {
	IP   string `json:"ip"`
	Note string `json:"note"`
}

type httpTrustResponse struct {
	IP      string    `json:"ip"`
	Note    string    `json:"note,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

func fromTrustEntry(entry TrustEntry) httpTrustResponse {
	return httpTrustResponse{IP: entry.Key, Note: entry.Note, AddedAt: entry.AddedAt}
}
