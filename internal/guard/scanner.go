// Package guard provides threat pattern scanning.
package guard

import "strings"

// ThreatSignature pairs a label with the lowercase substring it matches.
type ThreatSignature struct {
	Label  string
	Needle string
}

// ThreatScanner inspects serialized request content against a fixed list of
// known-malicious patterns. A match is binary and terminal; there is no
// partial sanitization.
type ThreatScanner struct {
	signatures []ThreatSignature
}

// NewThreatScanner constructs a scanner with the default signature set.
func NewThreatScanner() *ThreatScanner {
	return &ThreatScanner{signatures: defaultSignatures()}
}

func defaultSignatures() []ThreatSignature {
	return []ThreatSignature{
		{Label: "script injection", Needle: "<script"},
		{Label: "script injection", Needle: "javascript:"},
		{Label: "script injection", Needle: "onerror="},
		{Label: "sql injection", Needle: "union select"},
		{Label: "sql injection", Needle: "drop table"},
		{Label: "sql injection", Needle: "' or '1'='1"},
		{Label: "sql injection", Needle: "\" or \"1\"=\"1"},
		{Label: "path traversal", Needle: "../"},
		{Label: "path traversal", Needle: "..\\"},
		{Label: "path traversal", Needle: "..%2f"},
		{Label: "sensitive file probe", Needle: "/etc/passwd"},
		{Label: "sensitive file probe", Needle: "/.env"},
		{Label: "sensitive file probe", Needle: "wp-config"},
	}
}

// Scan checks the raw path and serialized payload content. It returns the
// matched signature label and true on the first hit.
func (s *ThreatScanner) Scan(path, payload string) (string, bool) {
	if s == nil {
		return "", false
	}
	content := strings.ToLower(path + "\n" + payload)
	for _, sig := range s.signatures {
		if strings.Contains(content, sig.Needle) {
			return sig.Label, true
		}
	}
	return "", false
}
