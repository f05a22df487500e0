package guard

import "testing"

func TestThreatScanner_Scan(t *testing.T) {
	t.Parallel()

	scanner := NewThreatScanner()

	tests := []struct {
		name      string
		path      string
		payload   string
		wantLabel string
		wantHit   bool
	}{
		{
			name:    "clean request",
			path:    "/v1/portal/ping",
			payload: `{"q":"hello world"}`,
		},
		{
			name:      "script tag in payload",
			path:      "/v1/portal/ping",
			payload:   `{"bio":"<SCRIPT>alert(1)</script>"}`,
			wantLabel: "script injection",
			wantHit:   true,
		},
		{
			name:      "javascript scheme",
			path:      "/v1/portal/ping",
			payload:   `{"link":"JavaScript:void(0)"}`,
			wantLabel: "script injection",
			wantHit:   true,
		},
		{
			name:      "union select",
			path:      "/v1/portal/ping",
			payload:   `{"q":"1 UNION SELECT password FROM users"}`,
			wantLabel: "sql injection",
			wantHit:   true,
		},
		{
			name:      "quoted tautology",
			path:      "/v1/portal/ping",
			payload:   `{"q":"' OR '1'='1"}`,
			wantLabel: "sql injection",
			wantHit:   true,
		},
		{
			name:      "traversal in path",
			path:      "/v1/files/../../etc/shadow",
			wantLabel: "path traversal",
			wantHit:   true,
		},
		{
			name:      "encoded traversal",
			path:      "/v1/files/..%2F..%2Fsecret",
			wantLabel: "path traversal",
			wantHit:   true,
		},
		{
			name:      "passwd probe",
			path:      "/etc/passwd",
			wantLabel: "sensitive file probe",
			wantHit:   true,
		},
		{
			name:      "dotenv probe",
			path:      "/.env",
			wantLabel: "sensitive file probe",
			wantHit:   true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			label, hit := scanner.Scan(tc.path, tc.payload)
			if hit != tc.wantHit {
				t.Fatalf("expected hit=%v got %v (label %q)", tc.wantHit, hit, label)
			}
			if label != tc.wantLabel {
				t.Fatalf("expected label %q got %q", tc.wantLabel, label)
			}
		})
	}
}

func TestThreatScanner_NilReceiver(t *testing.T) {
	t.Parallel()

	var scanner *ThreatScanner
	if label, hit := scanner.Scan("/etc/passwd", ""); hit || label != "" {
		t.Fatalf("expected nil scanner to pass everything")
	}
}
