package redact_test

import (
	"testing"

	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
)

func TestSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bearer", in: "auth failed: Bearer abc.def.ghi", want: "auth failed: Bearer <redacted>"},
		{name: "api key kv", in: "request failed api_key=s3cr3t status=401", want: "request failed <redacted_kv> status=401"},
		{name: "admin header", in: "X-Algolia-API-Key: abc123", want: "<redacted_kv>"},
		{name: "query param", in: "POST /v1beta/models/m:generateContent?key=AIzaXYZ&alt=json", want: "POST /v1beta/models/m:generateContent?<redacted_kv>&alt=json"},
		{name: "untouched", in: "rate_limit exceeded for lisbon-portugal", want: "rate_limit exceeded for lisbon-portugal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redact.Secrets(tt.in); got != tt.want {
				t.Fatalf("Secrets(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}
