package searchindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
)

// errorEnvelope is the error body shape returned by the search API.
type errorEnvelope struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// HTTPError is a sanitized summary of a non-2xx search API response.
//
// Raw response bodies are never included; they can echo keys back.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string

	// Snippet is a redacted, truncated hint for responses without an error envelope.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "search index http error"
	}
	parts := []string{
		fmt.Sprintf("search index api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+redact.Secrets(strings.TrimSpace(e.Message)))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// IsNotFound reports whether err is a 404 from the search API.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 from the search API.
func IsRateLimited(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusTooManyRequests
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Message) != "" {
		h.Message = strings.TrimSpace(env.Message)
		return h
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
