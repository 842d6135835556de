package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

var (
	// ErrNoJSONObject is returned when the model text has no balanced {...} object.
	ErrNoJSONObject = errors.New("no JSON object in response")
	// ErrInvalidEnrichment is returned when the object lacks a description or vibe tags.
	ErrInvalidEnrichment = errors.New("invalid enrichment")
)

type responseSchema struct {
	Description string   `json:"description"`
	VibeTags    []string `json:"vibe_tags"`
	Keywords    []string `json:"keywords"`
}

// ParseResponse extracts the first balanced JSON object from model text and
// validates it as an EnrichmentResult. Keywords default to an empty list.
func ParseResponse(text string) (destination.EnrichmentResult, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return destination.EnrichmentResult{}, ErrNoJSONObject
	}
	var parsed responseSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return destination.EnrichmentResult{}, fmt.Errorf("parse enrichment json: %w", err)
	}

	out := destination.EnrichmentResult{
		Description: strings.TrimSpace(parsed.Description),
		VibeTags:    cleanList(parsed.VibeTags),
		Keywords:    cleanList(parsed.Keywords),
	}
	if out.Description == "" {
		return destination.EnrichmentResult{}, fmt.Errorf("%w: empty description", ErrInvalidEnrichment)
	}
	if len(out.VibeTags) == 0 {
		return destination.EnrichmentResult{}, fmt.Errorf("%w: no vibe_tags", ErrInvalidEnrichment)
	}
	return out, nil
}

// ExtractJSONObject returns the first balanced {...} span in text. Braces inside
// JSON strings are ignored.
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
