// Package imagery builds deterministic image URLs for destinations. It never
// performs network calls.
package imagery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shpitdev/destination-pipeline/internal/scoring"
)

const (
	Width  = 800
	Height = 600

	seededTemplate      = "https://picsum.photos/seed/%d/%d/%d"
	placeholderTemplate = "https://placehold.co/%dx%d?text=%s"

	// FallbackURL is used when per-city resolution is undesired.
	FallbackURL = "https://picsum.photos/seed/travel-destination/800/600"
)

// Resolver builds image URLs for cities.
type Resolver interface {
	Resolve(city, country string) string
}

// Mode selects the URL shape a Seeded resolver produces.
type Mode int

const (
	// ModeSeeded embeds a numeric seed derived from the city identity.
	ModeSeeded Mode = iota
	// ModePlaceholder renders the city name as visible text.
	ModePlaceholder
	// ModeFallback always returns FallbackURL.
	ModeFallback
)

// ParseMode maps a config value onto a Mode. Unknown values select ModeSeeded.
func ParseMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "placeholder":
		return ModePlaceholder
	case "fallback":
		return ModeFallback
	default:
		return ModeSeeded
	}
}

// Static is a Resolver with a fixed Mode.
type Static struct {
	Mode Mode
}

func (s Static) Resolve(city, country string) string {
	switch s.Mode {
	case ModePlaceholder:
		return Placeholder(city, country)
	case ModeFallback:
		return FallbackURL
	default:
		return Resolve(city, country)
	}
}

// Resolve returns the seeded image URL for a city.
func Resolve(city, country string) string {
	seed := scoring.Hash(fmt.Sprintf("%s-%s", city, country))
	return fmt.Sprintf(seededTemplate, seed, Width, Height)
}

// Placeholder returns an image URL that renders "City, Country" as text.
func Placeholder(city, country string) string {
	text := url.QueryEscape(fmt.Sprintf("%s, %s", city, country))
	return fmt.Sprintf(placeholderTemplate, Width, Height, text)
}

// Validate accepts only absolute http(s) URLs with a host.
func Validate(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
