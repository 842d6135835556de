package destination

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugDropRe  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
	slugDashRe  = regexp.MustCompile(`-+`)
)

// Slugify lowercases s, strips diacritics and anything outside [a-z0-9], and joins
// words with single hyphens.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	out := strings.ToLower(folded)
	out = slugDropRe.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	out = slugSpaceRe.ReplaceAllString(out, "-")
	out = slugDashRe.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// GenerateObjectID derives the stable record identifier for a city.
func GenerateObjectID(city, country string) string {
	return Slugify(city) + "-" + Slugify(country)
}
