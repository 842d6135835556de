package destination

import (
	"fmt"
	"math"
	"strings"
)

var scoreFields = []string{"culture", "adventure", "nature", "beach", "nightlife"}

var requiredStringFields = []string{
	"objectID",
	"city",
	"country",
	"continent",
	"description",
	"climate_type",
	"best_time_to_visit",
	"image_url",
}

// Validate lists every way a deviates from the publishable record contract.
// An empty result means the record is valid.
func Validate(a AssembledCity) []string {
	var problems []string
	strs := map[string]string{
		"objectID":           a.ObjectID,
		"city":               a.City,
		"country":            a.Country,
		"continent":          string(a.Continent),
		"description":        a.Description,
		"climate_type":       a.ClimateType,
		"best_time_to_visit": a.BestTimeToVisit,
		"image_url":          a.ImageURL,
	}
	for _, f := range requiredStringFields {
		if strings.TrimSpace(strs[f]) == "" {
			problems = append(problems, f+" must be a non-empty string")
		}
	}
	if len(a.VibeTags) == 0 {
		problems = append(problems, "vibe_tags must be a non-empty array of strings")
	}
	scores := map[string]int{
		"culture":   a.Culture,
		"adventure": a.Adventure,
		"nature":    a.Nature,
		"beach":     a.Beach,
		"nightlife": a.Nightlife,
	}
	for _, f := range scoreFields {
		if v := scores[f]; v < MinScore || v > MaxScore {
			problems = append(problems, fmt.Sprintf("%s must be an integer in [%d,%d], got %d", f, MinScore, MaxScore, v))
		}
	}
	return problems
}

// IsValid is the boolean form of Validate.
func IsValid(a AssembledCity) bool {
	return len(Validate(a)) == 0
}

// ValidateDocument applies the record contract to an untyped JSON document, such as
// one read back from the search index or an output file. Numbers must be integral.
func ValidateDocument(doc map[string]any) bool {
	for _, f := range requiredStringFields {
		s, ok := doc[f].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return false
		}
	}

	tags, ok := doc["vibe_tags"].([]any)
	if !ok || len(tags) == 0 {
		if st, ok := doc["vibe_tags"].([]string); !ok || len(st) == 0 {
			return false
		}
	}
	for _, t := range tags {
		if _, ok := t.(string); !ok {
			return false
		}
	}

	for _, f := range scoreFields {
		v, ok := integral(doc[f])
		if !ok || v < MinScore || v > MaxScore {
			return false
		}
	}
	return true
}

func integral(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case float32:
		f := float64(n)
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
