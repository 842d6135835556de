package enrich

import (
	"fmt"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

// Fallback returns canned enrichment that names the city and country, so readers
// of the index can tell it is placeholder content.
func Fallback(city destination.BaseCity) destination.EnrichmentResult {
	tags := []string{"travel:destination"}
	if c := tagValue(string(city.Continent)); c != "" {
		tags = append(tags, "region:"+c)
	}
	if c := tagValue(city.ClimateType); c != "" {
		tags = append(tags, "climate:"+c)
	}

	keywords := []string{}
	for _, k := range []string{city.City, city.Country, string(city.Continent)} {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, strings.ToLower(k))
		}
	}

	return destination.EnrichmentResult{
		Description: fmt.Sprintf(
			"%s is a destination in %s. A detailed description is not available yet; "+
				"the climate is %s and the best time to visit is %s.",
			city.City, city.Country, orUnknown(city.ClimateType), orUnknown(city.BestTimeToVisit),
		),
		VibeTags: tags,
		Keywords: keywords,
	}
}

func tagValue(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s)
}
