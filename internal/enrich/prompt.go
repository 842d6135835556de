package enrich

import (
	"fmt"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

// SystemInstruction is sent with every generation request.
var SystemInstruction = strings.TrimSpace(`
You are a travel content writer producing search-index records for a destination discovery app.

For the destination you are given, return ONLY a single JSON object with these keys:
- description (string): 150-250 words describing the character of the place, what a traveller
  does there, and who it suits. Plain prose, no markdown, no lists.
- vibe_tags (array of strings): 8-12 short lowercase tags, grouped by category with a prefix,
  e.g. "atmosphere:laid-back", "activity:hiking", "food:street-food", "setting:coastal",
  "traveller:families".
- keywords (array of strings): 5-8 search keywords a traveller might type to find this place.

Rules:
- Output strict JSON. No prose before or after the object, no code fences.
- Do not invent prices, opening hours or events with dates.
- Do not include extra keys.
`)

// BuildPrompt renders the per-city user prompt.
func BuildPrompt(city destination.BaseCity) string {
	var b strings.Builder
	b.WriteString("Write the record for this destination.\n\n")
	fmt.Fprintf(&b, "City: %s\n", city.City)
	fmt.Fprintf(&b, "Country: %s\n", city.Country)
	fmt.Fprintf(&b, "Continent: %s\n", city.Continent)
	fmt.Fprintf(&b, "Climate: %s\n", city.ClimateType)
	fmt.Fprintf(&b, "Best time to visit: %s\n", city.BestTimeToVisit)
	return b.String()
}
