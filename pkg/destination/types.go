// Package destination holds the records that flow through the destination pipeline:
// the base catalog entry, its reputation scores, its enrichment and the assembled,
// publishable record.
package destination

import "strings"

// Continent is one of the seven continents.
type Continent string

const (
	Africa       Continent = "Africa"
	Antarctica   Continent = "Antarctica"
	Asia         Continent = "Asia"
	Europe       Continent = "Europe"
	NorthAmerica Continent = "North America"
	Oceania      Continent = "Oceania"
	SouthAmerica Continent = "South America"
)

// Continents lists every continent in a stable order.
var Continents = []Continent{Africa, Antarctica, Asia, Europe, NorthAmerica, Oceania, SouthAmerica}

// ParseContinent matches raw against the known continents, ignoring case and
// surrounding whitespace.
func ParseContinent(raw string) (Continent, bool) {
	raw = strings.TrimSpace(raw)
	for _, c := range Continents {
		if strings.EqualFold(raw, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Inhabited reports whether c is one of the six continents the catalog accepts.
func (c Continent) Inhabited() bool {
	switch c {
	case Africa, Asia, Europe, NorthAmerica, Oceania, SouthAmerica:
		return true
	default:
		return false
	}
}

// BaseCity is a catalog entry before scoring and enrichment.
type BaseCity struct {
	City            string    `json:"city" yaml:"city"`
	Country         string    `json:"country" yaml:"country"`
	Continent       Continent `json:"continent" yaml:"continent"`
	ClimateType     string    `json:"climate_type" yaml:"climate_type"`
	BestTimeToVisit string    `json:"best_time_to_visit" yaml:"best_time_to_visit"`
}

// Key is the case-insensitive identity used for catalog deduplication.
func (b BaseCity) Key() string {
	return strings.ToLower(strings.TrimSpace(b.City)) + "|" + strings.ToLower(strings.TrimSpace(b.Country))
}

// MinScore and MaxScore bound every reputation score.
const (
	MinScore = 1
	MaxScore = 10
)

// CityScores are the five reputation axes, each in [MinScore, MaxScore].
type CityScores struct {
	Culture   int `json:"culture"`
	Adventure int `json:"adventure"`
	Nature    int `json:"nature"`
	Beach     int `json:"beach"`
	Nightlife int `json:"nightlife"`
}

// EnrichmentResult is the natural-language content generated for a city.
type EnrichmentResult struct {
	Description string   `json:"description"`
	VibeTags    []string `json:"vibe_tags"`
	Keywords    []string `json:"keywords"`
}

// AssembledCity is the publishable record, keyed by ObjectID.
type AssembledCity struct {
	ObjectID        string    `json:"objectID"`
	City            string    `json:"city"`
	Country         string    `json:"country"`
	Continent       Continent `json:"continent"`
	Description     string    `json:"description"`
	VibeTags        []string  `json:"vibe_tags"`
	Keywords        []string  `json:"keywords"`
	Culture         int       `json:"culture"`
	Adventure       int       `json:"adventure"`
	Nature          int       `json:"nature"`
	Beach           int       `json:"beach"`
	Nightlife       int       `json:"nightlife"`
	ClimateType     string    `json:"climate_type"`
	BestTimeToVisit string    `json:"best_time_to_visit"`
	ImageURL        string    `json:"image_url"`
}

// Scores returns the record's five reputation scores.
func (a AssembledCity) Scores() CityScores {
	return CityScores{
		Culture:   a.Culture,
		Adventure: a.Adventure,
		Nature:    a.Nature,
		Beach:     a.Beach,
		Nightlife: a.Nightlife,
	}
}

// Base returns the catalog identity the record was assembled from.
func (a AssembledCity) Base() BaseCity {
	return BaseCity{
		City:            a.City,
		Country:         a.Country,
		Continent:       a.Continent,
		ClimateType:     a.ClimateType,
		BestTimeToVisit: a.BestTimeToVisit,
	}
}

// ObjectIDs returns the objectIDs of records in order.
func ObjectIDs(records []AssembledCity) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ObjectID
	}
	return out
}
