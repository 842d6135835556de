// Package scoring derives deterministic reputation scores for catalog cities.
package scoring

import (
	"fmt"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

// Dimension names one score axis. It is part of the hash seed.
type Dimension string

const (
	Culture   Dimension = "culture"
	Adventure Dimension = "adventure"
	Nature    Dimension = "nature"
	Beach     Dimension = "beach"
	Nightlife Dimension = "nightlife"
)

type scoreRange struct{ lo, hi int }

var (
	cultureBase    = scoreRange{4, 7}
	cultureCapital = scoreRange{8, 10}

	adventureBase = scoreRange{3, 7}
	adventureHub  = scoreRange{8, 10}

	natureBase = scoreRange{4, 7}
	natureRich = scoreRange{8, 10}

	beachBase    = scoreRange{1, 4}
	beachCoastal = scoreRange{5, 7}
	beachCity    = scoreRange{8, 10}

	nightlifeBase  = scoreRange{3, 7}
	nightlifeParty = scoreRange{8, 10}
)

func set(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = struct{}{}
	}
	return out
}

var (
	beachCities = set(
		"Barcelona", "Nice", "Rio de Janeiro", "Sydney", "Honolulu", "Miami", "Cancun",
		"Bali", "Phuket", "Cape Town", "Lisbon", "Dubrovnik", "Santorini", "Mykonos",
		"Gold Coast", "Tulum", "Zanzibar City", "Goa", "Malé", "San Diego", "Valencia",
		"Split", "Nassau", "Punta Cana", "Boracay", "Da Nang", "Cartagena", "Durban",
		"Florianópolis", "Tel Aviv", "Havana", "Colombo",
	)
	culturalCapitals = set(
		"Paris", "Rome", "Florence", "Kyoto", "Istanbul", "Vienna", "Prague", "Athens",
		"Cairo", "Beijing", "London", "Madrid", "St. Petersburg", "Jerusalem", "Varanasi",
		"Mexico City", "Cusco", "Marrakech", "Barcelona", "Venice", "Berlin", "Budapest",
		"Kraków", "Seville", "Edinburgh", "Amsterdam", "Tokyo", "Lisbon", "Xi'an",
		"Buenos Aires", "Fez", "Luang Prabang",
	)
	partyCities = set(
		"Berlin", "Ibiza", "Las Vegas", "Miami", "Rio de Janeiro", "Amsterdam", "Bangkok",
		"Barcelona", "Belgrade", "Budapest", "New Orleans", "Tel Aviv", "Mykonos",
		"Buenos Aires", "Seoul", "Tokyo", "New York City", "London", "Madrid", "Prague",
		"Havana", "Medellín",
	)
	adventureDestinations = set(
		"Queenstown", "Interlaken", "Cusco", "Kathmandu", "Reykjavik", "Cape Town",
		"Banff", "Moab", "Chamonix", "La Paz", "Ushuaia", "Puerto Natales", "Arusha",
		"Pokhara", "Whistler", "Victoria Falls", "Medellín", "Tromsø", "Hanoi",
		"San Pedro de Atacama", "Bariloche",
	)
	natureRichCities = set(
		"Queenstown", "Banff", "Reykjavik", "Cape Town", "Vancouver", "Interlaken",
		"Ushuaia", "Puerto Natales", "Arusha", "Bergen", "Hobart", "Bali", "Pokhara",
		"Manaus", "Victoria Falls", "Tromsø", "Luang Prabang", "San José", "Bariloche",
		"Kyoto", "Zanzibar City", "Whistler", "Chamonix",
	)
	coastalClimates = set(
		"Tropical", "Mediterranean", "Oceanic", "Subtropical", "Coastal", "Tropical Monsoon",
	)
)

func member(s map[string]struct{}, name string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Score maps a base city to its five reputation scores. It is pure: the same city
// always yields identical scores.
func Score(city destination.BaseCity) destination.CityScores {
	return destination.CityScores{
		Culture:   pick(city, Culture, tier(member(culturalCapitals, city.City), cultureCapital, cultureBase)),
		Adventure: pick(city, Adventure, tier(member(adventureDestinations, city.City), adventureHub, adventureBase)),
		Nature:    pick(city, Nature, tier(member(natureRichCities, city.City), natureRich, natureBase)),
		Beach:     pick(city, Beach, beachTier(city)),
		Nightlife: pick(city, Nightlife, tier(member(partyCities, city.City), nightlifeParty, nightlifeBase)),
	}
}

func beachTier(city destination.BaseCity) scoreRange {
	switch {
	case member(beachCities, city.City):
		return beachCity
	case member(coastalClimates, city.ClimateType):
		return beachCoastal
	default:
		return beachBase
	}
}

func tier(in bool, boosted, base scoreRange) scoreRange {
	if in {
		return boosted
	}
	return base
}

// Seed is the hash input for one city dimension.
func Seed(city destination.BaseCity, d Dimension) string {
	return fmt.Sprintf("%s-%s-%s", city.City, city.Country, d)
}

func pick(city destination.BaseCity, d Dimension, r scoreRange) int {
	span := int64(r.hi - r.lo + 1)
	return clamp(r.lo + int(Hash(Seed(city, d))%span))
}

func clamp(v int) int {
	if v < destination.MinScore {
		return destination.MinScore
	}
	if v > destination.MaxScore {
		return destination.MaxScore
	}
	return v
}
