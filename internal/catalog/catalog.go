// Package catalog produces the base list of destinations from the bundled dataset.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var citiesYAML []byte

// Entry is one raw row of a catalog dataset. Fields are kept as plain strings so
// malformed rows can be recognised and dropped instead of failing the decode.
type Entry struct {
	City            string `yaml:"city"`
	Country         string `yaml:"country"`
	Continent       string `yaml:"continent"`
	ClimateType     string `yaml:"climate_type"`
	BestTimeToVisit string `yaml:"best_time_to_visit"`
}

type document struct {
	Cities []Entry `yaml:"cities"`
}

var (
	loadOnce sync.Once
	bundled  []Entry
)

// Generate returns the bundled catalog: malformed rows dropped, duplicates
// (case-insensitive city and country) removed with the first occurrence kept.
// The result is a fresh slice on every call.
func Generate() []destination.BaseCity {
	loadOnce.Do(func() {
		entries, err := Parse(citiesYAML)
		if err != nil {
			// The dataset is compiled in; a decode failure is a build defect.
			panic(fmt.Sprintf("catalog: bundled dataset: %v", err))
		}
		bundled = entries
	})
	return FromEntries(bundled)
}

// Parse decodes a YAML catalog document with a top-level "cities" list.
func Parse(data []byte) ([]Entry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return doc.Cities, nil
}

// FromEntries cleans raw entries into base cities, preserving input order.
func FromEntries(entries []Entry) []destination.BaseCity {
	out := make([]destination.BaseCity, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		city, ok := normalize(e)
		if !ok {
			continue
		}
		key := city.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, city)
	}
	return out
}

func normalize(e Entry) (destination.BaseCity, bool) {
	city := destination.BaseCity{
		City:            strings.TrimSpace(e.City),
		Country:         strings.TrimSpace(e.Country),
		ClimateType:     strings.TrimSpace(e.ClimateType),
		BestTimeToVisit: strings.TrimSpace(e.BestTimeToVisit),
	}
	if city.City == "" || city.Country == "" || city.ClimateType == "" || city.BestTimeToVisit == "" {
		return destination.BaseCity{}, false
	}
	continent, ok := destination.ParseContinent(e.Continent)
	if !ok || !continent.Inhabited() {
		return destination.BaseCity{}, false
	}
	city.Continent = continent
	return city, true
}

// Limit returns the first n cities, or all of them when n <= 0 or n exceeds the list.
func Limit(cities []destination.BaseCity, n int) []destination.BaseCity {
	if n <= 0 || n >= len(cities) {
		return cities
	}
	return cities[:n]
}
