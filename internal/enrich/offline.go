package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shpitdev/destination-pipeline/internal/scoring"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

// Offline is a network-free Generator. Its output is a deterministic function of
// the city, so offline runs are reproducible.
type Offline struct{}

var _ Generator = Offline{}

var (
	offlineOpeners = []string{
		"%s rewards travellers who take their time.",
		"%s is one of the most distinctive stops in %s.",
		"Few places in %[2]s feel quite like %[1]s.",
		"%s balances everyday life and visitors with ease.",
	}
	offlineAtmosphere = []string{"laid-back", "lively", "historic", "cosmopolitan", "bohemian", "relaxed"}
	offlineFood       = []string{"street-food", "fine-dining", "markets", "cafes", "seafood", "local-cuisine"}
)

// Generate returns a strict JSON enrichment document for req.City.
func (Offline) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	city := req.City
	if strings.TrimSpace(city.City) == "" {
		return "", fmt.Errorf("offline: empty city")
	}
	scores := scoring.Score(city)
	seed := scoring.Hash(city.City + "-" + city.Country)

	doc := responseSchema{
		Description: offlineDescription(city, scores, seed),
		VibeTags:    offlineTags(city, scores, seed),
		Keywords:    offlineKeywords(city, scores),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewOffline returns a Service backed by the Offline generator.
func NewOffline(cfg Config, opts ...Option) *Service {
	s, err := New(Offline{}, cfg, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func offlineDescription(city destination.BaseCity, s destination.CityScores, seed int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, offlineOpeners[seed%int64(len(offlineOpeners))], city.City, city.Country)
	fmt.Fprintf(&b, " Set in %s with a %s climate, it is at its best %s.",
		city.Continent, strings.ToLower(city.ClimateType), lowerFirst(city.BestTimeToVisit))
	if s.Culture >= 8 {
		b.WriteString(" Museums, monuments and old quarters give it a deep cultural pull.")
	}
	if s.Beach >= 8 {
		b.WriteString(" Its beaches are a main reason people come.")
	}
	if s.Adventure >= 8 {
		b.WriteString(" Outdoor adventure is close at hand.")
	}
	if s.Nature >= 8 {
		b.WriteString(" The surrounding landscapes are a highlight in their own right.")
	}
	if s.Nightlife >= 8 {
		b.WriteString(" After dark, the nightlife keeps going late.")
	}
	return b.String()
}

func offlineTags(city destination.BaseCity, s destination.CityScores, seed int64) []string {
	tags := []string{
		"atmosphere:" + offlineAtmosphere[seed%int64(len(offlineAtmosphere))],
		"food:" + offlineFood[(seed/7)%int64(len(offlineFood))],
		"region:" + tagValue(string(city.Continent)),
		"climate:" + tagValue(city.ClimateType),
	}
	for _, d := range []struct {
		score int
		tag   string
	}{
		{s.Culture, "activity:sightseeing"},
		{s.Adventure, "activity:adventure"},
		{s.Nature, "setting:nature"},
		{s.Beach, "setting:beach"},
		{s.Nightlife, "activity:nightlife"},
	} {
		if d.score >= 7 {
			tags = append(tags, d.tag)
		}
	}
	tags = append(tags, "traveller:"+traveller(s))
	return tags
}

func offlineKeywords(city destination.BaseCity, s destination.CityScores) []string {
	name := strings.ToLower(city.City)
	keywords := []string{name, strings.ToLower(city.Country), name + " travel"}
	if s.Beach >= 8 {
		keywords = append(keywords, name+" beaches")
	}
	if s.Culture >= 8 {
		keywords = append(keywords, name+" museums")
	}
	keywords = append(keywords, "things to do in "+name)
	return keywords
}

func traveller(s destination.CityScores) string {
	switch {
	case s.Nightlife >= 8:
		return "groups"
	case s.Adventure >= 8:
		return "adventurers"
	case s.Beach >= 8:
		return "couples"
	default:
		return "everyone"
	}
}

func lowerFirst(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "all year"
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
