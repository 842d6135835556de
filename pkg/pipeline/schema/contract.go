// Package schema describes the published index contract: which attributes are
// searchable, which are facets, how results are ranked and which synonyms apply.
package schema

import (
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
)

// Field captures the minimal behavior-relevant attributes of a published record.
type Field struct {
	Name       string
	Type       string
	Searchable bool
	Facet      bool
}

// RecordFields lists the attributes of a published destination in JSON order.
var RecordFields = []Field{
	{Name: "objectID", Type: "string"},
	{Name: "city", Type: "string", Searchable: true},
	{Name: "country", Type: "string", Searchable: true, Facet: true},
	{Name: "continent", Type: "string", Facet: true},
	{Name: "description", Type: "string", Searchable: true},
	{Name: "vibe_tags", Type: "string[]", Searchable: true, Facet: true},
	{Name: "keywords", Type: "string[]", Searchable: true},
	{Name: "culture", Type: "int", Facet: true},
	{Name: "adventure", Type: "int", Facet: true},
	{Name: "nature", Type: "int", Facet: true},
	{Name: "beach", Type: "int", Facet: true},
	{Name: "nightlife", Type: "int", Facet: true},
	{Name: "climate_type", Type: "string", Facet: true},
	{Name: "best_time_to_visit", Type: "string"},
	{Name: "image_url", Type: "string"},
}

// Highlight tags wrapped around matched terms.
const (
	HighlightPreTag  = "<mark>"
	HighlightPostTag = "</mark>"
)

// Settings returns the index settings for the destination corpus. Searchable
// attributes are ordered by relevance; descriptions match anywhere in the text.
func Settings() searchindex.Settings {
	return searchindex.Settings{
		SearchableAttributes: []string{
			"city",
			"country",
			"vibe_tags",
			"keywords",
			"unordered(description)",
		},
		AttributesForFaceting: facets(),
		CustomRanking: []string{
			"desc(culture)",
			"desc(adventure)",
			"desc(nature)",
			"desc(beach)",
			"desc(nightlife)",
		},
		HighlightPreTag:  HighlightPreTag,
		HighlightPostTag: HighlightPostTag,
	}
}

func facets() []string {
	var out []string
	for _, f := range RecordFields {
		if !f.Facet {
			continue
		}
		switch f.Name {
		case "country", "vibe_tags":
			out = append(out, "searchable("+f.Name+")")
		default:
			out = append(out, f.Name)
		}
	}
	return out
}

// Synonyms returns the synonym rules published with the corpus.
func Synonyms() []searchindex.Synonym {
	return []searchindex.Synonym{
		{ObjectID: "beach", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"beach", "seaside", "coast", "shore"}},
		{ObjectID: "nightlife", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"nightlife", "party", "clubbing", "bars"}},
		{ObjectID: "culture", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"culture", "history", "heritage", "museums"}},
		{ObjectID: "adventure", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"adventure", "outdoor", "thrill", "extreme sports"}},
		{ObjectID: "nature", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"nature", "wildlife", "scenery", "national park"}},
		{ObjectID: "food", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"food", "cuisine", "gastronomy", "culinary"}},
		{ObjectID: "romantic", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"romantic", "honeymoon", "couples"}},
		{ObjectID: "tropical-beach", Type: searchindex.SynonymTypeOneWaySynonym, Input: "tropical", Synonyms: []string{"beach", "island"}},
		{ObjectID: "ski-mountains", Type: searchindex.SynonymTypeOneWaySynonym, Input: "ski", Synonyms: []string{"mountains", "alpine"}},
	}
}

// IndexName normalizes a configured index name. Blank input yields def.
func IndexName(raw, def string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def
	}
	return s
}
