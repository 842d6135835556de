package destination_test

import (
	"encoding/json"
	"testing"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCity() destination.AssembledCity {
	return destination.AssembledCity{
		ObjectID:        "paris-france",
		City:            "Paris",
		Country:         "France",
		Continent:       destination.Europe,
		Description:     "Paris is a city of boulevards and bistros.",
		VibeTags:        []string{"romantic", "museums"},
		Keywords:        []string{"eiffel tower"},
		Culture:         10,
		Adventure:       5,
		Nature:          4,
		Beach:           1,
		Nightlife:       8,
		ClimateType:     "Oceanic",
		BestTimeToVisit: "April to June",
		ImageURL:        "https://picsum.photos/seed/1/800/600",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*destination.AssembledCity)
		valid  bool
	}{
		{name: "fully populated", mutate: func(*destination.AssembledCity) {}, valid: true},
		{name: "empty objectID", mutate: func(c *destination.AssembledCity) { c.ObjectID = "" }},
		{name: "empty vibe tags", mutate: func(c *destination.AssembledCity) { c.VibeTags = nil }},
		{name: "score zero", mutate: func(c *destination.AssembledCity) { c.Beach = 0 }},
		{name: "score eleven", mutate: func(c *destination.AssembledCity) { c.Culture = 11 }},
		{name: "empty description", mutate: func(c *destination.AssembledCity) { c.Description = "  " }},
		{name: "empty image url", mutate: func(c *destination.AssembledCity) { c.ImageURL = "" }},
		{name: "empty continent", mutate: func(c *destination.AssembledCity) { c.Continent = "" }},
		{name: "keywords may be empty", mutate: func(c *destination.AssembledCity) { c.Keywords = nil }, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCity()
			tt.mutate(&c)
			assert.Equal(t, tt.valid, destination.IsValid(c), "problems: %v", destination.Validate(c))
		})
	}
}

func TestValidate_ListsEveryProblem(t *testing.T) {
	problems := destination.Validate(destination.AssembledCity{})
	// 8 strings, vibe tags, 5 scores.
	assert.Len(t, problems, 14)
}

func TestValidateDocument(t *testing.T) {
	base := func() map[string]any {
		b, err := json.Marshal(validCity())
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(b, &doc))
		return doc
	}

	assert.True(t, destination.ValidateDocument(base()))

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "fractional score", mutate: func(d map[string]any) { d["nature"] = 7.5 }},
		{name: "string score", mutate: func(d map[string]any) { d["nature"] = "7" }},
		{name: "zero score", mutate: func(d map[string]any) { d["beach"] = float64(0) }},
		{name: "eleven score", mutate: func(d map[string]any) { d["beach"] = float64(11) }},
		{name: "missing objectID", mutate: func(d map[string]any) { delete(d, "objectID") }},
		{name: "empty vibe tags", mutate: func(d map[string]any) { d["vibe_tags"] = []any{} }},
		{name: "non-string tag", mutate: func(d map[string]any) { d["vibe_tags"] = []any{"ok", 3.0} }},
		{name: "empty description", mutate: func(d map[string]any) { d["description"] = "" }},
		{name: "empty image url", mutate: func(d map[string]any) { d["image_url"] = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)
			assert.False(t, destination.ValidateDocument(doc))
		})
	}
}
