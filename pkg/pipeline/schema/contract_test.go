package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFieldsMatchPublishedJSON(t *testing.T) {
	b, err := json.Marshal(destination.AssembledCity{})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))

	require.Len(t, doc, len(schema.RecordFields))
	for _, f := range schema.RecordFields {
		assert.Contains(t, doc, f.Name)
	}
}

func TestSettings(t *testing.T) {
	s := schema.Settings()

	assert.Equal(t, "city", s.SearchableAttributes[0])
	assert.Contains(t, s.AttributesForFaceting, "continent")
	assert.Contains(t, s.AttributesForFaceting, "searchable(country)")
	assert.Len(t, s.CustomRanking, 5)
	for _, r := range s.CustomRanking {
		assert.True(t, strings.HasPrefix(r, "desc("), r)
	}
	assert.Equal(t, "<mark>", s.HighlightPreTag)
	assert.Equal(t, "</mark>", s.HighlightPostTag)
}

func TestSynonymsHaveUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, syn := range schema.Synonyms() {
		require.False(t, seen[syn.ObjectID], syn.ObjectID)
		seen[syn.ObjectID] = true
		assert.NotEmpty(t, syn.Synonyms)
	}
}

func TestIndexName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default", in: "", want: "destinations"},
		{name: "blank", in: "  ", want: "destinations"},
		{name: "explicit", in: " travel_prod ", want: "travel_prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schema.IndexName(tt.in, "destinations"); got != tt.want {
				t.Fatalf("IndexName(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}
