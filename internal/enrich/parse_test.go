package enrich_test

import (
	"testing"

	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantErr      error
		wantAnyErr   bool
		wantDesc     string
		wantTags     []string
		wantKeywords []string
	}{
		{
			name:         "strict json",
			in:           `{"description":"Sunny.","vibe_tags":["setting:beach"],"keywords":["sun"]}`,
			wantDesc:     "Sunny.",
			wantTags:     []string{"setting:beach"},
			wantKeywords: []string{"sun"},
		},
		{
			name:         "wrapped in prose and fences",
			in:           "Sure! Here you go:\n```json\n{\"description\": \" Calm. \", \"vibe_tags\": [\"a\", \" \", \"b\"]}\n```\nEnjoy.",
			wantDesc:     "Calm.",
			wantTags:     []string{"a", "b"},
			wantKeywords: []string{},
		},
		{
			name:         "braces inside strings",
			in:           `{"description":"Curly } braces { and \"quotes\"","vibe_tags":["x"]} {"description":"second"}`,
			wantDesc:     `Curly } braces { and "quotes"`,
			wantTags:     []string{"x"},
			wantKeywords: []string{},
		},
		{
			name:    "no object",
			in:      "I cannot help with that.",
			wantErr: enrich.ErrNoJSONObject,
		},
		{
			name:    "unbalanced",
			in:      `{"description":"x","vibe_tags":["a"]`,
			wantErr: enrich.ErrNoJSONObject,
		},
		{
			name:    "empty description",
			in:      `{"description":"  ","vibe_tags":["a"]}`,
			wantErr: enrich.ErrInvalidEnrichment,
		},
		{
			name:    "missing tags",
			in:      `{"description":"ok"}`,
			wantErr: enrich.ErrInvalidEnrichment,
		},
		{
			name:       "tags not strings",
			in:         `{"description":"ok","vibe_tags":[1,2]}`,
			wantAnyErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enrich.ParseResponse(tt.in)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantAnyErr:
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, tt.wantTags, got.VibeTags)
			assert.Equal(t, tt.wantKeywords, got.Keywords)
		})
	}
}

func TestExtractJSONObject_SkipsUnbalancedPrefix(t *testing.T) {
	got, ok := enrich.ExtractJSONObject(`{ {"a":1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, got)
}
