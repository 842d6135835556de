package destination_test

import (
	"testing"
	"unicode"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/stretchr/testify/assert"
)

func TestGenerateObjectID(t *testing.T) {
	assert.Equal(t, "paris-france", destination.GenerateObjectID("Paris", "France"))
	assert.Equal(t, "new-york-city-united-states", destination.GenerateObjectID("New York City", "United States"))
	assert.Equal(t, "sao-paulo-brazil", destination.GenerateObjectID("São Paulo", "Brazil"))
	assert.Equal(t, "reykjavik-iceland", destination.GenerateObjectID("Reykjavík", "Iceland"))
	assert.Equal(t, "cote-divoire-abidjan", destination.GenerateObjectID("Côte d'Ivoire", "Abidjan"))
}

func TestGenerateObjectID_ASCIIOnly(t *testing.T) {
	for _, in := range [][2]string{
		{"São Paulo", "Brazil"},
		{"Kraków", "Poland"},
		{"Zürich", "Switzerland"},
		{"Malmö", "Sweden"},
		{"Ho Chi Minh City", "Việt Nam"},
	} {
		id := destination.GenerateObjectID(in[0], in[1])
		for _, r := range id {
			assert.True(t, r < unicode.MaxASCII, "non-ASCII rune %q in %q", r, id)
		}
		assert.NotContains(t, id, "--")
	}
}

func TestSlugify_TrimsAndCollapses(t *testing.T) {
	assert.Equal(t, "rio-de-janeiro", destination.Slugify("  Rio   de -- Janeiro!  "))
	assert.Equal(t, "", destination.Slugify("!!!"))
}

func TestParseContinent(t *testing.T) {
	c, ok := destination.ParseContinent(" north america ")
	assert.True(t, ok)
	assert.Equal(t, destination.NorthAmerica, c)
	assert.True(t, c.Inhabited())

	c, ok = destination.ParseContinent("Antarctica")
	assert.True(t, ok)
	assert.False(t, c.Inhabited())

	_, ok = destination.ParseContinent("Atlantis")
	assert.False(t, ok)
}
