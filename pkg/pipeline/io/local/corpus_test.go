package local_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/io/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []destination.AssembledCity {
	return []destination.AssembledCity{{
		ObjectID:        "sao-paulo-brazil",
		City:            "São Paulo",
		Country:         "Brazil",
		Continent:       destination.SouthAmerica,
		Description:     "Food & art <everywhere>.",
		VibeTags:        []string{"culture:art", "food:street"},
		Keywords:        []string{},
		Culture:         9,
		Adventure:       4,
		Nature:          5,
		Beach:           2,
		Nightlife:       8,
		ClimateType:     "Subtropical",
		BestTimeToVisit: "April to June",
		ImageURL:        "https://picsum.photos/seed/1/800/600",
	}}
}

func TestWriteCorpus_PrettyAndUnescaped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, local.WriteCorpus(&buf, sample()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[\n  {\n"), out)
	assert.Contains(t, out, `"Food & art <everywhere>."`)
	assert.Contains(t, out, `"objectID": "sao-paulo-brazil"`)

	got, err := local.ReadCorpus(&buf)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestWriteCorpus_NilIsEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, local.WriteCorpus(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestCorpusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corpus.json")
	require.NoError(t, local.WriteCorpusFile(path, sample()))

	got, err := local.ReadCorpusFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestReadCorpus_Errors(t *testing.T) {
	_, err := local.ReadCorpus(strings.NewReader(`{"not":"an array"}`))
	require.Error(t, err)

	_, err = local.ReadCorpusFile(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, local.WriteSummaryCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "objectID", rows[0][0])
	assert.Equal(t, []string{
		"sao-paulo-brazil", "São Paulo", "Brazil", "South America",
		"9", "4", "5", "2", "8", "Subtropical", "culture:art|food:street",
	}, rows[1])
}
