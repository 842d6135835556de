package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

var summaryHeader = []string{
	"objectID", "city", "country", "continent",
	"culture", "adventure", "nature", "beach", "nightlife",
	"climate_type", "vibe_tags",
}

// WriteSummaryCSV writes one row per city with its identity, scores and tags.
// Tags are joined with "|".
func WriteSummaryCSV(w io.Writer, cities []destination.AssembledCity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range cities {
		rec := []string{
			c.ObjectID, c.City, c.Country, string(c.Continent),
			strconv.Itoa(c.Culture),
			strconv.Itoa(c.Adventure),
			strconv.Itoa(c.Nature),
			strconv.Itoa(c.Beach),
			strconv.Itoa(c.Nightlife),
			c.ClimateType,
			strings.Join(c.VibeTags, "|"),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", c.ObjectID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
