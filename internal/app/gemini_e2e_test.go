//go:build gemini_e2e

package app_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shpitdev/destination-pipeline/config"
	"github.com/shpitdev/destination-pipeline/internal/app"
	"github.com/shpitdev/destination-pipeline/internal/pipeline"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/stretchr/testify/require"
)

func TestRun_RealGemini_EndToEnd(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Fatalf("GEMINI_API_KEY is required for gemini_e2e tests")
	}

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Enrichment.Provider = config.ProviderGemini
	cfg.Enrichment.APIKey = apiKey
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.Enrichment.Model = model
	}
	cfg.Enrichment.BaseURL = os.Getenv("GEMINI_BASE_URL")
	cfg.Enrichment.Concurrency = 2

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, quietLogger())
	require.NoError(t, err)

	res := a.Run(ctx, pipeline.Options{DryRun: true, PrefetchEnrichment: true, CityCount: 2})
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Cities, 2)
	for _, c := range res.Cities {
		require.True(t, destination.IsValid(c), "%s: %v", c.ObjectID, destination.Validate(c))
		require.GreaterOrEqual(t, len(c.VibeTags), 3, c.ObjectID)
	}
}
