package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shpitdev/destination-pipeline/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "SEARCH_APP_ID", "SEARCH_ADMIN_API_KEY",
		"DESTINATIONS_ENRICHMENT_APIKEY", "DESTINATIONS_SEARCH_APPID", "DESTINATIONS_SEARCH_APIKEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Mode)
	assert.Equal(t, 3, cfg.Enrichment.MaxRetries)
	assert.Equal(t, time.Second, cfg.Enrichment.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Enrichment.RequestTimeout)
	assert.Equal(t, 5, cfg.Enrichment.Concurrency)
	assert.Equal(t, 1000, cfg.Search.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.TaskPollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Search.TaskTimeout)
	assert.Equal(t, "destinations", cfg.Search.IndexName)

	assert.Equal(t, config.ProviderOffline, cfg.EnrichmentProvider())
	assert.Equal(t, config.ProviderMemory, cfg.SearchProvider())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DESTINATIONS_PIPELINE_CITYCOUNT", "7")
	t.Setenv("DESTINATIONS_ENRICHMENT_BASEDELAY", "250ms")
	t.Setenv("GOOGLE_GEMINI_API_KEY", "gem-key")
	t.Setenv("SEARCH_APP_ID", "APP")
	t.Setenv("SEARCH_ADMIN_API_KEY", "admin")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pipeline.CityCount)
	assert.Equal(t, 250*time.Millisecond, cfg.Enrichment.BaseDelay)
	assert.Equal(t, "gem-key", cfg.Enrichment.APIKey)
	assert.Equal(t, config.ProviderGemini, cfg.EnrichmentProvider())
	assert.Equal(t, config.ProviderRemote, cfg.SearchProvider())
}

func TestLoad_PrefixedSecretWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DESTINATIONS_ENRICHMENT_APIKEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "plain")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Enrichment.APIKey)
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("mode: production\nsearch:\n  indexName: travel\n  batchSize: 50\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Mode)
	assert.Equal(t, "travel", cfg.Search.IndexName)
	assert.Equal(t, 50, cfg.Search.BatchSize)
	assert.Equal(t, 5, cfg.Enrichment.Concurrency)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("enrichment:\n  provider: gemini\n  concurrency: 0\n"), 0o600))
	_, err = config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires GEMINI_API_KEY")
	assert.Contains(t, err.Error(), "concurrency")
}
