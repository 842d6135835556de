// Package config loads pipeline configuration from config.yml and the environment.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// EnvPrefix prefixes every environment override, e.g. DESTINATIONS_SEARCH_INDEXNAME.
const EnvPrefix = "DESTINATIONS"

// Provider names.
const (
	ProviderAuto    = "auto"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
	ProviderRemote  = "remote"
	ProviderMemory  = "memory"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"logLevel"`

	Pipeline struct {
		CityCount          int    `mapstructure:"cityCount"`
		DryRun             bool   `mapstructure:"dryRun"`
		SkipEnrichment     bool   `mapstructure:"skipEnrichment"`
		PrefetchEnrichment bool   `mapstructure:"prefetchEnrichment"`
		OutputFile         string `mapstructure:"outputFile"`
		SummaryCSV         string `mapstructure:"summaryCSV"`
		Schedule           string `mapstructure:"schedule"`
	} `mapstructure:"pipeline"`

	Enrichment struct {
		Provider       string        `mapstructure:"provider"`
		APIKey         string        `mapstructure:"apiKey"`
		Model          string        `mapstructure:"model"`
		BaseURL        string        `mapstructure:"baseURL"`
		Temperature    float32       `mapstructure:"temperature"`
		MaxRetries     int           `mapstructure:"maxRetries"`
		BaseDelay      time.Duration `mapstructure:"baseDelay"`
		MaxDelay       time.Duration `mapstructure:"maxDelay"`
		Concurrency    int           `mapstructure:"concurrency"`
		RequestTimeout time.Duration `mapstructure:"requestTimeout"`
		RateLimitRPS   float64       `mapstructure:"rateLimitRPS"`
		CacheTTL       time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"enrichment"`

	Search struct {
		Provider          string        `mapstructure:"provider"`
		BaseURL           string        `mapstructure:"baseURL"`
		AppID             string        `mapstructure:"appID"`
		APIKey            string        `mapstructure:"apiKey"`
		IndexName         string        `mapstructure:"indexName"`
		BatchSize         int           `mapstructure:"batchSize"`
		WaitForCompletion bool          `mapstructure:"waitForCompletion"`
		TaskPollInterval  time.Duration `mapstructure:"taskPollInterval"`
		TaskTimeout       time.Duration `mapstructure:"taskTimeout"`
	} `mapstructure:"search"`

	Observability struct {
		MetricsAddr string `mapstructure:"metricsAddr"`
	} `mapstructure:"observability"`
}

// secretEnv lists the unprefixed variables accepted for credentials, in
// priority order after the prefixed form.
var secretEnv = map[string][]string{
	"enrichment.apiKey": {"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY"},
	"search.appID":      {"SEARCH_APP_ID"},
	"search.apiKey":     {"SEARCH_ADMIN_API_KEY"},
}

// Load reads the embedded defaults, merges path (or config.yml found in ., config
// or /app/config when path is empty) and applies environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("read embedded config: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.AddConfigPath("/app/config")
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range secretEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Pipeline.CityCount < 0 {
		errs = append(errs, errors.New("pipeline.cityCount must be >= 0"))
	}
	switch c.EnrichmentProvider() {
	case ProviderGemini, ProviderOffline:
	default:
		errs = append(errs, fmt.Errorf("enrichment.provider %q is not one of auto, gemini, offline", c.Enrichment.Provider))
	}
	if c.EnrichmentProvider() == ProviderGemini && strings.TrimSpace(c.Enrichment.APIKey) == "" {
		errs = append(errs, errors.New("enrichment.provider gemini requires GEMINI_API_KEY"))
	}
	if c.Enrichment.MaxRetries < 0 {
		errs = append(errs, errors.New("enrichment.maxRetries must be >= 0"))
	}
	if c.Enrichment.Concurrency < 1 {
		errs = append(errs, errors.New("enrichment.concurrency must be >= 1"))
	}
	switch c.SearchProvider() {
	case ProviderRemote, ProviderMemory:
	default:
		errs = append(errs, fmt.Errorf("search.provider %q is not one of auto, remote, memory", c.Search.Provider))
	}
	if c.SearchProvider() == ProviderRemote && (c.Search.AppID == "" || c.Search.APIKey == "") {
		errs = append(errs, errors.New("search.provider remote requires SEARCH_APP_ID and SEARCH_ADMIN_API_KEY"))
	}
	if c.Search.BatchSize < 1 {
		errs = append(errs, errors.New("search.batchSize must be >= 1"))
	}
	return errors.Join(errs...)
}

// EnrichmentProvider resolves "auto" to gemini when an API key is present.
func (c Config) EnrichmentProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.Enrichment.Provider))
	if p == "" || p == ProviderAuto {
		if strings.TrimSpace(c.Enrichment.APIKey) != "" {
			return ProviderGemini
		}
		return ProviderOffline
	}
	return p
}

// SearchProvider resolves "auto" to remote when credentials are present.
func (c Config) SearchProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.Search.Provider))
	if p == "" || p == ProviderAuto {
		if c.Search.AppID != "" && c.Search.APIKey != "" {
			return ProviderRemote
		}
		return ProviderMemory
	}
	return p
}
