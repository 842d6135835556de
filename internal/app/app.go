// Package app wires configuration into a runnable pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/destination-pipeline/config"
	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/shpitdev/destination-pipeline/internal/enrich/gemini"
	"github.com/shpitdev/destination-pipeline/internal/index"
	"github.com/shpitdev/destination-pipeline/internal/observability"
	"github.com/shpitdev/destination-pipeline/internal/pipeline"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/schema"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
)

// DefaultIndexName is used when search.indexName is blank.
const DefaultIndexName = "destinations"

// App holds the wired components for one process.
type App struct {
	Config       config.Config
	Logger       *slog.Logger
	Enricher     *enrich.Service
	Index        index.Client
	Orchestrator *pipeline.Orchestrator
}

type settings struct {
	telemetry  *observability.Telemetry
	generator  enrich.Generator
	index      index.Client
	httpClient *http.Client
}

type Option func(*settings)

// WithTelemetry attaches metrics and tracing to every component.
func WithTelemetry(t *observability.Telemetry) Option {
	return func(s *settings) { s.telemetry = t }
}

// WithGenerator replaces the configured enrichment generator.
func WithGenerator(g enrich.Generator) Option {
	return func(s *settings) { s.generator = g }
}

// WithIndex replaces the configured index client.
func WithIndex(c index.Client) Option {
	return func(s *settings) { s.index = c }
}

// WithHTTPClient sets the transport for the search and Gemini clients.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// New builds every component from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var st settings
	for _, opt := range opts {
		opt(&st)
	}

	gen := st.generator
	if gen == nil {
		var err error
		if gen, err = newGenerator(ctx, cfg, st.httpClient); err != nil {
			return nil, err
		}
	}
	traced := newTracedGenerator(gen, logger)

	enrichOpts := []enrich.Option{enrich.WithLogger(logger)}
	if st.telemetry != nil {
		enrichOpts = append(enrichOpts, enrich.WithMetrics(st.telemetry.Metrics))
	}
	// An explicit zero in config disables retries.
	retries := cfg.Enrichment.MaxRetries
	if retries == 0 {
		retries = enrich.NoRetries
	}
	svc, err := enrich.New(traced, enrich.Config{
		MaxRetries:     retries,
		BaseDelay:      cfg.Enrichment.BaseDelay,
		MaxDelay:       cfg.Enrichment.MaxDelay,
		Concurrency:    cfg.Enrichment.Concurrency,
		RequestTimeout: cfg.Enrichment.RequestTimeout,
		RateLimitRPS:   cfg.Enrichment.RateLimitRPS,
		CacheTTL:       cfg.Enrichment.CacheTTL,
	}, enrichOpts...)
	if err != nil {
		return nil, fmt.Errorf("enrichment service: %w", err)
	}
	traced.maxRetries = max(svc.Config().MaxRetries, 0)

	idx := st.index
	if idx == nil {
		if idx, err = newIndex(cfg, logger, st); err != nil {
			return nil, err
		}
	}

	orchOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithConcurrency(cfg.Enrichment.Concurrency),
	}
	if st.telemetry != nil {
		orchOpts = append(orchOpts,
			pipeline.WithMetrics(st.telemetry.Metrics),
			pipeline.WithTracer(st.telemetry.Tracer("github.com/shpitdev/destination-pipeline/internal/pipeline")),
		)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Enricher:     svc,
		Index:        idx,
		Orchestrator: pipeline.New(svc, idx, orchOpts...),
	}, nil
}

func newGenerator(ctx context.Context, cfg config.Config, hc *http.Client) (enrich.Generator, error) {
	if cfg.EnrichmentProvider() != config.ProviderGemini {
		return enrich.Offline{}, nil
	}
	g, err := gemini.New(ctx, gemini.Config{
		APIKey:      cfg.Enrichment.APIKey,
		Model:       cfg.Enrichment.Model,
		BaseURL:     cfg.Enrichment.BaseURL,
		Temperature: cfg.Enrichment.Temperature,
		HTTPClient:  hc,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generator: %w", err)
	}
	return g, nil
}

func newIndex(cfg config.Config, logger *slog.Logger, st settings) (index.Client, error) {
	name := schema.IndexName(cfg.Search.IndexName, DefaultIndexName)
	if cfg.SearchProvider() != config.ProviderRemote {
		logger.Warn("search credentials not configured, publishing to an in-memory index", "index", name)
		mem := index.NewMemory(name)
		if st.telemetry != nil {
			mem.SetMetrics(st.telemetry.Metrics)
		}
		return mem, nil
	}
	api, err := searchindex.NewClient(searchindex.Config{
		BaseURL:          cfg.Search.BaseURL,
		AppID:            cfg.Search.AppID,
		APIKey:           cfg.Search.APIKey,
		HTTPClient:       st.httpClient,
		TaskPollInterval: cfg.Search.TaskPollInterval,
		TaskTimeout:      cfg.Search.TaskTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}
	opts := []index.RemoteOption{index.WithLogger(logger)}
	if st.telemetry != nil {
		opts = append(opts, index.WithMetrics(st.telemetry.Metrics))
	}
	return index.NewRemote(api, name, opts...)
}

// PipelineOptions returns run options from configuration.
func (a *App) PipelineOptions() pipeline.Options {
	p := a.Config.Pipeline
	return pipeline.Options{
		DryRun:             p.DryRun,
		SkipEnrichment:     p.SkipEnrichment,
		CityCount:          p.CityCount,
		OutputFile:         p.OutputFile,
		PrefetchEnrichment: p.PrefetchEnrichment,
		BatchSize:          a.Config.Search.BatchSize,
		WaitForCompletion:  a.Config.Search.WaitForCompletion,
	}
}

// Run executes one pipeline run and writes the summary CSV when configured.
func (a *App) Run(ctx context.Context, opts pipeline.Options) pipeline.Result {
	res := a.Orchestrator.Run(ctx, opts)
	if path := a.Config.Pipeline.SummaryCSV; path != "" && len(res.Cities) > 0 {
		if err := writeSummary(path, res.Cities); err != nil {
			a.Logger.Error("write summary csv", "path", path, "error", err)
		} else {
			a.Logger.Info("summary written", "path", path, "cities", len(res.Cities))
		}
	}
	return res
}

func writeSummary(path string, cities []destination.AssembledCity) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := local.WriteSummaryCSV(f, cities); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// InvalidCorpusError lists records of a corpus file that fail validation.
type InvalidCorpusError struct {
	Problems map[string][]string
}

func (e *InvalidCorpusError) Error() string {
	ids := make([]string, 0, len(e.Problems))
	for id := range e.Problems {
		ids = append(ids, id)
	}
	return fmt.Sprintf("%d invalid records: %s", len(ids), strings.Join(ids, ", "))
}

// Publish uploads a previously written corpus file. Every record is validated
// first and the index is configured before upload.
func (a *App) Publish(ctx context.Context, path string, opts index.UploadOptions) (index.UploadResult, error) {
	cities, err := local.ReadCorpusFile(path)
	if err != nil {
		return index.UploadResult{}, fmt.Errorf("read corpus: %w", err)
	}

	invalid := map[string][]string{}
	seen := make(map[string]bool, len(cities))
	for i, c := range cities {
		id := c.ObjectID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if problems := destination.Validate(c); len(problems) > 0 {
			invalid[id] = problems
			continue
		}
		if seen[id] {
			invalid[id] = []string{"duplicate objectID"}
		}
		seen[id] = true
	}
	if len(invalid) > 0 {
		return index.UploadResult{}, &InvalidCorpusError{Problems: invalid}
	}

	if err := a.Index.ConfigureSettings(ctx, schema.Settings()); err != nil {
		return index.UploadResult{}, err
	}
	if err := a.Index.ConfigureSynonyms(ctx, schema.Synonyms()); err != nil {
		return index.UploadResult{}, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = a.Config.Search.BatchSize
	}

	a.Logger.Info("publishing corpus", "path", path, "records", len(cities))
	res := a.Index.UploadRecords(ctx, cities, opts)
	if !res.Success {
		return res, errors.New(res.Error)
	}
	return res, nil
}
