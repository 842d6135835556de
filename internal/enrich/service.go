// Package enrich generates descriptions, vibe tags and keywords for destinations.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/worker"
	"golang.org/x/time/rate"
)

// Config controls retry, concurrency and caching.
type Config struct {
	// MaxRetries is the number of extra attempts after the first failure. Zero
	// uses the default; NoRetries disables retrying.
	MaxRetries int
	// BaseDelay is the first rate-limit backoff; attempt n sleeps BaseDelay * 2^n.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Concurrency is the default EnrichMany parallelism.
	Concurrency    int
	RequestTimeout time.Duration
	// RateLimitRPS caps generation calls per second across all workers. Zero disables it.
	RateLimitRPS float64
	// CacheTTL memoizes successful results by objectID. Zero disables the memo.
	CacheTTL time.Duration
}

// NoRetries as Config.MaxRetries makes every failure terminal on the first attempt.
const NoRetries = -1

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Concurrency:    5,
		RequestTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = d.MaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = NoRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records per-call telemetry.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service implements Enricher over a Generator.
type Service struct {
	gen     Generator
	cfg     Config
	logger  *slog.Logger
	metrics Metrics
	limiter *rate.Limiter
	memo    *cache.Cache
}

var _ Enricher = (*Service)(nil)

// New builds a Service. The zero Config fields take DefaultConfig values.
func New(gen Generator, cfg Config, opts ...Option) (*Service, error) {
	if gen == nil {
		return nil, errors.New("enrich: generator is required")
	}
	s := &Service{
		gen:    gen,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = worker.NewLimiter(s.cfg.RateLimitRPS)
	if s.cfg.CacheTTL > 0 {
		s.memo = cache.New(s.cfg.CacheTTL, 2*s.cfg.CacheTTL)
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// EnrichOne generates and parses enrichment for a single city, retrying rate
// limits with exponential backoff and other failures immediately while the retry
// budget lasts.
func (s *Service) EnrichOne(ctx context.Context, city destination.BaseCity) (destination.EnrichmentResult, error) {
	id := destination.GenerateObjectID(city.City, city.Country)
	if s.memo != nil {
		if v, ok := s.memo.Get(id); ok {
			s.record(ctx, StatusCached, 0)
			return cloneResult(v.(destination.EnrichmentResult)), nil
		}
	}

	req := Request{City: city, System: SystemInstruction, Prompt: BuildPrompt(city)}
	start := time.Now()
	res, err := worker.Retry(ctx, func(ctx context.Context) (destination.EnrichmentResult, error) {
		text, err := s.gen.Generate(ctx, req)
		if err != nil {
			return destination.EnrichmentResult{}, Classify(err)
		}
		return ParseResponse(text)
	}, s.retryOptions(city))
	if err != nil {
		s.record(ctx, StatusError, time.Since(start))
		return destination.EnrichmentResult{}, fmt.Errorf("enrich %s, %s: %w", city.City, city.Country, err)
	}
	s.record(ctx, StatusOK, time.Since(start))
	if s.memo != nil {
		s.memo.SetDefault(id, cloneResult(res))
	}
	return res, nil
}

// EnrichMany enriches cities with bounded parallelism. Per-city failures are
// reported in the corresponding Outcome.
func (s *Service) EnrichMany(
	ctx context.Context,
	cities []destination.BaseCity,
	concurrency int,
	onProgress core.ProgressFunc,
) ([]Outcome, error) {
	if concurrency <= 0 {
		concurrency = s.cfg.Concurrency
	}
	total := len(cities)
	var completed atomic.Int64

	results, err := worker.ProcessAllWithCallback(ctx, cities, s.EnrichOne,
		func(worker.Result[destination.BaseCity, destination.EnrichmentResult]) error {
			n := completed.Add(1)
			if onProgress != nil {
				onProgress(int(n), total)
			}
			return nil
		},
		worker.Options{
			Workers:        concurrency,
			FailurePolicy:  worker.FailurePolicyPartialOutput,
			RequestTimeout: -1,
		},
	)
	if err != nil {
		return nil, err
	}

	out := make([]Outcome, len(results))
	for i, r := range results {
		out[i] = Outcome{City: r.Input, Result: r.Output, Err: r.Err}
	}
	return out, nil
}

func (s *Service) retryOptions(city destination.BaseCity) worker.Options {
	return worker.Options{
		MaxRetries:     max(s.cfg.MaxRetries, 0),
		RequestTimeout: s.cfg.RequestTimeout,
		Limiter:        s.limiter,
		BackoffInitial: s.cfg.BaseDelay,
		BackoffMax:     s.cfg.MaxDelay,
		RetryPermanent: true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			reason := "error"
			if worker.IsRateLimited(err) {
				reason = "rate_limit"
			}
			if s.metrics != nil {
				s.metrics.RecordEnrichmentRetry(context.Background(), reason)
			}
			s.logger.Warn("enrichment attempt failed, retrying",
				"city", city.City,
				"country", city.Country,
				"attempt", attempt+1,
				"reason", reason,
				"delay", delay,
				"error", redact.Secrets(err.Error()),
			)
		},
	}
}

func (s *Service) record(ctx context.Context, status string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordEnrichment(ctx, status, elapsed)
	}
}

// Classify maps throttling responses that arrive as plain errors onto
// core.RateLimitError so they get exponential backoff.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var rl *core.RateLimitError
	if errors.As(err, &rl) {
		return err
	}
	if isRateLimitMessage(err.Error()) {
		return &core.RateLimitError{Err: err}
	}
	return err
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "resource_exhausted")
}

func cloneResult(r destination.EnrichmentResult) destination.EnrichmentResult {
	r.VibeTags = append([]string(nil), r.VibeTags...)
	r.Keywords = append([]string{}, r.Keywords...)
	return r
}
