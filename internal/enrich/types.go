package enrich

import (
	"context"
	"time"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/core"
)

// Request is a single generation call: a fixed system instruction plus a per-city prompt.
type Request struct {
	City   destination.BaseCity
	System string
	Prompt string
}

// Generator produces raw model text for one request. Implementations return the
// model's text verbatim; parsing happens in the Service.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Outcome is the enrichment result for one city of a batch.
type Outcome struct {
	City   destination.BaseCity
	Result destination.EnrichmentResult
	Err    error
}

// Enricher is the enrichment capability consumed by the assembler and orchestrator.
type Enricher interface {
	EnrichOne(ctx context.Context, city destination.BaseCity) (destination.EnrichmentResult, error)

	// EnrichMany runs at most concurrency calls at once (<= 0 uses the configured
	// default), reports onProgress after each completion and returns outcomes in input
	// order. Only context cancellation fails the whole call.
	EnrichMany(ctx context.Context, cities []destination.BaseCity, concurrency int, onProgress core.ProgressFunc) ([]Outcome, error)
}

// Metrics receives enrichment telemetry. A nil Metrics is ignored.
type Metrics interface {
	RecordEnrichment(ctx context.Context, status string, elapsed time.Duration)
	RecordEnrichmentRetry(ctx context.Context, reason string)
}

// Statuses reported to Metrics.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusCached = "cached"
)
