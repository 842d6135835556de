package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline's instruments. It satisfies the metrics hooks of
// the enrichment service, the index client and the orchestrator.
type Metrics struct {
	enrichCalls    metric.Int64Counter
	enrichDuration metric.Float64Histogram
	enrichRetries  metric.Int64Counter
	uploadBatches  metric.Int64Counter
	uploadRecords  metric.Int64Counter
	uploadDuration metric.Float64Histogram
	stageDuration  metric.Float64Histogram
	citiesTotal    metric.Int64Counter
	runsTotal      metric.Int64Counter
	runDuration    metric.Float64Histogram
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.enrichCalls, err = meter.Int64Counter(
		"destinations.enrichment.calls",
		metric.WithDescription("Enrichment calls by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("enrichment calls counter: %w", err)
	}
	if m.enrichDuration, err = meter.Float64Histogram(
		"destinations.enrichment.duration",
		metric.WithDescription("Duration of one city's enrichment including retries"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("enrichment duration histogram: %w", err)
	}
	if m.enrichRetries, err = meter.Int64Counter(
		"destinations.enrichment.retries",
		metric.WithDescription("Enrichment retries by reason"),
		metric.WithUnit("{retry}"),
	); err != nil {
		return nil, fmt.Errorf("enrichment retries counter: %w", err)
	}
	if m.uploadBatches, err = meter.Int64Counter(
		"destinations.upload.batches",
		metric.WithDescription("Index batch writes by outcome"),
		metric.WithUnit("{batch}"),
	); err != nil {
		return nil, fmt.Errorf("upload batches counter: %w", err)
	}
	if m.uploadRecords, err = meter.Int64Counter(
		"destinations.upload.records",
		metric.WithDescription("Records accepted by the index"),
		metric.WithUnit("{record}"),
	); err != nil {
		return nil, fmt.Errorf("upload records counter: %w", err)
	}
	if m.uploadDuration, err = meter.Float64Histogram(
		"destinations.upload.batch.duration",
		metric.WithDescription("Duration of one index batch write"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("upload duration histogram: %w", err)
	}
	if m.stageDuration, err = meter.Float64Histogram(
		"destinations.stage.duration",
		metric.WithDescription("Duration of a pipeline stage"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("stage duration histogram: %w", err)
	}
	if m.citiesTotal, err = meter.Int64Counter(
		"destinations.cities.processed",
		metric.WithDescription("Cities assembled"),
		metric.WithUnit("{city}"),
	); err != nil {
		return nil, fmt.Errorf("cities counter: %w", err)
	}
	if m.runsTotal, err = meter.Int64Counter(
		"destinations.runs",
		metric.WithDescription("Pipeline runs by outcome"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("runs counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram(
		"destinations.run.duration",
		metric.WithDescription("Duration of a pipeline run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("run duration histogram: %w", err)
	}
	return m, nil
}

func (m *Metrics) RecordEnrichment(ctx context.Context, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.enrichCalls.Add(ctx, 1, attrs)
	m.enrichDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *Metrics) RecordEnrichmentRetry(ctx context.Context, reason string) {
	m.enrichRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordUploadBatch(ctx context.Context, status string, records int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.uploadBatches.Add(ctx, 1, attrs)
	m.uploadDuration.Record(ctx, elapsed.Seconds(), attrs)
	if status == "ok" {
		m.uploadRecords.Add(ctx, int64(records))
	}
}

func (m *Metrics) RecordStage(ctx context.Context, stage, status string, elapsed time.Duration) {
	m.stageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordCity(ctx context.Context) {
	m.citiesTotal.Add(ctx, 1)
}

func (m *Metrics) RecordRun(ctx context.Context, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}
