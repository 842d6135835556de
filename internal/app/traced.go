package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/worker"
)

// tracedGenerator logs every generation attempt with its outcome and retry decision.
// The attempt number comes from the retry loop driving the call, so it holds no state.
type tracedGenerator struct {
	next       enrich.Generator
	logger     *slog.Logger
	maxRetries int
}

func newTracedGenerator(next enrich.Generator, logger *slog.Logger) *tracedGenerator {
	return &tracedGenerator{next: next, logger: logger}
}

func (t *tracedGenerator) Generate(ctx context.Context, req enrich.Request) (string, error) {
	attempt := worker.Attempt(ctx)

	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Debug("enrich request",
		"city", req.City.City,
		"country", req.City.Country,
		"attempt", attempt+1,
		"deadline_in", deadlineIn,
		"prompt_chars", len(req.Prompt),
	)

	start := time.Now()
	text, err := t.next.Generate(ctx, req)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		classified := enrich.Classify(err)
		budget := worker.MaxExtraRetries(t.maxRetries, classified)
		willRetry := !errors.Is(ctx.Err(), context.Canceled) && attempt < budget
		t.logger.Warn("enrich response",
			"city", req.City.City,
			"country", req.City.Country,
			"attempt", attempt+1,
			"duration", elapsed,
			"status", "error",
			"rate_limited", worker.IsRateLimited(classified),
			"will_retry", willRetry,
			"max_extra_retries", budget,
			"error", redact.Secrets(err.Error()),
		)
		return text, err
	}

	t.logger.Debug("enrich response",
		"city", req.City.City,
		"country", req.City.Country,
		"attempt", attempt+1,
		"duration", elapsed,
		"status", "ok",
		"response_chars", len(text),
	)
	return text, nil
}
