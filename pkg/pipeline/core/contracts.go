package core

import (
	"context"
	"time"
)

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// ProgressFunc reports completed/total counts for a long-running batch operation.
type ProgressFunc func(completed, total int)

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RateLimitError marks an upstream throttling response. Workers retry it with
// exponential backoff.
type RateLimitError struct {
	Err error

	// RetryAfter is the server-suggested delay, if any. Zero means unknown.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e == nil || e.Err == nil {
		return "rate_limit exceeded"
	}
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError is a transient error with its own, smaller retry budget.
type LimitedTransientError struct {
	Err          error
	ExtraRetries int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MaxExtraRetries caps the number of retries the worker grants this error.
func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil {
		return 0
	}
	return e.ExtraRetries
}
