package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/shpitdev/destination-pipeline/pkg/pipeline/core"
	"golang.org/x/time/rate"
)

type FailurePolicy int

const (
	FailurePolicyPartialOutput FailurePolicy = iota
	FailurePolicyFailFast
)

type Options struct {
	Workers    int
	MaxRetries int
	// RequestTimeout bounds each attempt. Zero uses the default; negative disables it.
	RequestTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64
	// Limiter, when set, replaces RateLimitRPS so several calls can share one budget.
	Limiter *rate.Limiter

	FailurePolicy FailurePolicy

	// BackoffInitial is the sleep before the first retry of a rate-limited or transient failure.
	// Attempt n sleeps BackoffInitial * 2^n.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%). Zero disables jitter.
	BackoffJitterFrac float64

	// RetryPermanent retries errors that are neither transient nor rate limits, without sleeping,
	// while the retry budget lasts.
	RetryPermanent bool

	// OnRetry is called before each retry with the failed attempt number (0-based),
	// its error and the delay about to be slept.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 10
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.BackoffJitterFrac < 0 {
		o.BackoffJitterFrac = 0
	}
	return o
}

// ProcessAll runs the processor over all input items.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	return ProcessAllWithCallback(ctx, items, processor, nil, opts)
}

// ProcessAllWithCallback runs the processor over all input items and invokes onResult
// as each item completes. The callback receives completion-order results from a single
// goroutine; the returned slice is in input order.
func ProcessAllWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := opts.limiter()

	out := make([]Result[In, Out], len(items))

	type job struct {
		idx int
		in  In
	}
	type completion struct {
		idx int
		res Result[In, Out]
	}

	jobs := make(chan job)
	done := make(chan completion, opts.Workers)

	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	workerFn := func() {
		defer wg.Done()
		for j := range jobs {
			if runCtx.Err() != nil {
				return
			}
			res := processOne(runCtx, j.in, processor, limiter, opts)
			select {
			case done <- completion{idx: j.idx, res: res}:
			case <-runCtx.Done():
				return
			}
			if res.Err != nil && opts.FailurePolicy == FailurePolicyFailFast {
				fail(res.Err)
				return
			}
		}
	}

	workers := opts.Workers
	if len(items) < workers {
		workers = len(items)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go workerFn()
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{idx: i, in: item}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	for item := range done {
		out[item.idx] = item.res
		if onResult != nil {
			if err := onResult(item.res); err != nil {
				fail(err)
			}
		}
	}

	mu.Lock()
	err := firstErr
	mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Retry runs fn for a single item with the same retry, timeout and rate-limit
// semantics ProcessAll applies per item.
func Retry[Out any](ctx context.Context, fn func(context.Context) (Out, error), opts Options) (Out, error) {
	opts = opts.withDefaults()
	return processWithRetry(ctx, struct{}{}, func(c context.Context, _ struct{}) (Out, error) {
		return fn(c)
	}, opts.limiter(), opts)
}

// NewLimiter returns a limiter allowing rps requests per second, or nil when rps <= 0.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (o Options) limiter() *rate.Limiter {
	if o.Limiter != nil {
		return o.Limiter
	}
	return NewLimiter(o.RateLimitRPS)
}

func processOne[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) Result[In, Out] {
	res, err := processWithRetry(ctx, item, processor, limiter, opts)
	return Result[In, Out]{
		Input:  item,
		Output: res,
		Err:    err,
	}
}

func processWithRetry[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) (Out, error) {
	var lastOut Out
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastOut, err
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return lastOut, err
			}
		}

		reqCtx := context.WithValue(ctx, attemptKey{}, attempt)
		var cancel context.CancelFunc
		if opts.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(reqCtx, opts.RequestTimeout)
		}
		result, err := processor(reqCtx, item)
		lastOut = result
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return lastOut, ctx.Err()
		}
		maxRetries := MaxExtraRetries(opts.MaxRetries, err)
		if attempt >= maxRetries {
			return lastOut, err
		}

		var sleep time.Duration
		switch {
		case IsRateLimited(err), isTransient(err):
			sleep = backoffSleep(opts.BackoffInitial, opts.BackoffMax, opts.BackoffJitterFrac, attempt)
			var rl *core.RateLimitError
			if errors.As(err, &rl) && rl.RetryAfter > sleep {
				sleep = rl.RetryAfter
			}
		case opts.RetryPermanent:
			sleep = 0
		default:
			return lastOut, err
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, sleep)
		}
		if sleep <= 0 {
			continue
		}
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return lastOut, ctx.Err()
		}
	}
}

type retryCap interface {
	MaxExtraRetries() int
}

// MaxExtraRetries returns the retry budget for err: defaultRetries, lowered when
// err carries a smaller MaxExtraRetries cap.
func MaxExtraRetries(defaultRetries int, err error) int {
	if defaultRetries < 0 {
		defaultRetries = 0
	}
	var capErr retryCap
	if errors.As(err, &capErr) {
		limited := capErr.MaxExtraRetries()
		if limited < 0 {
			limited = 0
		}
		if limited < defaultRetries {
			return limited
		}
	}
	return defaultRetries
}

type attemptKey struct{}

// Attempt returns the 0-based attempt number of the call running under ctx, or
// 0 outside a retry loop.
func Attempt(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}

// IsRateLimited reports whether err carries a core.RateLimitError.
func IsRateLimited(err error) bool {
	var rl *core.RateLimitError
	return errors.As(err, &rl)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *core.TransientError
	if errors.As(err, &te) {
		return true
	}
	var lte *core.LimitedTransientError
	if errors.As(err, &lte) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	// Apply +/- jitterFrac.
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
