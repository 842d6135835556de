package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule runs job on the standard five-field cron spec until ctx is cancelled.
// A run that is still in progress when the next tick fires is skipped.
func Schedule(ctx context.Context, spec string, logger *slog.Logger, job func(context.Context)) error {
	if logger == nil {
		logger = slog.Default()
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c.Start()
	logger.Info("schedule started", "spec", spec, "next", sched.Next(time.Now()))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("schedule stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
