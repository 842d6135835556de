package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shpitdev/destination-pipeline/internal/app"
	"github.com/shpitdev/destination-pipeline/internal/index"
	"github.com/shpitdev/destination-pipeline/internal/pipeline"
	"github.com/spf13/cobra"
)

type runFlags struct {
	dryRun         bool
	skipEnrichment bool
	prefetch       bool
	count          int
	output         string
	batchSize      int
	noWait         bool
	summaryCSV     string
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVar(&f.dryRun, "dry-run", false, "Generate and assemble without touching the index")
	fl.BoolVar(&f.skipEnrichment, "skip-enrichment", false, "Use fallback content instead of calling the generator")
	fl.BoolVar(&f.prefetch, "prefetch", false, "Enrich all cities concurrently before assembly")
	fl.IntVar(&f.count, "count", 0, "Limit the catalog to the first N cities (0 = all)")
	fl.StringVarP(&f.output, "output", "o", "", "Write the assembled corpus to this JSON file")
	fl.IntVar(&f.batchSize, "batch-size", 0, "Records per index batch (default from config)")
	fl.BoolVar(&f.noWait, "no-wait", false, "Do not wait for index tasks to complete")
	fl.StringVar(&f.summaryCSV, "summary-csv", "", "Also write a one-line-per-city CSV summary to this path")
}

// apply overrides the app's configured run options with the flags the user set
// explicitly. The summary CSV path lives on the app config, so it is updated in place.
func (f *runFlags) apply(cmd *cobra.Command, a *app.App) pipeline.Options {
	changed := cmd.Flags().Changed
	if changed("summary-csv") {
		a.Config.Pipeline.SummaryCSV = f.summaryCSV
	}
	opts := a.PipelineOptions()
	if changed("dry-run") {
		opts.DryRun = f.dryRun
	}
	if changed("skip-enrichment") {
		opts.SkipEnrichment = f.skipEnrichment
	}
	if changed("prefetch") {
		opts.PrefetchEnrichment = f.prefetch
	}
	if changed("count") {
		opts.CityCount = f.count
	}
	if changed("output") {
		opts.OutputFile = f.output
	}
	if changed("batch-size") {
		opts.BatchSize = f.batchSize
	}
	if changed("no-wait") {
		opts.WaitForCompletion = !f.noWait
	}
	return opts
}

func (c *cli) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runOnce(cmd.Context(), f.apply(cmd, c.app))
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) runOnce(ctx context.Context, opts pipeline.Options) error {
	opts.OnProgress = c.printProgress
	res := c.app.Run(ctx, opts)

	status := "success"
	if !res.Success {
		status = "failed"
	}
	_, _ = fmt.Fprintf(c.stdout, "run %s: %s, %d/%d cities in %s\n",
		res.RunID, status, res.Stats.ProcessedCities, res.Stats.TotalCities, res.Stats.Duration.Round(time.Millisecond))
	for _, s := range pipeline.Stages {
		_, _ = fmt.Fprintf(c.stdout, "  %-16s %s\n", s, res.Stages[s])
	}
	if res.OutputFile != "" {
		_, _ = fmt.Fprintf(c.stdout, "corpus written to %s\n", res.OutputFile)
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

func (c *cli) printProgress(p pipeline.Progress) {
	if p.Total == 0 {
		return
	}
	if p.Current == p.Total || p.Stage == pipeline.StageUpload {
		c.logger.Info("progress", "stage", p.Stage, "current", p.Current, "total", p.Total)
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	var (
		from      string
		batchSize int
		noWait    bool
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Publish a previously written corpus file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.Publish(cmd.Context(), from, index.UploadOptions{
				BatchSize:         batchSize,
				WaitForCompletion: !noWait && c.app.Config.Search.WaitForCompletion,
				OnProgress: func(p index.UploadProgress) {
					c.logger.Info("upload progress", "uploaded", p.Uploaded, "total", p.Total)
				},
			})
			var invalid *app.InvalidCorpusError
			if errors.As(err, &invalid) {
				for id, problems := range invalid.Problems {
					_, _ = fmt.Fprintf(c.stderr, "%s: %v\n", id, problems)
				}
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "uploaded %d records in %d batches\n", len(res.ObjectIDs), len(res.TaskIDs))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Corpus JSON file written by run --output")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Records per index batch (default from config)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Do not wait for index tasks to complete")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func (c *cli) scheduleCmd() *cobra.Command {
	var (
		f    runFlags
		spec string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("cron") {
				spec = c.app.Config.Pipeline.Schedule
			}
			opts := f.apply(cmd, c.app)
			return app.Schedule(cmd.Context(), spec, c.logger, func(ctx context.Context) {
				if err := c.runOnce(ctx, opts); err != nil {
					c.logger.Error("scheduled run failed", "error", err)
				}
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&spec, "cron", "", "Five-field cron spec (default from config pipeline.schedule)")
	return cmd
}
