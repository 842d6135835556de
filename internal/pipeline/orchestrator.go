package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shpitdev/destination-pipeline/internal/assemble"
	"github.com/shpitdev/destination-pipeline/internal/catalog"
	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/shpitdev/destination-pipeline/internal/index"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/schema"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultConcurrency bounds prefetch enrichment when no other value is configured.
const DefaultConcurrency = 5

// Metrics receives run telemetry. A nil Metrics is ignored.
type Metrics interface {
	RecordStage(ctx context.Context, stage, status string, elapsed time.Duration)
	RecordCity(ctx context.Context)
	RecordRun(ctx context.Context, success bool, elapsed time.Duration)
}

// CatalogFunc returns the base cities for a run.
type CatalogFunc func() []destination.BaseCity

// Orchestrator runs the pipeline. Each Run is independent.
type Orchestrator struct {
	enricher    enrich.Enricher
	index       index.Client
	assembler   *assemble.Assembler
	catalog     CatalogFunc
	settings    searchindex.Settings
	synonyms    []searchindex.Synonym
	concurrency int

	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

type Option func(*Orchestrator)

func WithCatalog(fn CatalogFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.catalog = fn
		}
	}
}

func WithAssembler(a *assemble.Assembler) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.assembler = a
		}
	}
}

// WithIndexContract overrides the settings and synonyms applied during initialization.
func WithIndexContract(settings searchindex.Settings, synonyms []searchindex.Synonym) Option {
	return func(o *Orchestrator) {
		o.settings = settings
		o.synonyms = synonyms
	}
}

// WithConcurrency sets prefetch enrichment parallelism.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New wires an Orchestrator. enricher may be nil for runs that always skip
// enrichment; idx may be nil for runs that are always dry.
func New(enricher enrich.Enricher, idx index.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		enricher:    enricher,
		index:       idx,
		catalog:     catalog.Generate,
		settings:    schema.Settings(),
		synonyms:    schema.Synonyms(),
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/shpitdev/destination-pipeline/internal/pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.assembler == nil {
		o.assembler = assemble.New(enricher, assemble.WithLogger(o.logger))
	}
	return o
}

// run is the mutable state of one Run call.
type run struct {
	o      *Orchestrator
	ctx    context.Context
	opts   Options
	logger *slog.Logger
	res    *Result

	mu      sync.Mutex
	started map[Stage]time.Time
	spans   map[Stage]trace.Span
}

// Run executes every stage in order. Failures are reported in the Result: the
// stage in progress is marked failed and later stages stay pending.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (out Result) {
	start := time.Now()
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Bool("dry_run", opts.DryRun),
		attribute.Bool("skip_enrichment", opts.SkipEnrichment),
		attribute.Int("city_count", opts.CityCount),
	))
	defer span.End()

	res := &Result{
		RunID:  runID,
		Stages: make(map[Stage]Status, len(Stages)),
		Cities: []destination.AssembledCity{},
	}
	for _, s := range Stages {
		res.Stages[s] = StatusPending
	}
	r := &run{
		o:       o,
		ctx:     ctx,
		opts:    opts,
		logger:  logger,
		res:     res,
		started: make(map[Stage]time.Time),
		spans:   make(map[Stage]trace.Span),
	}

	logger.Info("pipeline run started",
		"dry_run", opts.DryRun,
		"skip_enrichment", opts.SkipEnrichment,
		"prefetch_enrichment", opts.PrefetchEnrichment,
		"city_count", opts.CityCount,
	)

	defer func() {
		if p := recover(); p != nil {
			r.abort(fmt.Errorf("panic: %v", p))
		}
		res.Stats.Duration = time.Since(start)
		if o.metrics != nil {
			o.metrics.RecordRun(ctx, res.Success, res.Stats.Duration)
		}
		if res.Success {
			span.SetStatus(codes.Ok, "")
			logger.Info("pipeline run completed",
				"cities", res.Stats.ProcessedCities,
				"duration", res.Stats.Duration,
			)
		} else {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Error)
			logger.Error("pipeline run failed",
				"error", res.Error,
				"processed", res.Stats.ProcessedCities,
				"total", res.Stats.TotalCities,
				"duration", res.Stats.Duration,
			)
		}
		out = *res
	}()

	if err := r.execute(); err != nil {
		r.abort(err)
		return
	}
	res.Success = true
	return
}

func (r *run) execute() error {
	if err := r.initialize(); err != nil {
		return err
	}
	cities := r.generate()
	if err := r.enrichAndAssemble(cities); err != nil {
		return err
	}
	return r.upload()
}

func (r *run) initialize() error {
	r.begin(StageInitialization, "")
	if r.opts.DryRun {
		r.complete(StageInitialization, "dry run: index configuration skipped")
		return nil
	}
	if r.o.index == nil {
		return errors.New("index client is required unless dry run")
	}
	if err := r.o.index.ConfigureSettings(r.ctx, r.o.settings); err != nil {
		return err
	}
	if err := r.o.index.ConfigureSynonyms(r.ctx, r.o.synonyms); err != nil {
		return err
	}
	r.complete(StageInitialization, "index configured")
	return nil
}

func (r *run) generate() []destination.BaseCity {
	r.begin(StageDataGeneration, "")
	cities := r.o.catalog()
	if r.opts.CityCount > 0 {
		cities = catalog.Limit(cities, r.opts.CityCount)
	}
	r.res.Stats.TotalCities = len(cities)
	r.complete(StageDataGeneration, fmt.Sprintf("generated %d cities", len(cities)))
	return cities
}

func (r *run) enrichAndAssemble(cities []destination.BaseCity) error {
	switch {
	case r.opts.SkipEnrichment || r.o.enricher == nil:
		r.skip(StageEnrichment, "enrichment skipped")
		r.begin(StageAssembly, "")
		if err := r.assembleEach(cities, func(c destination.BaseCity) (destination.AssembledCity, error) {
			return r.o.assembler.Assemble(r.ctx, c, assemble.Options{SkipEnrichment: true})
		}); err != nil {
			return err
		}

	case r.opts.PrefetchEnrichment:
		r.begin(StageEnrichment, "")
		contents, err := r.prefetch(cities)
		if err != nil {
			return err
		}
		r.complete(StageEnrichment, fmt.Sprintf("enriched %d cities", len(cities)))

		r.begin(StageAssembly, "")
		i := 0
		if err := r.assembleEach(cities, func(c destination.BaseCity) (destination.AssembledCity, error) {
			content := contents[i]
			i++
			return r.o.assembler.AssembleWithEnrichment(c, content)
		}); err != nil {
			return err
		}

	default:
		r.begin(StageEnrichment, "")
		r.begin(StageAssembly, "")
		if err := r.assembleEach(cities, func(c destination.BaseCity) (destination.AssembledCity, error) {
			return r.o.assembler.Assemble(r.ctx, c, assemble.Options{})
		}); err != nil {
			return err
		}
		r.complete(StageEnrichment, fmt.Sprintf("enriched %d cities", len(cities)))
	}

	if err := r.writeOutput(); err != nil {
		return err
	}
	r.complete(StageAssembly, fmt.Sprintf("assembled %d cities", len(r.res.Cities)))
	return nil
}

// prefetch enriches all cities concurrently. Failed outcomes become fallback content.
func (r *run) prefetch(cities []destination.BaseCity) ([]destination.EnrichmentResult, error) {
	var mu sync.Mutex
	outcomes, err := r.o.enricher.EnrichMany(r.ctx, cities, r.o.concurrency, func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		r.emit(Progress{
			Stage:   StageEnrichment,
			Status:  StatusInProgress,
			Message: "enrichment progress",
			Current: completed,
			Total:   total,
		})
	})
	if err != nil {
		return nil, err
	}

	contents := make([]destination.EnrichmentResult, len(outcomes))
	failed := 0
	for i, oc := range outcomes {
		if oc.Err != nil {
			failed++
			r.logger.Warn("enrichment failed, using fallback content",
				"city", oc.City.City,
				"country", oc.City.Country,
				"error", redact.Secrets(oc.Err.Error()),
			)
			contents[i] = enrich.Fallback(oc.City)
			continue
		}
		contents[i] = oc.Result
	}
	if failed > 0 {
		r.logger.Warn("some cities use fallback content", "failed", failed, "total", len(outcomes))
	}
	return contents, nil
}

func (r *run) assembleEach(cities []destination.BaseCity, fn func(destination.BaseCity) (destination.AssembledCity, error)) error {
	total := len(cities)
	for _, c := range cities {
		rec, err := fn(c)
		if err != nil {
			return err
		}
		r.res.Cities = append(r.res.Cities, rec)
		r.res.Stats.ProcessedCities++
		if r.o.metrics != nil {
			r.o.metrics.RecordCity(r.ctx)
		}
		r.logger.Debug("city assembled", "object_id", rec.ObjectID, "processed", r.res.Stats.ProcessedCities, "total", total)
		r.emit(Progress{
			Stage:   StageAssembly,
			Status:  StatusInProgress,
			Message: fmt.Sprintf("assembled %s, %s", rec.City, rec.Country),
			Current: r.res.Stats.ProcessedCities,
			Total:   total,
		})
	}
	return nil
}

func (r *run) writeOutput() error {
	if r.opts.OutputFile == "" {
		return nil
	}
	if err := local.WriteCorpusFile(r.opts.OutputFile, r.res.Cities); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	r.res.OutputFile = r.opts.OutputFile
	r.logger.Info("corpus written", "path", r.opts.OutputFile, "cities", len(r.res.Cities))
	return nil
}

func (r *run) upload() error {
	if r.opts.DryRun {
		r.skip(StageUpload, "dry run: upload skipped")
		return nil
	}
	r.begin(StageUpload, "")
	up := r.o.index.UploadRecords(r.ctx, r.res.Cities, index.UploadOptions{
		BatchSize:         r.opts.BatchSize,
		WaitForCompletion: r.opts.WaitForCompletion,
		OnProgress: func(p index.UploadProgress) {
			r.emit(Progress{
				Stage:   StageUpload,
				Status:  StatusInProgress,
				Message: "upload progress",
				Current: p.Uploaded,
				Total:   p.Total,
			})
		},
	})
	if !up.Success {
		return fmt.Errorf("uploaded %d of %d records: %s", len(up.ObjectIDs), len(r.res.Cities), up.Error)
	}
	r.complete(StageUpload, fmt.Sprintf("uploaded %d records", len(up.ObjectIDs)))
	return nil
}

// abort records err as the terminal error and fails every in-progress stage.
// The error is attributed to the latest of them.
func (r *run) abort(err error) {
	failedStage := Stage("")
	for _, s := range Stages {
		if r.res.Stages[s] == StatusInProgress {
			failedStage = s
			r.finish(s, StatusFailed, err.Error(), err)
		}
	}
	if failedStage != "" {
		err = &StageError{Stage: failedStage, Err: err}
	}
	r.res.Success = false
	r.res.Err = err
	r.res.Error = redact.Secrets(err.Error())
}

func (r *run) begin(s Stage, msg string) {
	r.mu.Lock()
	r.started[s] = time.Now()
	_, span := r.o.tracer.Start(r.ctx, "pipeline."+string(s))
	r.spans[s] = span
	r.mu.Unlock()

	r.res.Stages[s] = StatusInProgress
	r.logger.Info("stage started", "stage", s)
	r.emit(Progress{Stage: s, Status: StatusInProgress, Message: msg})
}

func (r *run) complete(s Stage, msg string) { r.finish(s, StatusCompleted, msg, nil) }

func (r *run) skip(s Stage, msg string) {
	r.res.Stages[s] = StatusSkipped
	r.logger.Info("stage skipped", "stage", s, "reason", msg)
	if r.o.metrics != nil {
		r.o.metrics.RecordStage(r.ctx, string(s), string(StatusSkipped), 0)
	}
	r.emit(Progress{Stage: s, Status: StatusSkipped, Message: msg})
}

func (r *run) finish(s Stage, status Status, msg string, err error) {
	r.mu.Lock()
	elapsed := time.Since(r.started[s])
	span := r.spans[s]
	delete(r.spans, s)
	r.mu.Unlock()

	r.res.Stages[s] = status
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, redact.Secrets(err.Error()))
		}
		span.End()
	}
	if r.o.metrics != nil {
		r.o.metrics.RecordStage(r.ctx, string(s), string(status), elapsed)
	}
	if err != nil {
		msg = redact.Secrets(msg)
		r.logger.Error("stage failed", "stage", s, "error", msg, "elapsed", elapsed)
	} else {
		r.logger.Info("stage completed", "stage", s, "message", msg, "elapsed", elapsed)
	}
	r.emit(Progress{Stage: s, Status: status, Message: msg})
}

func (r *run) emit(p Progress) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(p)
	}
}
