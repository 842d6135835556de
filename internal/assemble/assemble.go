// Package assemble combines catalog identity, scores, imagery and enrichment into
// validated, publishable records.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/shpitdev/destination-pipeline/internal/imagery"
	"github.com/shpitdev/destination-pipeline/internal/scoring"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
)

// Step names an assembly phase reported to progress callbacks.
type Step string

const (
	StepScoring    Step = "scoring"
	StepImagery    Step = "imagery"
	StepEnrichment Step = "enrichment"
	StepFallback   Step = "fallback"
	StepValidated  Step = "validated"
)

// Event is one assembly progress notification.
type Event struct {
	City string
	Step Step
}

type Options struct {
	// SkipEnrichment uses fallback content without calling the enricher.
	SkipEnrichment bool
	OnProgress     func(Event)
}

// ValidationError reports an assembled record that failed validation. It indicates
// a defect in assembly, not a transient condition.
type ValidationError struct {
	City     string
	Country  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("assembled record for %s, %s is invalid: %s", e.City, e.Country, strings.Join(e.Problems, "; "))
}

// Assembler builds AssembledCity records.
type Assembler struct {
	enricher enrich.Enricher
	images   imagery.Resolver
	logger   *slog.Logger
}

type Option func(*Assembler)

// WithImages overrides the default seeded image resolver.
func WithImages(r imagery.Resolver) Option {
	return func(a *Assembler) {
		if r != nil {
			a.images = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Assembler. enricher may be nil when every call skips enrichment.
func New(enricher enrich.Enricher, opts ...Option) *Assembler {
	a := &Assembler{
		enricher: enricher,
		images:   imagery.Static{Mode: imagery.ModeSeeded},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds and validates the record for one city. Enrichment failures fall
// back to canned content; validation failures return *ValidationError.
func (a *Assembler) Assemble(ctx context.Context, city destination.BaseCity, opts Options) (destination.AssembledCity, error) {
	if err := ctx.Err(); err != nil {
		return destination.AssembledCity{}, err
	}

	var content destination.EnrichmentResult
	switch {
	case opts.SkipEnrichment || a.enricher == nil:
		content = enrich.Fallback(city)
		emit(opts, city, StepFallback)
	default:
		emit(opts, city, StepEnrichment)
		res, err := a.enricher.EnrichOne(ctx, city)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return destination.AssembledCity{}, ctxErr
			}
			a.logger.Warn("enrichment failed, using fallback content",
				"city", city.City,
				"country", city.Country,
				"error", redact.Secrets(err.Error()),
			)
			res = enrich.Fallback(city)
			emit(opts, city, StepFallback)
		}
		content = res
	}
	return a.build(city, content, opts)
}

// AssembleMany assembles cities sequentially and returns records in input order.
// The first failure stops the run.
func (a *Assembler) AssembleMany(ctx context.Context, cities []destination.BaseCity, opts Options) ([]destination.AssembledCity, error) {
	out := make([]destination.AssembledCity, 0, len(cities))
	for _, c := range cities {
		rec, err := a.Assemble(ctx, c, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// AssembleWithEnrichment builds a record from precomputed enrichment without
// calling the enricher.
func (a *Assembler) AssembleWithEnrichment(city destination.BaseCity, content destination.EnrichmentResult) (destination.AssembledCity, error) {
	return a.build(city, content, Options{})
}

func (a *Assembler) build(city destination.BaseCity, content destination.EnrichmentResult, opts Options) (destination.AssembledCity, error) {
	emit(opts, city, StepScoring)
	scores := scoring.Score(city)
	emit(opts, city, StepImagery)
	image := a.images.Resolve(city.City, city.Country)

	keywords := content.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	rec := destination.AssembledCity{
		ObjectID:        destination.GenerateObjectID(city.City, city.Country),
		City:            city.City,
		Country:         city.Country,
		Continent:       city.Continent,
		Description:     content.Description,
		VibeTags:        content.VibeTags,
		Keywords:        keywords,
		Culture:         scores.Culture,
		Adventure:       scores.Adventure,
		Nature:          scores.Nature,
		Beach:           scores.Beach,
		Nightlife:       scores.Nightlife,
		ClimateType:     city.ClimateType,
		BestTimeToVisit: city.BestTimeToVisit,
		ImageURL:        image,
	}
	problems := destination.Validate(rec)
	if rec.ImageURL != "" && !imagery.Validate(rec.ImageURL) {
		problems = append(problems, "image_url must be an http(s) URL")
	}
	if len(problems) > 0 {
		return destination.AssembledCity{}, &ValidationError{City: city.City, Country: city.Country, Problems: problems}
	}
	emit(opts, city, StepValidated)
	return rec, nil
}

func emit(opts Options, city destination.BaseCity, step Step) {
	if opts.OnProgress != nil {
		opts.OnProgress(Event{City: city.City, Step: step})
	}
}
