// Package pipeline drives the destination pipeline stages in order and reports
// per-stage status, statistics and progress.
package pipeline

import (
	"fmt"
	"time"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

// Stage is one step of a pipeline run.
type Stage string

const (
	StageInitialization Stage = "initialization"
	StageDataGeneration Stage = "data-generation"
	StageEnrichment     Stage = "enrichment"
	StageAssembly       Stage = "assembly"
	StageUpload         Stage = "upload"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageInitialization, StageDataGeneration, StageEnrichment, StageAssembly, StageUpload}

// Status is the state of one stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Progress is emitted on every stage transition and on per-item progress inside
// a stage. Current and Total are zero for pure transitions.
type Progress struct {
	Stage   Stage
	Status  Status
	Message string
	Current int
	Total   int
}

type Options struct {
	// DryRun generates and assembles but skips index configuration and upload.
	DryRun         bool
	SkipEnrichment bool
	// CityCount truncates the catalog to its first N cities. Zero keeps all.
	CityCount int
	// OutputFile receives the assembled corpus as pretty JSON before upload.
	OutputFile string
	// PrefetchEnrichment enriches every city with bounded parallelism before
	// assembly instead of enriching inside the sequential assembly loop.
	PrefetchEnrichment bool
	BatchSize          int
	WaitForCompletion  bool
	OnProgress         func(Progress)
}

type Stats struct {
	TotalCities     int
	ProcessedCities int
	Duration        time.Duration
}

// Result is the outcome of one run. It is returned complete, including on failure.
type Result struct {
	RunID      string
	Success    bool
	Stages     map[Stage]Status
	Cities     []destination.AssembledCity
	OutputFile string
	// Error is the redacted terminal error message. Err holds the error itself.
	Error string
	Err   error `json:"-"`
	Stats Stats
}

// StageError is the terminal error of a run, tagged with the stage that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
