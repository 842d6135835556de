// Package index publishes assembled destinations to the search index.
package index

import (
	"context"
	"time"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
)

// DefaultBatchSize is the number of records per batch write.
const DefaultBatchSize = 1000

// UploadProgress reports records submitted so far.
type UploadProgress struct {
	Uploaded int
	Total    int
}

type UploadOptions struct {
	BatchSize         int
	WaitForCompletion bool
	OnProgress        func(UploadProgress)
}

// UploadResult is returned instead of an error: on failure it carries whatever
// was accepted before the failing batch. ObjectIDs lists records uploaded so far.
type UploadResult struct {
	Success   bool
	ObjectIDs []string
	TaskIDs   []int64
	Error     string
}

// Stats summarizes the published index.
type Stats struct {
	Name      string
	Exists    bool
	Entries   int
	DataSize  int64
	FileSize  int64
	UpdatedAt string
	Settings  searchindex.Settings
}

// Client is the administrative capability the pipeline needs from the search index.
type Client interface {
	ConfigureSettings(ctx context.Context, settings searchindex.Settings) error
	ConfigureSynonyms(ctx context.Context, synonyms []searchindex.Synonym) error
	UploadRecords(ctx context.Context, records []destination.AssembledCity, opts UploadOptions) UploadResult
	ClearIndex(ctx context.Context) error
	DeleteRecords(ctx context.Context, objectIDs []string) error
	// GetRecord returns nil, nil when the record does not exist.
	GetRecord(ctx context.Context, objectID string) (*destination.AssembledCity, error)
	IndexExists(ctx context.Context) (bool, error)
	GetIndexStats(ctx context.Context) (Stats, error)
}

// Metrics receives upload telemetry. A nil Metrics is ignored.
type Metrics interface {
	RecordUploadBatch(ctx context.Context, status string, records int, elapsed time.Duration)
}

type batchSubmit func(ctx context.Context, chunk []destination.AssembledCity) (objectIDs []string, taskID int64, err error)

type taskWait func(ctx context.Context, taskID int64) error

// upload splits records into batches, submits them sequentially and reports
// progress after each batch. Both implementations share it so their progress
// cadence is identical.
func upload(
	ctx context.Context,
	records []destination.AssembledCity,
	opts UploadOptions,
	submit batchSubmit,
	wait taskWait,
	metrics Metrics,
) UploadResult {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	total := len(records)
	res := UploadResult{ObjectIDs: []string{}, TaskIDs: []int64{}}
	report := func(n int) {
		if opts.OnProgress != nil {
			opts.OnProgress(UploadProgress{Uploaded: min(n, total), Total: total})
		}
	}

	uploaded := 0
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		chunk := records[start:end]

		began := time.Now()
		ids, task, err := submit(ctx, chunk)
		if err != nil {
			recordBatch(ctx, metrics, "error", len(chunk), time.Since(began))
			res.Error = redact.Secrets(err.Error())
			return res
		}
		recordBatch(ctx, metrics, "ok", len(chunk), time.Since(began))
		res.ObjectIDs = append(res.ObjectIDs, ids...)
		res.TaskIDs = append(res.TaskIDs, task)
		uploaded += len(chunk)
		report(uploaded)
	}
	if total == 0 {
		report(0)
	}

	if opts.WaitForCompletion {
		for _, task := range res.TaskIDs {
			if err := wait(ctx, task); err != nil {
				res.Error = redact.Secrets(err.Error())
				return res
			}
		}
	}
	res.Success = true
	return res
}

func recordBatch(ctx context.Context, m Metrics, status string, n int, elapsed time.Duration) {
	if m != nil {
		m.RecordUploadBatch(ctx, status, n, elapsed)
	}
}
