package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
	"golang.org/x/sync/errgroup"
)

// Remote implements Client over the search index REST API.
type Remote struct {
	api     *searchindex.Client
	index   string
	logger  *slog.Logger
	metrics Metrics
}

var _ Client = (*Remote)(nil)

type RemoteOption func(*Remote)

func WithLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m Metrics) RemoteOption {
	return func(r *Remote) { r.metrics = m }
}

// NewRemote binds api to one index.
func NewRemote(api *searchindex.Client, indexName string, opts ...RemoteOption) (*Remote, error) {
	if api == nil {
		return nil, errors.New("search client is required")
	}
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, errors.New("index name is required")
	}
	r := &Remote{api: api, index: indexName, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns the bound index name.
func (r *Remote) Name() string { return r.index }

func (r *Remote) ConfigureSettings(ctx context.Context, settings searchindex.Settings) error {
	task, err := r.api.SetSettings(ctx, r.index, settings)
	if err != nil {
		return fmt.Errorf("configure settings: %w", err)
	}
	if err := r.api.WaitTask(ctx, r.index, task); err != nil {
		return fmt.Errorf("configure settings: %w", err)
	}
	r.logger.Info("index settings configured", "index", r.index, "task_id", task)
	return nil
}

func (r *Remote) ConfigureSynonyms(ctx context.Context, synonyms []searchindex.Synonym) error {
	task, err := r.api.SaveSynonyms(ctx, r.index, synonyms, true)
	if err != nil {
		return fmt.Errorf("configure synonyms: %w", err)
	}
	if err := r.api.WaitTask(ctx, r.index, task); err != nil {
		return fmt.Errorf("configure synonyms: %w", err)
	}
	r.logger.Info("index synonyms configured", "index", r.index, "count", len(synonyms), "task_id", task)
	return nil
}

func (r *Remote) UploadRecords(ctx context.Context, records []destination.AssembledCity, opts UploadOptions) UploadResult {
	res := upload(ctx, records, opts,
		func(ctx context.Context, chunk []destination.AssembledCity) ([]string, int64, error) {
			ops := make([]searchindex.BatchOperation, len(chunk))
			for i, rec := range chunk {
				ops[i] = searchindex.BatchOperation{Action: searchindex.ActionUpdateObject, Body: rec}
			}
			resp, err := r.api.Batch(ctx, r.index, ops)
			if err != nil {
				return nil, 0, err
			}
			r.logger.Debug("batch submitted", "index", r.index, "records", len(chunk), "task_id", resp.TaskID)
			return resp.ObjectIDs, resp.TaskID, nil
		},
		func(ctx context.Context, task int64) error {
			return r.api.WaitTask(ctx, r.index, task)
		},
		r.metrics,
	)
	if !res.Success {
		r.logger.Error("upload failed", "index", r.index, "uploaded", len(res.ObjectIDs), "total", len(records), "error", res.Error)
	}
	return res
}

func (r *Remote) ClearIndex(ctx context.Context) error {
	task, err := r.api.ClearObjects(ctx, r.index)
	if err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if err := r.api.WaitTask(ctx, r.index, task); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

func (r *Remote) DeleteRecords(ctx context.Context, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	var tasks []int64
	for start := 0; start < len(objectIDs); start += DefaultBatchSize {
		end := min(start+DefaultBatchSize, len(objectIDs))
		ops := make([]searchindex.BatchOperation, 0, end-start)
		for _, id := range objectIDs[start:end] {
			ops = append(ops, searchindex.BatchOperation{
				Action: searchindex.ActionDeleteObject,
				Body:   map[string]string{"objectID": id},
			})
		}
		resp, err := r.api.Batch(ctx, r.index, ops)
		if err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		tasks = append(tasks, resp.TaskID)
	}
	for _, task := range tasks {
		if err := r.api.WaitTask(ctx, r.index, task); err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
	}
	return nil
}

func (r *Remote) GetRecord(ctx context.Context, objectID string) (*destination.AssembledCity, error) {
	obj, err := r.api.GetObject(ctx, r.index, objectID)
	if err != nil {
		if searchindex.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get record %q: %w", objectID, err)
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var rec destination.AssembledCity
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", objectID, err)
	}
	return &rec, nil
}

func (r *Remote) IndexExists(ctx context.Context) (bool, error) {
	info, err := r.lookup(ctx)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// GetIndexStats fetches the index listing and settings concurrently.
func (r *Remote) GetIndexStats(ctx context.Context) (Stats, error) {
	var (
		info     *searchindex.IndexInfo
		settings searchindex.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = r.lookup(gctx)
		return err
	})
	g.Go(func() error {
		s, err := r.api.GetSettings(gctx, r.index)
		if err != nil {
			if searchindex.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("get settings: %w", err)
		}
		settings = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	st := Stats{Name: r.index, Settings: settings}
	if info != nil {
		st.Exists = true
		st.Entries = info.Entries
		st.DataSize = info.DataSize
		st.FileSize = info.FileSize
		st.UpdatedAt = info.UpdatedAt
	}
	return st, nil
}

func (r *Remote) lookup(ctx context.Context) (*searchindex.IndexInfo, error) {
	items, err := r.api.ListIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	for i := range items {
		if items[i].Name == r.index {
			return &items[i], nil
		}
	}
	return nil, nil
}
