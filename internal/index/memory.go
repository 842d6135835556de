package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
)

// Memory is an in-process Client for tests and offline runs.
type Memory struct {
	name string

	mu          sync.Mutex
	records     map[string]destination.AssembledCity
	settings    searchindex.Settings
	synonyms    []searchindex.Synonym
	configured  bool
	nextTask    int64
	batches     int
	failOnBatch int
	updatedAt   time.Time
	metrics     Metrics
}

var _ Client = (*Memory)(nil)

// NewMemory returns an empty in-memory index.
func NewMemory(name string) *Memory {
	return &Memory{
		name:     name,
		records:  make(map[string]destination.AssembledCity),
		nextTask: 1,
	}
}

// FailOnBatch makes the nth batch write (1-based) fail. Zero disables injection.
func (m *Memory) FailOnBatch(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOnBatch = n
}

// SetMetrics records upload batches the same way Remote does. Nil disables it.
func (m *Memory) SetMetrics(metrics Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// Records returns the stored records sorted by objectID.
func (m *Memory) Records() []destination.AssembledCity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]destination.AssembledCity, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, cloneRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out
}

// Synonyms returns the configured synonyms.
func (m *Memory) Synonyms() []searchindex.Synonym {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]searchindex.Synonym(nil), m.synonyms...)
}

func (m *Memory) ConfigureSettings(ctx context.Context, settings searchindex.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.touchLocked()
	return nil
}

func (m *Memory) ConfigureSynonyms(ctx context.Context, synonyms []searchindex.Synonym) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synonyms = append([]searchindex.Synonym(nil), synonyms...)
	m.touchLocked()
	return nil
}

func (m *Memory) UploadRecords(ctx context.Context, records []destination.AssembledCity, opts UploadOptions) UploadResult {
	m.mu.Lock()
	metrics := m.metrics
	m.mu.Unlock()
	return upload(ctx, records, opts,
		func(ctx context.Context, chunk []destination.AssembledCity) ([]string, int64, error) {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			m.batches++
			if m.failOnBatch > 0 && m.batches == m.failOnBatch {
				return nil, 0, fmt.Errorf("batch %d rejected by index", m.batches)
			}
			ids := make([]string, len(chunk))
			for i, rec := range chunk {
				m.records[rec.ObjectID] = cloneRecord(rec)
				ids[i] = rec.ObjectID
			}
			m.touchLocked()
			task := m.nextTask
			m.nextTask++
			return ids, task, nil
		},
		func(ctx context.Context, _ int64) error { return ctx.Err() },
		metrics,
	)
}

func (m *Memory) ClearIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]destination.AssembledCity)
	m.touchLocked()
	return nil
}

func (m *Memory) DeleteRecords(ctx context.Context, objectIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range objectIDs {
		delete(m.records, id)
	}
	m.touchLocked()
	return nil
}

func (m *Memory) GetRecord(ctx context.Context, objectID string) (*destination.AssembledCity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[objectID]
	if !ok {
		return nil, nil
	}
	rec = cloneRecord(rec)
	return &rec, nil
}

func (m *Memory) IndexExists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured, nil
}

func (m *Memory) GetIndexStats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{Name: m.name, Exists: m.configured, Settings: m.settings}
	if !m.configured {
		return st, nil
	}
	st.Entries = len(m.records)
	for _, r := range m.records {
		if b, err := json.Marshal(r); err == nil {
			st.DataSize += int64(len(b))
		}
	}
	st.FileSize = st.DataSize
	st.UpdatedAt = m.updatedAt.Format(time.RFC3339)
	return st, nil
}

// touchLocked marks the index as existing. Callers hold m.mu.
func (m *Memory) touchLocked() {
	m.configured = true
	m.updatedAt = time.Now().UTC()
}

// cloneRecord detaches the record's slices from the caller's copy.
func cloneRecord(r destination.AssembledCity) destination.AssembledCity {
	if r.VibeTags != nil {
		r.VibeTags = append([]string{}, r.VibeTags...)
	}
	if r.Keywords != nil {
		r.Keywords = append([]string{}, r.Keywords...)
	}
	return r
}
