package index_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shpitdev/destination-pipeline/internal/index"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/mocksearch"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexName = "destinations_test"

type failer interface {
	failOnBatch(n int)
}

type memoryHarness struct{ *index.Memory }

func (h memoryHarness) failOnBatch(n int) { h.FailOnBatch(n) }

type remoteHarness struct {
	*index.Remote
	srv *mocksearch.Server
}

func (h remoteHarness) failOnBatch(n int) { h.srv.FailBatch(n, http.StatusInternalServerError) }

type harness interface {
	index.Client
	failer
}

func implementations(t *testing.T) map[string]func(t *testing.T) harness {
	t.Helper()
	return map[string]func(t *testing.T) harness{
		"memory": func(*testing.T) harness {
			return memoryHarness{index.NewMemory(indexName)}
		},
		"remote": func(t *testing.T) harness {
			srv := mocksearch.New()
			srv.SetPendingPolls(1)
			ts := httptest.NewServer(srv.Handler())
			t.Cleanup(ts.Close)
			api, err := searchindex.NewClient(searchindex.Config{
				BaseURL:          ts.URL,
				AppID:            "app",
				APIKey:           "key",
				TaskPollInterval: time.Millisecond,
				TaskTimeout:      time.Second,
			})
			require.NoError(t, err)
			r, err := index.NewRemote(api, indexName)
			require.NoError(t, err)
			return remoteHarness{Remote: r, srv: srv}
		},
	}
}

func records(n int) []destination.AssembledCity {
	out := make([]destination.AssembledCity, n)
	for i := range out {
		city := fmt.Sprintf("City %02d", i)
		out[i] = destination.AssembledCity{
			ObjectID:        destination.GenerateObjectID(city, "Testland"),
			City:            city,
			Country:         "Testland",
			Continent:       destination.Europe,
			Description:     "A test city.",
			VibeTags:        []string{"test"},
			Keywords:        []string{},
			Culture:         5,
			Adventure:       5,
			Nature:          5,
			Beach:           5,
			Nightlife:       5,
			ClimateType:     "Oceanic",
			BestTimeToVisit: "Always",
			ImageURL:        "https://example.com/x.jpg",
		}
	}
	return out
}

func TestUploadRecords_ReportsProgressPerBatch(t *testing.T) {
	for name, mk := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			c := mk(t)
			recs := records(25)

			var progress []index.UploadProgress
			res := c.UploadRecords(context.Background(), recs, index.UploadOptions{
				BatchSize:         10,
				WaitForCompletion: true,
				OnProgress:        func(p index.UploadProgress) { progress = append(progress, p) },
			})
			require.True(t, res.Success, res.Error)
			assert.Empty(t, res.Error)
			assert.Equal(t, destination.ObjectIDs(recs), res.ObjectIDs)
			assert.Len(t, res.TaskIDs, 3)

			require.GreaterOrEqual(t, len(progress), 3)
			assert.Equal(t, index.UploadProgress{Uploaded: 10, Total: 25}, progress[0])
			assert.Equal(t, index.UploadProgress{Uploaded: 25, Total: 25}, progress[len(progress)-1])

			got, err := c.GetRecord(context.Background(), recs[7].ObjectID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, recs[7].City, got.City)
			assert.True(t, destination.IsValid(*got))
		})
	}
}

func TestUploadRecords_PartialFailureKeepsCompletedBatches(t *testing.T) {
	for name, mk := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			c := mk(t)
			c.failOnBatch(3)
			recs := records(25)

			res := c.UploadRecords(context.Background(), recs, index.UploadOptions{BatchSize: 10})
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Equal(t, destination.ObjectIDs(recs[:20]), res.ObjectIDs)
			assert.Len(t, res.TaskIDs, 2)

			missing, err := c.GetRecord(context.Background(), recs[24].ObjectID)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestUploadRecords_EmptyInputStillReportsCompletion(t *testing.T) {
	for name, mk := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			c := mk(t)
			calls := 0
			res := c.UploadRecords(context.Background(), nil, index.UploadOptions{
				OnProgress: func(p index.UploadProgress) {
					calls++
					assert.Equal(t, index.UploadProgress{}, p)
				},
			})
			assert.True(t, res.Success)
			assert.Empty(t, res.ObjectIDs)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGetRecord_MissReturnsNil(t *testing.T) {
	for name, mk := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			got, err := mk(t).GetRecord(context.Background(), "does-not-exist")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestAdminOperations(t *testing.T) {
	for name, mk := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := mk(t)

			exists, err := c.IndexExists(ctx)
			require.NoError(t, err)
			assert.False(t, exists)

			st, err := c.GetIndexStats(ctx)
			require.NoError(t, err)
			assert.False(t, st.Exists)

			settings := searchindex.Settings{SearchableAttributes: []string{"city"}, CustomRanking: []string{"desc(culture)"}}
			require.NoError(t, c.ConfigureSettings(ctx, settings))
			require.NoError(t, c.ConfigureSynonyms(ctx, []searchindex.Synonym{
				{ObjectID: "beach", Type: searchindex.SynonymTypeSynonym, Synonyms: []string{"beach", "coast"}},
			}))

			recs := records(5)
			res := c.UploadRecords(ctx, recs, index.UploadOptions{WaitForCompletion: true})
			require.True(t, res.Success, res.Error)

			exists, err = c.IndexExists(ctx)
			require.NoError(t, err)
			assert.True(t, exists)

			st, err = c.GetIndexStats(ctx)
			require.NoError(t, err)
			assert.True(t, st.Exists)
			assert.Equal(t, indexName, st.Name)
			assert.Equal(t, 5, st.Entries)
			assert.Positive(t, st.DataSize)
			assert.Equal(t, settings, st.Settings)

			require.NoError(t, c.DeleteRecords(ctx, []string{recs[0].ObjectID, recs[1].ObjectID}))
			gone, err := c.GetRecord(ctx, recs[0].ObjectID)
			require.NoError(t, err)
			assert.Nil(t, gone)

			st, err = c.GetIndexStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, st.Entries)

			require.NoError(t, c.ClearIndex(ctx))
			st, err = c.GetIndexStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, st.Entries)
		})
	}
}

func TestNewRemote_Validation(t *testing.T) {
	_, err := index.NewRemote(nil, "x")
	require.Error(t, err)

	api, err := searchindex.NewClient(searchindex.Config{AppID: "a", APIKey: "k"})
	require.NoError(t, err)
	_, err = index.NewRemote(api, " ")
	require.Error(t, err)
}

func TestMemory_Snapshots(t *testing.T) {
	m := index.NewMemory(indexName)
	require.NoError(t, m.ConfigureSynonyms(context.Background(), []searchindex.Synonym{{ObjectID: "a"}}))
	res := m.UploadRecords(context.Background(), records(3), index.UploadOptions{})
	require.True(t, res.Success)

	recs := m.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "city-00-testland", recs[0].ObjectID)
	assert.Len(t, m.Synonyms(), 1)
}

type batchRecord struct {
	status  string
	records int
}

type recordingMetrics struct {
	batches []batchRecord
}

func (m *recordingMetrics) RecordUploadBatch(_ context.Context, status string, records int, _ time.Duration) {
	m.batches = append(m.batches, batchRecord{status: status, records: records})
}

func TestMemory_RecordsUploadMetrics(t *testing.T) {
	m := index.NewMemory(indexName)
	metrics := &recordingMetrics{}
	m.SetMetrics(metrics)
	m.FailOnBatch(3)

	res := m.UploadRecords(context.Background(), records(25), index.UploadOptions{BatchSize: 10})
	assert.False(t, res.Success)
	assert.Equal(t, []batchRecord{{"ok", 10}, {"ok", 10}, {"error", 5}}, metrics.batches)
}

func TestMemory_DetachesRecordSlices(t *testing.T) {
	ctx := context.Background()
	m := index.NewMemory(indexName)
	recs := records(1)
	recs[0].Keywords = []string{"harbor"}
	id := recs[0].ObjectID
	require.True(t, m.UploadRecords(ctx, recs, index.UploadOptions{}).Success)

	recs[0].VibeTags[0] = "changed-by-caller"
	recs[0].Keywords[0] = "changed-by-caller"

	got, err := m.GetRecord(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"test"}, got.VibeTags)
	assert.Equal(t, []string{"harbor"}, got.Keywords)

	got.VibeTags[0] = "changed-after-get"
	again, err := m.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, again.VibeTags)

	listed := m.Records()
	listed[0].Keywords[0] = "changed-after-list"
	again, err = m.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"harbor"}, again.Keywords)
}
