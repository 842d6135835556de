package consumer

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/mocksearch"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/schema"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/worker"
	"github.com/shpitdev/destination-pipeline/pkg/searchindex"
)

func TestPublicPackagesCompile(t *testing.T) {
	t.Parallel()

	if got := destination.GenerateObjectID("São Paulo", "Brazil"); got != "sao-paulo-brazil" {
		t.Fatalf("GenerateObjectID = %q", got)
	}
	if len(schema.Settings().SearchableAttributes) == 0 {
		t.Fatalf("settings must list searchable attributes")
	}
	if strings.Contains(redact.Secrets("api_key=abc123"), "abc123") {
		t.Fatalf("secret leaked through redaction")
	}

	runner := core.ProcessFunc[string, string](func(_ context.Context, in string) (string, error) {
		return strings.ToUpper(in), nil
	})
	out, err := worker.ProcessAll(context.Background(), []string{"lisbon"}, runner.Process, worker.Options{Workers: 1})
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if len(out) != 1 || out[0].Output != "LISBON" {
		t.Fatalf("unexpected output: %#v", out)
	}

	var buf bytes.Buffer
	if err := local.WriteCorpus(&buf, nil); err != nil {
		t.Fatalf("WriteCorpus failed: %v", err)
	}
}

func TestSearchClientAgainstMock(t *testing.T) {
	t.Parallel()

	srv := mocksearch.New()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := searchindex.NewClient(searchindex.Config{
		BaseURL:          ts.URL,
		AppID:            "app",
		APIKey:           "key",
		TaskPollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	ctx := context.Background()
	task, err := c.SetSettings(ctx, "consumer", schema.Settings())
	if err != nil {
		t.Fatalf("SetSettings failed: %v", err)
	}
	if err := c.WaitTask(ctx, "consumer", task); err != nil {
		t.Fatalf("WaitTask failed: %v", err)
	}
	got, err := c.GetSettings(ctx, "consumer")
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if len(got.CustomRanking) != len(schema.Settings().CustomRanking) {
		t.Fatalf("custom ranking not round-tripped: %#v", got.CustomRanking)
	}
}
