// Command mock-search serves an in-memory search index API for local runs and tests.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shpitdev/destination-pipeline/pkg/mocksearch"
)

func main() {
	addr := defaultString("MOCK_SEARCH_ADDR", ":8081")
	appID := defaultString("MOCK_SEARCH_APP_ID", "")
	apiKey := defaultString("MOCK_SEARCH_API_KEY", "")
	pendingPolls := defaultInt("MOCK_SEARCH_PENDING_POLLS", 0)

	fs := flag.NewFlagSet("mock-search", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&appID, "app-id", appID, "Application ID clients must send (empty disables auth)")
	fs.StringVar(&apiKey, "api-key", apiKey, "API key clients must send (empty disables auth)")
	fs.IntVar(&pendingPolls, "pending-polls", pendingPolls, "Task status polls answered with notPublished before published")
	_ = fs.Parse(os.Args[1:])

	srv := mocksearch.New()
	if appID != "" && apiKey != "" {
		srv.RequireAPIKey(appID, apiKey)
	}
	srv.SetPendingPolls(pendingPolls)

	_, _ = fmt.Fprintf(os.Stdout, "mock-search listening on %s (auth=%t pending_polls=%d)\n", addr, appID != "" && apiKey != "", pendingPolls)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(envVar string, fallback int) int {
	n, err := strconv.Atoi(defaultString(envVar, ""))
	if err != nil {
		return fallback
	}
	return n
}
