// Package searchindex is a minimal client for the hosted search index
// administrative REST API.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/destination-pipeline/internal/version"
)

const (
	headerAppID  = "X-Algolia-Application-Id"
	headerAPIKey = "X-Algolia-API-Key"

	DefaultTaskPollInterval = 500 * time.Millisecond
	DefaultTaskTimeout      = 2 * time.Minute
)

// Config configures a Client.
type Config struct {
	// BaseURL defaults to https://<AppID>.algolia.net.
	BaseURL string
	AppID   string
	APIKey  string

	HTTPClient *http.Client

	TaskPollInterval time.Duration
	TaskTimeout      time.Duration
}

// Client talks to one search application. It is safe for concurrent use.
type Client struct {
	baseURL      *url.URL
	appID        string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
	taskTimeout  time.Duration
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	appID := strings.TrimSpace(cfg.AppID)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if appID == "" {
		return nil, fmt.Errorf("search app id is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("search api key is required")
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = "https://" + appID + ".algolia.net"
	}
	base, err := parseBaseURL(raw)
	if err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	c := &Client{
		baseURL:      base,
		appID:        appID,
		apiKey:       apiKey,
		http:         hc,
		pollInterval: cfg.TaskPollInterval,
		taskTimeout:  cfg.TaskTimeout,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultTaskPollInterval
	}
	if c.taskTimeout <= 0 {
		c.taskTimeout = DefaultTaskTimeout
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse search base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("search base URL must include a host (got %q)", raw)
	}
	// Ensure the base path ends with a slash so escaped paths can be appended.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// SetSettings replaces the index settings.
func (c *Client) SetSettings(ctx context.Context, index string, s Settings) (int64, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPut, "setSettings", indexPath(index, "settings"), nil, s, &out); err != nil {
		return 0, err
	}
	return out.TaskID, nil
}

// GetSettings returns the index settings.
func (c *Client) GetSettings(ctx context.Context, index string) (Settings, error) {
	var out Settings
	err := c.do(ctx, http.MethodGet, "getSettings", indexPath(index, "settings"), nil, nil, &out)
	return out, err
}

// SaveSynonyms writes synonym rules, optionally replacing all existing ones.
func (c *Client) SaveSynonyms(ctx context.Context, index string, synonyms []Synonym, replaceExisting bool) (int64, error) {
	q := url.Values{}
	q.Set("replaceExistingSynonyms", strconv.FormatBool(replaceExisting))
	if synonyms == nil {
		synonyms = []Synonym{}
	}
	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, "saveSynonyms", indexPath(index, "synonyms", "batch"), q, synonyms, &out); err != nil {
		return 0, err
	}
	return out.TaskID, nil
}

// Batch submits one batch of writes.
func (c *Client) Batch(ctx context.Context, index string, ops []BatchOperation) (BatchResponse, error) {
	var out BatchResponse
	err := c.do(ctx, http.MethodPost, "batch", indexPath(index, "batch"), nil, BatchRequest{Requests: ops}, &out)
	return out, err
}

// ClearObjects deletes every record in the index, keeping settings.
func (c *Client) ClearObjects(ctx context.Context, index string) (int64, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, "clearObjects", indexPath(index, "clear"), nil, struct{}{}, &out); err != nil {
		return 0, err
	}
	return out.TaskID, nil
}

// GetObject fetches one record. A missing record yields an error for which
// IsNotFound reports true.
func (c *Client) GetObject(ctx context.Context, index, objectID string) (map[string]any, error) {
	if strings.TrimSpace(objectID) == "" {
		return nil, fmt.Errorf("objectID is required")
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "getObject", indexPath(index, objectID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask returns the state of an asynchronous write.
func (c *Client) GetTask(ctx context.Context, index string, taskID int64) (TaskStatus, error) {
	var out TaskStatus
	err := c.do(ctx, http.MethodGet, "getTask", indexPath(index, "task", strconv.FormatInt(taskID, 10)), nil, nil, &out)
	return out, err
}

// WaitTask polls until the task is published, the task timeout elapses or ctx ends.
func (c *Client) WaitTask(ctx context.Context, index string, taskID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	t := time.NewTicker(c.pollInterval)
	defer t.Stop()
	for {
		st, err := c.GetTask(ctx, index, taskID)
		if err != nil {
			return fmt.Errorf("wait task %d: %w", taskID, err)
		}
		if st.Status == TaskPublished {
			return nil
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return fmt.Errorf("wait task %d: %w", taskID, ctx.Err())
		}
	}
}

// ListIndices lists the application's indices.
func (c *Client) ListIndices(ctx context.Context) ([]IndexInfo, error) {
	var out ListIndicesResponse
	if err := c.do(ctx, http.MethodGet, "listIndices", "1/indexes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func indexPath(index string, parts ...string) string {
	segs := []string{"1", "indexes", url.PathEscape(strings.TrimSpace(index))}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

func (c *Client) resolve(rel string, q url.Values) string {
	// rel is already path-escaped; baseURL always ends with a slash.
	u := c.baseURL.String() + rel
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, op, rel string, q url.Values, body, out any) error {
	if strings.HasPrefix(rel, "1/indexes//") {
		return errors.New("index name is required")
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(rel, q), rdr)
	if err != nil {
		return err
	}
	req.Header.Set(headerAppID, c.appID)
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return newHTTPError(op, resp, rb)
	}
	if out == nil || len(bytes.TrimSpace(rb)) == 0 {
		return nil
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("parse %s response: %w", op, err)
	}
	return nil
}
