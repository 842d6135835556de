// Package gemini implements enrich.Generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/core"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// Temperature is passed through when > 0.
	Temperature float32

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

var _ enrich.Generator = (*Generator)(nil)

func New(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Generator{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, req enrich.Request) (string, error) {
	gc := &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(req.System) != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if g.temperature > 0 {
		gc.Temperature = genai.Ptr(g.temperature)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", classifyErr(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &core.RateLimitError{Err: err}
		case apiErr.Code/100 == 5:
			return &core.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &core.TransientError{Err: err}
	}
	return err
}
