// Package gemini implements oracle.TextOracle on top of the Gemini
// generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/farefuse/farefuse/internal/oracle"
	"github.com/farefuse/farefuse/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the Gemini API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-1.5-flash"

	// ProviderName identifies this provider in the resilience monitor.
	ProviderName = "gemini"
)

// ClientConfig holds configuration for the Gemini client.
type ClientConfig struct {
	// APIKey is the Gemini API key. An empty key makes every call fail
	// with oracle.ErrNotConfigured.
	APIKey string

	// Model is the model name (defaults to DefaultModel).
	Model string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient executes requests. If nil, a resilient client is created.
	HTTPClient HTTPDoer

	// Monitor receives health reports for the default resilient client.
	Monitor *resilience.Monitor

	// Timeout bounds a single HTTP attempt (default: 10s). Callers race
	// the whole call against a shorter per-purpose budget anyway.
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Gemini API client.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient HTTPDoer
}

var _ oracle.TextOracle = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 150 * time.Millisecond,
			MaxInterval:     time.Second,
			Monitor:         cfg.Monitor,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API request and response types.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt to the model and returns the text of the first
// candidate, trimmed.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", oracle.ErrNotConfigured
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("unexpected status %d from generateContent", resp.StatusCode)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", oracle.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", oracle.ErrEmptyResponse
	}
	return text, nil
}
