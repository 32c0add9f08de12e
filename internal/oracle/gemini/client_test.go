package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farefuse/farefuse/internal/oracle"
	"github.com/farefuse/farefuse/internal/oracle/gemini"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gemini.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return gemini.NewClient(gemini.ClientConfig{
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
}

func TestClient_Generate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "List hubs", body.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "  [\"Bhopal\",\"Agra\"]\n"}]},
				"finishReason": "STOP"
			}]
		}`))
	})

	text, err := client.Generate(context.Background(), "List hubs")
	require.NoError(t, err)
	assert.Equal(t, `["Bhopal","Agra"]`, text)
}

func TestClient_Generate_JoinsParts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"52"},{"text":"40"}]}}]}`))
	})

	text, err := client.Generate(context.Background(), "price")
	require.NoError(t, err)
	assert.Equal(t, "5240", text)
}

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		errIs       error
		errContains string
	}{
		{
			name:        "api error",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			errContains: "API key not valid",
		},
		{
			name:        "opaque error",
			status:      http.StatusForbidden,
			body:        `nope`,
			errContains: "unexpected status 403",
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			errIs:  oracle.ErrEmptyResponse,
		},
		{
			name:   "blank text",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`,
			errIs:  oracle.ErrEmptyResponse,
		},
		{
			name:        "blocked prompt",
			status:      http.StatusOK,
			body:        `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			errContains: "SAFETY",
		},
		{
			name:        "invalid json",
			status:      http.StatusOK,
			body:        `{"candidates":`,
			errContains: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Generate(context.Background(), "prompt")
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}

func TestClient_Generate_NoAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.ClientConfig{BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := client.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, oracle.ErrNotConfigured)
	assert.False(t, called)
}

func TestClient_Generate_SatisfiesRaceHelper(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Train from Bhopal saves you a bundle."}]}}]}`))
	})

	text, err := oracle.Generate(context.Background(), client, "explain", 0)
	require.NoError(t, err)
	assert.Equal(t, "Train from Bhopal saves you a bundle.", text)
}
