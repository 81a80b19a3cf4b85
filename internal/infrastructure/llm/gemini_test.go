package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtMonitor/internal/config"
	"CourtMonitor/internal/ports"
)

func TestGeminiInvoke(t *testing.T) {
	t.Parallel()

	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"summary\":"},{"text":"\"ok\"}"}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(config.ExtractionConfig{
		Endpoint: server.URL + "/v1beta/models/{model}:generateContent",
		Model:    "gemini-test",
		APIKey:   "k-123",
	})

	out, err := client.Invoke(context.Background(), ports.ExtractionRequest{
		Prompt: "extract",
		Images: []ports.InlineImage{{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "extract", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}), got.Contents[0].Parts[1].InlineData.Data)
}

func TestGeminiErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		"rate limited": {http.StatusTooManyRequests, `{}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, ErrRateLimited))
		}},
		"server error": {http.StatusInternalServerError, `{"error":"boom"}`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "500")
			assert.ErrorContains(t, err, "boom")
		}},
		"blocked": {http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "SAFETY")
		}},
		"no candidates": {http.StatusOK, `{"candidates":[]}`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "no candidates")
		}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewGeminiClient(config.ExtractionConfig{Endpoint: server.URL, Model: "m", APIKey: "k"})
			_, err := client.Invoke(context.Background(), ports.ExtractionRequest{Prompt: "p"})
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestGeminiMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiClient(config.ExtractionConfig{Model: "m"}).Invoke(context.Background(), ports.ExtractionRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "misconfigured")
}

func TestGeminiNilClient(t *testing.T) {
	t.Parallel()

	var c *GeminiClient
	_, err := c.Invoke(context.Background(), ports.ExtractionRequest{Prompt: "p"})
	assert.EqualError(t, err, "gemini client is nil")
}
