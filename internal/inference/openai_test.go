package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc, mutate ...func(*OpenAIConfig)) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := OpenRouterConfig("test-key", "test/model")
	cfg.Endpoint = srv.URL + "/chat/completions"
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := NewOpenAI(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func TestOpenAI_Complete(t *testing.T) {
	var got chatRequest
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "sixhat", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  White hat: facts  "}}]}`))
	})

	text, err := client.Complete(context.Background(), "the requirement", "you are the white hat")
	require.NoError(t, err)
	assert.Equal(t, "White hat: facts", text)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "you are the white hat", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "the requirement", got.Messages[1].Content)
	assert.Equal(t, "test/model", got.Model)
}

func TestOpenAI_AzureHeaders(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "az-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}, func(c *OpenAIConfig) {
		c.APIKey = "az-key"
		c.UseAPIKeyHeader = true
	})

	_, err := client.Complete(context.Background(), "ctx", "instr")
	require.NoError(t, err)
}

func TestAzureConfig_Endpoint(t *testing.T) {
	cfg := AzureConfig("k", "https://res.openai.azure.com/", "gpt4", "")
	assert.Equal(t, "https://res.openai.azure.com/openai/deployments/gpt4/chat/completions?api-version=2023-05-15", cfg.Endpoint)
	assert.True(t, cfg.UseAPIKeyHeader)
}

func TestOpenAI_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Reason
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ReasonBackendUnavailable},
		{"server error", http.StatusBadGateway, `bad gateway`, ReasonBackendUnavailable},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad"}}`, ReasonInvalidResponse},
		{"garbage body", http.StatusOK, `not json`, ReasonInvalidResponse},
		{"no choices", http.StatusOK, `{"choices":[]}`, ReasonInvalidResponse},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, ReasonInvalidResponse},
		{"api error in body", http.StatusOK, `{"error":{"message":"quota"}}`, ReasonInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), "ctx", "instr")
			require.Error(t, err)

			var ie *Error
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.want, ie.Reason)
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}

func TestOpenAI_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "ctx", "instr")
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))

	var ie *Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "openrouter", ie.Provider)
}

func TestOpenAI_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := OpenRouterConfig("k", "m")
	cfg.Endpoint = url + "/chat/completions"
	client, err := NewOpenAI(cfg, nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "ctx", "instr")
	require.Error(t, err)
	assert.Equal(t, ReasonBackendUnavailable, ReasonOf(err))
}

func TestNewOpenAI_Validation(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Provider: "x", APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = NewOpenAI(OpenAIConfig{Provider: "x", Endpoint: "http://localhost"}, nil)
	assert.ErrorContains(t, err, "API key is required")
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, ReasonTimeout, ReasonOf(context.DeadlineExceeded))
	assert.Equal(t, ReasonBackendUnavailable, ReasonOf(errors.New("boom")))
	assert.Equal(t, ReasonInvalidResponse, ReasonOf(Invalid("p", "bad %d", 1)))

	var f ClientFunc = func(ctx context.Context, c, i string) (string, error) { return c + i, nil }
	out, err := f.Complete(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestWithTimeout(t *testing.T) {
	var f ClientFunc = func(ctx context.Context, c, i string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := WithTimeout(f, 20*time.Millisecond).Complete(context.Background(), "c", "i")
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))

	assert.NotNil(t, WithTimeout(f, 0))
}
