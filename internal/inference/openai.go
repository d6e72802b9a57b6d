package inference

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// OpenRouterBaseURL is the public OpenRouter API root.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultAzureAPIVersion is the Azure OpenAI API version used when none is configured.
	DefaultAzureAPIVersion = "2023-05-15"

	maxResponseBytes = 10 * 1024 * 1024
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
type OpenAIConfig struct {
	// Provider names the backend in logs and errors.
	Provider string
	// Endpoint is the full chat completions URL.
	Endpoint string
	// APIKey is sent as a Bearer token, or in the api-key header when
	// UseAPIKeyHeader is set (Azure).
	APIKey          string
	UseAPIKeyHeader bool
	// Model is sent in the request body. Azure selects the model by deployment
	// and ignores it.
	Model       string
	MaxTokens   int
	Temperature float64
	// RequestsPerSecond throttles outgoing requests; zero disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Headers           map[string]string
}

// OpenRouterConfig returns the configuration for OpenRouter.
func OpenRouterConfig(apiKey, model string) OpenAIConfig {
	return OpenAIConfig{
		Provider:    "openrouter",
		Endpoint:    OpenRouterBaseURL + "/chat/completions",
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   4096,
		Temperature: 0.7,
		Headers: map[string]string{
			"X-Title": "sixhat",
		},
	}
}

// AzureConfig returns the configuration for an Azure OpenAI deployment.
func AzureConfig(apiKey, endpoint, deployment, apiVersion string) OpenAIConfig {
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}
	u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(endpoint, "/"), url.PathEscape(deployment), url.QueryEscape(apiVersion))
	return OpenAIConfig{
		Provider:        "azure",
		Endpoint:        u,
		APIKey:          apiKey,
		UseAPIKeyHeader: true,
		Model:           deployment,
		MaxTokens:       4096,
		Temperature:     0.7,
	}
}

// OpenAI is a Client for any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	cfg     OpenAIConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAI creates a chat completions client.
func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) (*OpenAI, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%s: endpoint is required", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Provider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAI{
		cfg:     cfg,
		http:    httpClient,
		limiter: limiter,
		logger:  logger.With(zap.String("provider", cfg.Provider)),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the role instructions as the system message and the role
// context as the user message.
func (c *OpenAI) Complete(ctx context.Context, roleContext, roleInstructions string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", transportError(ctx, c.cfg.Provider, err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: roleInstructions},
			{Role: "user", Content: roleContext},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UseAPIKeyHeader {
		req.Header.Set("api-key", c.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError(ctx, c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", transportError(ctx, c.cfg.Provider, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("completion rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))
		return "", statusError(c.cfg.Provider, resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", Invalid(c.cfg.Provider, "failed to parse response: %v", err)
	}
	if parsed.Error != nil {
		return "", Invalid(c.cfg.Provider, "API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", Invalid(c.cfg.Provider, "no completion returned")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", Invalid(c.cfg.Provider, "empty completion")
	}

	c.logger.Debug("completion received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)))
	return text, nil
}
