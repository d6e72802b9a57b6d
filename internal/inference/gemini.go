package inference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the API root; empty uses the public endpoint.
	BaseURL string
}

// Gemini is a Client backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	temp   float32
	logger *zap.Logger
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		temp:   cfg.Temperature,
		logger: logger.With(zap.String("provider", "gemini")),
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, roleContext, roleInstructions string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(roleInstructions, genai.RoleUser),
	}
	if g.temp > 0 {
		config.Temperature = genai.Ptr(g.temp)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(roleContext, genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", transportError(ctx, "gemini", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", Invalid("gemini", "no candidates returned")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", Invalid("gemini", "empty completion")
	}

	g.logger.Debug("completion received", zap.Int("response_len", len(text)))
	return text, nil
}
