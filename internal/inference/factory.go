package inference

import (
	"context"
	"fmt"

	"github.com/dyluth/sixhat/internal/config"
	"go.uber.org/zap"
)

// New builds the Client selected by the backend configuration.
func New(ctx context.Context, cfg config.BackendConfig, logger *zap.Logger) (Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	var rps float64
	if cfg.RequestsPerSecond != nil {
		rps = *cfg.RequestsPerSecond
	}

	switch cfg.Provider {
	case config.ProviderOpenRouter:
		oc := OpenRouterConfig(cfg.APIKey, cfg.Model)
		applyTuning(&oc, cfg, rps)
		return NewOpenAI(oc, logger)
	case config.ProviderAzure:
		oc := AzureConfig(cfg.APIKey, cfg.Endpoint, cfg.Deployment, cfg.APIVersion)
		applyTuning(&oc, cfg, rps)
		return NewOpenAI(oc, logger)
	case config.ProviderGemini:
		gc := GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model}
		if cfg.Temperature != nil {
			gc.Temperature = float32(*cfg.Temperature)
		}
		return NewGemini(ctx, gc, logger)
	default:
		return nil, fmt.Errorf("unknown backend provider: %s", cfg.Provider)
	}
}

func applyTuning(oc *OpenAIConfig, cfg config.BackendConfig, rps float64) {
	oc.RequestsPerSecond = rps
	if cfg.Temperature != nil {
		oc.Temperature = *cfg.Temperature
	}
}
