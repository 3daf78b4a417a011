package llm

import (
	"context"
	"fmt"

	"moderation-service/internal/gemini"
	"moderation-service/internal/openrouter"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type      ProviderType `yaml:"type"`
	APIKey    string       `yaml:"api_key"`
	ModelName string       `yaml:"model_name"`
	BaseURL   string       `yaml:"base_url"`
	// Rate limiting per provider, 0 disables it
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Completer is a generative model that turns one prompt into raw text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// NewCompleter builds the client for one configured provider. The system
// prompt is fixed at construction.
func NewCompleter(cfg ProviderConfig, logger *zap.Logger) (Completer, error) {
	var (
		completer Completer
		err       error
	)

	switch cfg.Type {
	case ProviderGemini:
		completer, err = gemini.NewClient(gemini.Config{
			APIKey:            cfg.APIKey,
			ModelName:         cfg.ModelName,
			SystemInstruction: SystemPrompt,
		}, logger)
	case ProviderGroq, ProviderOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Type == ProviderGroq {
			baseURL = openrouter.GroqBaseURL
		}
		completer, err = openrouter.NewClient(openrouter.Config{
			Provider:          string(cfg.Type),
			APIKey:            cfg.APIKey,
			BaseURL:           baseURL,
			ModelName:         cfg.ModelName,
			SystemInstruction: SystemPrompt,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		completer = NewRateLimitedCompleter(completer, cfg.RequestsPerMinute)
	}

	return completer, nil
}

// RateLimitedCompleter wraps a completer with a token bucket
type RateLimitedCompleter struct {
	completer Completer
	limiter   *rate.Limiter
}

// NewRateLimitedCompleter allows requestsPerMinute calls per minute with a burst of one
func NewRateLimitedCompleter(completer Completer, requestsPerMinute int) *RateLimitedCompleter {
	return &RateLimitedCompleter{
		completer: completer,
		limiter:   rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), 1),
	}
}

func (p *RateLimitedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return p.completer.Complete(ctx, prompt)
}

func (p *RateLimitedCompleter) Close() error {
	return p.completer.Close()
}

func (p *RateLimitedCompleter) GetModelInfo() map[string]interface{} {
	info := p.completer.GetModelInfo()
	info["requests_per_minute"] = float64(p.limiter.Limit()) * 60
	return info
}
