package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/storylines/internal/config"
	"github.com/jwebster45206/storylines/pkg/prompts"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// LLMService turns a rendered prompt into raw model text. The output is untrusted and
// goes through the response normalizer before anything reads it.
type LLMService interface {
	Generate(ctx context.Context, req prompts.Request) (string, error)
	Name() string
}

// NewLLMService builds the provider selected in cfg, wrapped with metrics.
func NewLLMService(cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	var svc LLMService
	switch cfg.LLMProvider {
	case "openai":
		svc = NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelName, logger)
	case "anthropic":
		svc = NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, logger)
	case "ollama":
		s, err := NewOllamaService(cfg.OllamaURL, cfg.ModelName, logger)
		if err != nil {
			return nil, err
		}
		svc = s
	case "mock":
		svc = NewMockLLM()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	var tokens *TokenEstimator
	if cfg.TokenMetrics {
		tokens = NewTokenEstimator(cfg.ModelName, logger)
	}
	return Instrument(svc, tokens), nil
}
