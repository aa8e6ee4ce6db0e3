package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/jwebster45206/storylines/pkg/prompts"
)

// OllamaService implements LLMService against a local Ollama server.
type OllamaService struct {
	client    *api.Client
	modelName string
	logger    *slog.Logger
}

var _ LLMService = (*OllamaService)(nil)

// NewOllamaService creates a client for baseURL. A trailing /v1 is dropped so the
// OpenAI-compatible address of the same server also works.
func NewOllamaService(baseURL string, modelName string, logger *slog.Logger) (*OllamaService, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return &OllamaService{
		client:    api.NewClient(parsed, &http.Client{Timeout: 120 * time.Second}),
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (s *OllamaService) Name() string { return "ollama" }

func (s *OllamaService) Generate(ctx context.Context, req prompts.Request) (string, error) {
	messages := make([]api.Message, 0, 2)
	for _, m := range req.Messages() {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	options := map[string]interface{}{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var resp api.ChatResponse
	err := s.client.Chat(ctx, &api.ChatRequest{
		Model:    s.modelName,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	if resp.Message.Content == "" {
		return "", ErrEmptyResponse
	}

	s.logger.Debug("Ollama chat received",
		"model", s.modelName,
		"kind", req.Kind,
		"prompt_tokens", resp.PromptEvalCount,
		"completion_tokens", resp.EvalCount)
	return resp.Message.Content, nil
}
