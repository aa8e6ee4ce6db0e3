package services

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/storylines/pkg/chat"
	"github.com/jwebster45206/storylines/pkg/prompts"
)

// OpenAIService talks to the OpenAI chat completions API or any server that speaks it.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

var _ LLMService = (*OpenAIService)(nil)

// NewOpenAIService creates a client. An empty baseURL uses the public API.
func NewOpenAIService(apiKey, baseURL, modelName string, logger *slog.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		logger:    logger,
	}
}

func (s *OpenAIService) Name() string { return "openai" }

func (s *OpenAIService) Generate(ctx context.Context, req prompts.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	for _, m := range req.Messages() {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case chat.ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		case chat.ChatRoleAgent:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.modelName,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	s.logger.Debug("OpenAI completion received",
		"model", s.modelName,
		"kind", req.Kind,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}
