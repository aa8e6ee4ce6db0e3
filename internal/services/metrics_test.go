package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/internal/config"
	"github.com/jwebster45206/storylines/pkg/prompts"
)

type namedLLM struct {
	*MockLLM
	name string
}

func (n namedLLM) Name() string { return n.name }

// requestCount reads storylines_llm_requests_total for the given labels.
func requestCount(t *testing.T, provider, status string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "storylines_llm_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["provider"] == provider && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestInstrument_CountsOutcomes(t *testing.T) {
	mock := NewMockLLM()
	svc := Instrument(namedLLM{MockLLM: mock, name: "instrument-test"}, nil)
	assert.Equal(t, "instrument-test", svc.Name())

	_, err := svc.Generate(context.Background(), testRequest())
	require.NoError(t, err)

	mock.GenerateFunc = func(ctx context.Context, req prompts.Request) (string, error) {
		return "", errors.New("boom")
	}
	_, err = svc.Generate(context.Background(), testRequest())
	require.Error(t, err)

	mock.GenerateFunc = func(ctx context.Context, req prompts.Request) (string, error) {
		return "", context.DeadlineExceeded
	}
	_, err = svc.Generate(context.Background(), testRequest())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 1.0, requestCount(t, "instrument-test", statusOK))
	assert.Equal(t, 1.0, requestCount(t, "instrument-test", statusError))
	assert.Equal(t, 1.0, requestCount(t, "instrument-test", statusTimeout))
	assert.Equal(t, 3, mock.CallCount())
}

func TestTokenEstimator_NilIsDisabled(t *testing.T) {
	var e *TokenEstimator
	n, ok := e.Count("hello world")
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestNewLLMService(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{"openai", "openai", false},
		{"anthropic", "anthropic", false},
		{"ollama", "ollama", false},
		{"mock", "mock", false},
		{"venice", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{
				LLMProvider:  tt.provider,
				ModelName:    "test-model",
				OpenAIAPIKey: "sk",
				OllamaURL:    "http://localhost:11434",
			}
			svc, err := NewLLMService(cfg, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, svc.Name())
		})
	}
}
