package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwebster45206/storylines/pkg/prompts"
)

var (
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storylines_llm_requests_total",
		Help: "Model generation calls by provider and outcome.",
	}, []string{"provider", "status"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storylines_llm_request_duration_seconds",
		Help:    "Latency of model generation calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	llmPromptTokens = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storylines_llm_prompt_tokens",
		Help:    "Estimated prompt size in tokens.",
		Buckets: prometheus.LinearBuckets(250, 250, 20),
	}, []string{"provider"})
)

const (
	statusOK      = "ok"
	statusError   = "error"
	statusTimeout = "timeout"
)

// TokenEstimator counts prompt tokens with tiktoken. The encoding is loaded on first use;
// if it cannot be loaded the estimator stays disabled.
type TokenEstimator struct {
	model  string
	logger *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewTokenEstimator(model string, logger *slog.Logger) *TokenEstimator {
	return &TokenEstimator{model: model, logger: logger}
}

func (e *TokenEstimator) load() {
	enc, err := tiktoken.EncodingForModel(e.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if err != nil {
		e.logger.Warn("Token estimation disabled", "model", e.model, "error", err)
		return
	}
	e.enc = enc
}

// Count returns the token count of text, or false when no encoding is available.
func (e *TokenEstimator) Count(text string) (int, bool) {
	if e == nil {
		return 0, false
	}
	e.once.Do(e.load)
	if e.enc == nil {
		return 0, false
	}
	return len(e.enc.Encode(text, nil, nil)), true
}

type instrumentedLLM struct {
	next   LLMService
	tokens *TokenEstimator
}

// Instrument wraps svc so every call is counted and timed. tokens may be nil.
func Instrument(svc LLMService, tokens *TokenEstimator) LLMService {
	return &instrumentedLLM{next: svc, tokens: tokens}
}

func (s *instrumentedLLM) Name() string { return s.next.Name() }

func (s *instrumentedLLM) Generate(ctx context.Context, req prompts.Request) (string, error) {
	provider := s.next.Name()
	if n, ok := s.tokens.Count(req.System + "\n" + req.User); ok {
		llmPromptTokens.With(prometheus.Labels{"provider": provider}).Observe(float64(n))
	}

	start := time.Now()
	out, err := s.next.Generate(ctx, req)
	llmDuration.With(prometheus.Labels{"provider": provider}).Observe(time.Since(start).Seconds())

	status := statusOK
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = statusTimeout
	case err != nil:
		status = statusError
	}
	llmRequests.With(prometheus.Labels{"provider": provider, "status": status}).Inc()
	return out, err
}
