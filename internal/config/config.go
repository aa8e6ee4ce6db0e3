package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"3001"`
	Environment string `env:"ENVIRONMENT"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"openai"`
	ModelName       string `env:"MODEL_NAME"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OllamaURL       string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	MaxScenesPerGame int           `env:"MAX_SCENES_PER_GAME" envDefault:"20"`
	GenerateTimeout  time.Duration `env:"GENERATE_TIMEOUT" envDefault:"60s"`
	LockTTL          time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	MCPEnabled   bool   `env:"MCP_ENABLED" envDefault:"false"`
	MemoryMCPURL string `env:"MEMORY_MCP_URL"` // Remote memory server; local store when empty
	TokenMetrics bool   `env:"TOKEN_METRICS" envDefault:"true"`
	CORSOrigin   string `env:"CORS_ORIGIN"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Environment == "" {
		cfg.Environment = getEnv("NODE_ENV", "development")
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModel(cfg.LLMProvider)
	}
	return cfg, nil
}

// Validate checks provider credentials and limits. Failures are fatal at startup.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when using the openai provider")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when using the anthropic provider")
		}
	case "ollama":
		if c.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL is required when using the ollama provider")
		}
	case "mock":
		if c.IsProduction() {
			return fmt.Errorf("the mock provider cannot be used in production")
		}
	default:
		return fmt.Errorf("invalid LLM provider %q (supported: openai, anthropic, ollama, mock)", c.LLMProvider)
	}

	if c.MaxScenesPerGame < 1 {
		return fmt.Errorf("MAX_SCENES_PER_GAME must be positive, got %d", c.MaxScenesPerGame)
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("GENERATE_TIMEOUT must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-5-sonnet-latest"
	case "ollama":
		return "llama3.1"
	default:
		return "gpt-4"
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
