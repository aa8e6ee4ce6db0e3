package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/storylines/internal/config"
	"github.com/jwebster45206/storylines/internal/engine"
	"github.com/jwebster45206/storylines/internal/handlers"
	"github.com/jwebster45206/storylines/internal/logger"
	"github.com/jwebster45206/storylines/internal/memory"
	"github.com/jwebster45206/storylines/internal/middleware"
	"github.com/jwebster45206/storylines/internal/services"
	"github.com/jwebster45206/storylines/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Storylines API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	llmService, err := services.NewLLMService(cfg, log)
	if err != nil {
		log.Error("Failed to initialize LLM service", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	backends, err := storage.Open(storageCtx, cfg, log)
	storageCancel()
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	store := memory.NewStore(backends.Repo, backends.Flags, backends.Sessions, log)
	var mem memory.Service = store
	if cfg.MemoryMCPURL != "" {
		dialCtx, dialCancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := memory.Dial(dialCtx, cfg.MemoryMCPURL)
		dialCancel()
		if err != nil {
			log.Error("Failed to connect to memory server", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		mem = client
		log.Info("Using remote memory server", "url", cfg.MemoryMCPURL)
	}

	var locker engine.Locker
	if backends.Redis != nil {
		locker = backends.Redis
	}
	eng := engine.New(backends.Repo, mem, llmService, locker, engine.Options{
		MaxScenes:       cfg.MaxScenesPerGame,
		GenerateTimeout: cfg.GenerateTimeout,
		LockTTL:         cfg.LockTTL,
	}, log)

	checks := map[string]handlers.Pinger{}
	if backends.Database {
		checks["database"] = backends.Repo
	}
	if backends.Redis != nil {
		checks["redis"] = backends.Redis
	}

	mux := handlers.NewRouter(
		handlers.NewGameHandler(eng, log, cfg.IsProduction()),
		handlers.NewHealthHandler(checks, backends.Database, log),
	)
	mux.Handle("GET /metrics", promhttp.Handler())

	if cfg.MCPEnabled {
		mcpServer := memory.NewMCPServer(store)
		mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return mcpServer
		}, nil))
		log.Info("MCP memory server mounted", "path", "/mcp")
	}

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover,
		middleware.Logger,
		middleware.CORS(cfg.CORSOrigin),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		// Turns wait on the model, so the write deadline sits above the generation timeout
		WriteTimeout: eng.Options().GenerateTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := backends.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
