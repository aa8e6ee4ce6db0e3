// Command mcp serves the memory tools over stdio for MCP clients.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/storylines/internal/config"
	"github.com/jwebster45206/storylines/internal/logger"
	"github.com/jwebster45206/storylines/internal/memory"
	"github.com/jwebster45206/storylines/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// stdout carries the protocol
	log := logger.New(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storageCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	backends, err := storage.Open(storageCtx, cfg, log)
	cancel()
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer backends.Close()

	server := memory.NewMCPServer(memory.NewStore(backends.Repo, backends.Flags, backends.Sessions, log))
	log.Info("MCP memory server running on stdio", "name", memory.ServerName, "version", memory.ServerVersion)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error("MCP server stopped", "error", err)
	}
}
