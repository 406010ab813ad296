// Package main provides the entry point for the sequential-thinking
// guidance engine's MCP server.
//
// This server is designed to be spawned as a child process by an MCP
// client and communicates via stdio using the Model Context Protocol.
// It should not be run manually by users.
//
// Environment variables:
//   - DEBUG: set to "true" to enable debug logging
//   - STE_*: configuration overrides, see internal/config
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unified-thinking/internal/config"
	"unified-thinking/internal/processor"
	"unified-thinking/internal/server"
	"unified-thinking/internal/snapshot"
	"unified-thinking/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.NewFromEnv(cfg.Logging.Level)
	if os.Getenv("DEBUG") == "true" {
		logger.Infof("Starting guidance engine in debug mode...")
	}

	proc, err := processor.New(cfg.ProcessorConfig())
	if err != nil {
		log.Fatalf("Failed to initialize processor: %v", err)
	}
	defer proc.Shutdown()
	logger.Infof("Initialized processor: session/store/tree/health components wired")

	if cfg.Snapshot.Enabled {
		snapStore, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			log.Fatalf("Failed to open snapshot store at %s: %v", cfg.Snapshot.Path, err)
		}
		defer snapStore.Close()
		proc.AttachSnapshotStore(snapStore)
		logger.Infof("Snapshot persistence enabled at %s", cfg.Snapshot.Path)
	}

	srv := server.New(proc)
	logger.Infof("Created MCP server wrapper")

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	logger.Infof("Created MCP server")

	srv.RegisterTools(mcpServer)
	logger.Infof("Registered tools: think, get_tree, get_guidance, get_health")

	transport := &mcp.StdioTransport{}
	logger.Infof("Created stdio transport")

	ctx := context.Background()
	logger.Infof("Starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
