// Package main provides the entry point for the graphy MCP (Model Context Protocol) server.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"graphy/internal/clients/zipkin"
	"graphy/internal/config"
	"graphy/internal/db"
	mcpsrv "graphy/internal/mcp"
)

func main() {
	cfg, err := config.Load(os.Getenv("GRAPHY_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// stdout carries the protocol, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := zipkin.NewClient(cfg.Zipkin.URL, cfg.Zipkin.GetTimeoutDuration(), logger)

	store, err := db.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to open graph store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to migrate graph store: %v", err)
	}

	s := server.NewMCPServer(
		"graphy-mcp",
		"1.0.0",
	)

	graphServer := mcpsrv.New(cfg, client, store, logger)
	graphServer.RegisterTools(s)

	logger.Info("graphy MCP server listening on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
