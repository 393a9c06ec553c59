// Package main is the entry point for the localpdfvault server.
// It wires together all dependencies and starts either the HTTP API
// (default) or an MCP stdio server (-mcp).
//
// This file is intentionally minimal - all business logic lives in internal/.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yonie/localpdfvault/internal/config"
	"github.com/yonie/localpdfvault/internal/extract"
	"github.com/yonie/localpdfvault/internal/indexer"
	mcphandlers "github.com/yonie/localpdfvault/internal/mcp"
	"github.com/yonie/localpdfvault/internal/scanner"
	"github.com/yonie/localpdfvault/internal/store"
	"github.com/yonie/localpdfvault/internal/web"
)

const (
	serverName    = "localpdfvault"
	serverVersion = "v1.0.0"
)

// setupLogger creates an slog logger that writes to a debug file in the data directory.
// File format: debug-YYYY-MM-DD.txt
func setupLogger(dataDir string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dataDir, fmt.Sprintf("debug-%s.txt", date))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(handler), file, nil
}

func main() {
	// MCP stdio servers must log to stderr only (for the standard log package).
	log.SetOutput(os.Stderr)

	cfg := config.Load()

	// --- 0. Parse flags (environment provides the defaults) ---
	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database file")
	dataDir := flag.String("data-dir", cfg.DataDir, "Directory for log files")
	ollamaHost := flag.String("ollama-host", cfg.OllamaHost, "Ollama server URL")
	ollamaModel := flag.String("ollama-model", cfg.OllamaModel, "Ollama vision model for extraction")
	maxPagesPerEnd := flag.Int("max-pages-per-end", cfg.MaxPagesPerEnd,
		"Render only the first and last N pages of large documents (0 = all pages)")
	extractTimeout := flag.Duration("extract-timeout", cfg.ExtractTimeout,
		"Timeout for one vision extraction call")
	mcpMode := flag.Bool("mcp", false, "Serve MCP tools over stdio instead of the HTTP API")
	flag.Parse()

	// --- 1. Setup file-based debug logger ---
	logger, logFile, err := setupLogger(*dataDir)
	if err != nil {
		log.Printf("Warning: failed to setup file logger: %v", err)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	} else {
		defer logFile.Close()
	}

	logger.Info("server starting",
		"name", serverName,
		"version", serverVersion,
		"db", *dbPath,
		"ollama", *ollamaHost,
		"model", *ollamaModel,
	)

	// --- 2. Create all dependencies ---

	// Store: durable records + the status singleton. Opening resets any
	// stale is_running left by an unclean shutdown.
	st, err := store.New(*dbPath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Extractor: PDF pages in, structured metadata out.
	extractor, err := extract.NewOllamaExtractor(extract.Config{
		Host:           *ollamaHost,
		Model:          *ollamaModel,
		MaxPagesPerEnd: *maxPagesPerEnd,
		Timeout:        *extractTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create extractor", "error", err)
		log.Fatalf("Failed to create extractor: %v", err)
	}

	// --- 3. Wire up the orchestrator ---
	orch := indexer.New(st, extractor,
		scanner.SHA256Hasher{}, scanner.PDFWalker{}, indexer.RealClock{}, logger)

	// --- 4. Serve ---
	if *mcpMode {
		server := sdk.NewServer(&sdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, &sdk.ServerOptions{
			Instructions: "Use vault_index to index a directory of PDFs, then vault_search to find documents by subject, sender, tags, or free text.",
		})
		mcphandlers.NewHandlers(st, orch, logger).Register(server)

		logger.Info("mcp server ready, waiting for requests")
		if err := server.Run(context.Background(), &sdk.StdioTransport{}); err != nil {
			logger.Error("server error", "error", err)
			log.Fatal(err)
		}
		return
	}

	srv := web.NewServer(st, orch, extractor, logger)
	logger.Info("http server ready", "addr", *addr)
	fmt.Printf("Starting %s on %s\n", serverName, *addr)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		logger.Error("server error", "error", err)
		log.Fatal(err)
	}
}
