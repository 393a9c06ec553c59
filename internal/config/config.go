// Package config loads runtime settings from the environment, with an
// optional .env file for local setups.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the server needs.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// OllamaHost is the Ollama base URL.
	OllamaHost string

	// OllamaModel is the vision model used for extraction.
	OllamaModel string

	// DBPath is the SQLite database file.
	DBPath string

	// DataDir holds the debug logs.
	DataDir string

	// MaxPagesPerEnd bounds page rendering for large documents
	// (first N + last N); 0 renders all pages.
	MaxPagesPerEnd int

	// ExtractTimeout bounds one vision call.
	ExtractTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:           ":4337",
		OllamaHost:     "http://localhost:11434",
		OllamaModel:    "qwen3-vl:30b-a3b-instruct-q4_K_M",
		DBPath:         "pdfvault.db",
		DataDir:        ".pdfvault",
		MaxPagesPerEnd: 3,
		ExtractTimeout: 2 * time.Minute,
	}
}

// Load reads configuration from the environment on top of the defaults.
// A .env file in the working directory is applied first when present.
func Load() Config {
	// Missing .env is fine - the environment still applies.
	_ = godotenv.Load()

	cfg := Default()
	cfg.Addr = envStr("PDFVAULT_ADDR", cfg.Addr)
	cfg.OllamaHost = envStr("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OllamaModel = envStr("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.DBPath = envStr("PDFVAULT_DB", cfg.DBPath)
	cfg.DataDir = envStr("PDFVAULT_DATA_DIR", cfg.DataDir)
	cfg.MaxPagesPerEnd = envInt("PDFVAULT_MAX_PAGES_PER_END", cfg.MaxPagesPerEnd)
	cfg.ExtractTimeout = envDuration("PDFVAULT_EXTRACT_TIMEOUT", cfg.ExtractTimeout)
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
