package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Make sure ambient environment doesn't leak in.
	for _, key := range []string{
		"PDFVAULT_ADDR", "OLLAMA_HOST", "OLLAMA_MODEL", "PDFVAULT_DB",
		"PDFVAULT_DATA_DIR", "PDFVAULT_MAX_PAGES_PER_END", "PDFVAULT_EXTRACT_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	want := Default()
	if cfg != want {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PDFVAULT_ADDR", ":9999")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "llava:13b")
	t.Setenv("PDFVAULT_DB", "/data/vault.db")
	t.Setenv("PDFVAULT_MAX_PAGES_PER_END", "5")
	t.Setenv("PDFVAULT_EXTRACT_TIMEOUT", "90s")

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.OllamaHost != "http://gpu-box:11434" {
		t.Errorf("OllamaHost = %q", cfg.OllamaHost)
	}
	if cfg.OllamaModel != "llava:13b" {
		t.Errorf("OllamaModel = %q", cfg.OllamaModel)
	}
	if cfg.DBPath != "/data/vault.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.MaxPagesPerEnd != 5 {
		t.Errorf("MaxPagesPerEnd = %d", cfg.MaxPagesPerEnd)
	}
	if cfg.ExtractTimeout != 90*time.Second {
		t.Errorf("ExtractTimeout = %v", cfg.ExtractTimeout)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("PDFVAULT_MAX_PAGES_PER_END", "not-a-number")
	t.Setenv("PDFVAULT_EXTRACT_TIMEOUT", "-5s")

	cfg := Load()
	def := Default()
	if cfg.MaxPagesPerEnd != def.MaxPagesPerEnd {
		t.Errorf("MaxPagesPerEnd = %d, want default %d", cfg.MaxPagesPerEnd, def.MaxPagesPerEnd)
	}
	if cfg.ExtractTimeout != def.ExtractTimeout {
		t.Errorf("ExtractTimeout = %v, want default %v", cfg.ExtractTimeout, def.ExtractTimeout)
	}
}

func TestZeroPagesDisablesLimit(t *testing.T) {
	t.Setenv("PDFVAULT_MAX_PAGES_PER_END", "0")
	if cfg := Load(); cfg.MaxPagesPerEnd != 0 {
		t.Errorf("MaxPagesPerEnd = %d, want 0", cfg.MaxPagesPerEnd)
	}
}
