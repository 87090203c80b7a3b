package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("AUTOSAVE_INTERVAL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DatabaseDSN == "" {
		t.Fatalf("expected default DSN")
	}
	if cfg.AutosaveInterval != 5*time.Second {
		t.Fatalf("expected 5s autosave interval, got %v", cfg.AutosaveInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("AUTOSAVE_INTERVAL", "30s")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	cfg := Load()
	if cfg.Port != "9999" {
		t.Fatalf("expected 9999, got %s", cfg.Port)
	}
	if cfg.AutosaveInterval != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.AutosaveInterval)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("expected gpt-4o, got %s", cfg.OpenAIModel)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("AUTOSAVE_INTERVAL", "often")
	cfg := Load()
	if cfg.AutosaveInterval != 5*time.Second {
		t.Fatalf("expected fallback 5s, got %v", cfg.AutosaveInterval)
	}
}
