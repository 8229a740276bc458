package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "local" {
		t.Fatalf("expected default backend 'local', got %q", cfg.Storage.Backend)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "trusted-docs")
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	if cfg.Storage.Backend != "s3" || cfg.Storage.S3Bucket != "trusted-docs" {
		t.Fatalf("env overrides not applied: %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("s3-backed config should validate: %v", err)
	}
}

func TestInvalidChunkerBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunker.Max = cfg.Chunker.Min
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for max <= min")
	}
}
