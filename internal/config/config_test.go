package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("expected bbolt storage by default, got %q", cfg.StorageType)
	}
	if cfg.RequestTimeout != 20*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.RequestTimeout)
	}
	if cfg.TLSInsecureSkipVerify {
		t.Fatalf("tls verification must be on by default")
	}
	if len(cfg.Providers) != 0 {
		t.Fatalf("expected no providers, got %v", cfg.Providers)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("INGEST_WORKERS", "5")

	cfg, err := Load([]string{"--providers", "guardian, nytimes.com", "--storage-type", "memory"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageType != "memory" {
		t.Fatalf("flag should win over env, got %q", cfg.StorageType)
	}
	if cfg.IngestWorkers != 5 {
		t.Fatalf("expected workers from env, got %d", cfg.IngestWorkers)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != "guardian" || cfg.Providers[1] != "nytimes.com" {
		t.Fatalf("unexpected providers %#v", cfg.Providers)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "0")
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestLoadBoolFlag(t *testing.T) {
	cfg, err := Load([]string{"--enrich-page-meta", "--publishers-file", "configs/publishers.yaml"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.EnrichPageMeta || cfg.PublishersFile != "configs/publishers.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
