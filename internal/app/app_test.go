package app

import (
	"testing"

	"github.com/rpgvault/ingest/internal/config"
	"github.com/rpgvault/ingest/internal/home"
)

func TestVectorStoreConfigDefaultsWhenUnset(t *testing.T) {
	cfg := vectorStoreConfig("")
	if cfg.Host != "127.0.0.1" || cfg.Port != 6334 {
		t.Errorf("vectorStoreConfig(\"\") = %+v, want 127.0.0.1:6334", cfg)
	}
}

func TestVectorStoreConfigParsesHostPort(t *testing.T) {
	cfg := vectorStoreConfig("qdrant.internal:6999")
	if cfg.Host != "qdrant.internal" || cfg.Port != 6999 {
		t.Errorf("vectorStoreConfig() = %+v, want qdrant.internal:6999", cfg)
	}
}

func TestVectorStoreConfigFallsBackOnMalformedAddress(t *testing.T) {
	cfg := vectorStoreConfig("not-a-host-port-pair")
	if cfg.Host != "not-a-host-port-pair" || cfg.Port != 6334 {
		t.Errorf("vectorStoreConfig() = %+v, want fallback host with default port", cfg)
	}
}

func TestBuildWiresOrchestrator(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RedisURL = "redis://127.0.0.1:6379/0"
	cfg.VectorStoreURL = "127.0.0.1:6334"
	cfg.DocumentStoreURL = "http://127.0.0.1:9181"

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	a, err := Build(cfg, h)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.Orchestrator == nil {
		t.Fatal("Build() did not wire an Orchestrator")
	}
	if a.Orchestrator.Catalog == nil {
		t.Error("Orchestrator.Catalog is nil")
	}
	if a.Orchestrator.Providers == nil {
		t.Error("Orchestrator.Providers is nil")
	}
	if a.Orchestrator.Enhancer == nil {
		t.Error("Orchestrator.Enhancer is nil")
	}
	if a.Orchestrator.Dedup == nil {
		t.Error("Orchestrator.Dedup is nil")
	}
	if a.Orchestrator.VectorStore == nil {
		t.Error("Orchestrator.VectorStore is nil")
	}
	if a.Orchestrator.DocStore == nil {
		t.Error("Orchestrator.DocStore is nil")
	}
	if a.Orchestrator.Sessions == nil {
		t.Error("Orchestrator.Sessions is nil")
	}
	if a.Home != h {
		t.Error("Build() did not thread through the supplied home.Dir")
	}
}

func TestBuildRejectsMalformedRedisURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RedisURL = "not a url"

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	if _, err := Build(cfg, h); err == nil {
		t.Error("Build() expected an error for a malformed redis URL")
	}
}
