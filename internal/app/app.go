// Package app wires the pipeline orchestrator and its collaborators
// from a loaded *config.Config: the single construction path shared by
// every cmd/rpgvault subcommand (extract, batch, status, serve).
package app

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rpgvault/ingest/internal/aiprovider"
	"github.com/rpgvault/ingest/internal/catalog"
	"github.com/rpgvault/ingest/internal/config"
	"github.com/rpgvault/ingest/internal/dedup"
	"github.com/rpgvault/ingest/internal/docstore"
	"github.com/rpgvault/ingest/internal/enhancer"
	"github.com/rpgvault/ingest/internal/home"
	"github.com/rpgvault/ingest/internal/pipeline"
	"github.com/rpgvault/ingest/internal/vectorstore"
)

// defaultVectorStoreAddr is used when VECTOR_STORE_URL is unset, matching
// Qdrant's default gRPC port.
const defaultVectorStoreAddr = "127.0.0.1:6334"

// App bundles the constructed Orchestrator with the home directory it
// reads uploads from, the unit every subcommand needs.
type App struct {
	Orchestrator *pipeline.Orchestrator
	Home         *home.Dir
}

// Build constructs an Orchestrator and its collaborators from cfg. The
// vector and document store adapters dial eagerly: a subcommand that
// never touches persistence (e.g. `status`) still pays a cheap dial
// cost.
func Build(cfg *config.Config, h *home.Dir) (*App, error) {
	cat := catalog.New()

	providers := aiprovider.NewRegistryFromConfig(aiprovider.Config{
		ProviderAKey:       cfg.GetAPIKey("cloud-a"),
		ProviderBKey:       cfg.GetAPIKey("cloud-b"),
		LocalProviderURL:   cfg.LocalProviderURL,
		LocalProviderModel: cfg.LocalProviderModel,
		Timeout:            cfg.AITimeout(),
		Catalog:            cat,
	})

	enh := enhancer.New(enhancer.DefaultDictionary, cat.ProtectedTerms())

	dedupRegistry, err := dedup.New(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("app: dedup registry: %w", err)
	}

	vecStore, err := vectorstore.New(vectorStoreConfig(cfg.VectorStoreURL))
	if err != nil {
		return nil, fmt.Errorf("app: vector store: %w", err)
	}

	docStore := docstore.New(cfg.DocumentStoreURL)

	sessions := pipeline.NewSessionRegistry(time.Duration(cfg.SessionTTLSeconds) * time.Second)

	orch := &pipeline.Orchestrator{
		Catalog:        cat,
		Providers:      providers,
		Enhancer:       enh,
		Dedup:          dedupRegistry,
		VectorStore:    vecStore,
		DocStore:       docStore,
		Sessions:       sessions,
		MaxPageWorkers: cfg.MaxPageWorkers,
		UploadMaxBytes: cfg.UploadMaxBytes,
	}

	return &App{Orchestrator: orch, Home: h}, nil
}

// vectorStoreConfig parses a "host:port" VECTOR_STORE_URL into a Qdrant
// client config, falling back to the local default when unset.
func vectorStoreConfig(addr string) vectorstore.Config {
	if addr == "" {
		addr = defaultVectorStoreAddr
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return vectorstore.Config{Host: addr, Port: 6334}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6334
	}
	return vectorstore.Config{Host: host, Port: port}
}
