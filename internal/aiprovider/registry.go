package aiprovider

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpgvault/ingest/internal/catalog"
)

// ErrNotFound is returned when a variant is not registered.
var ErrNotFound = errors.New("ai provider variant not found")

// Registry holds the Provider variants, thread-safe for concurrent
// access.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider), logger: slog.Default()}
}

// SetLogger sets the logger used for registration events.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces a named variant.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
	if r.logger != nil {
		r.logger.Info("registered ai provider", "variant", name)
	}
}

// Unregister removes a named variant.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// Get returns a variant by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Has reports whether a variant is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// List returns all registered variant names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Config describes which variants to instantiate.
type Config struct {
	ProviderAKey       string
	ProviderBKey       string
	ProviderAModel     string
	ProviderBModel     string
	LocalProviderURL   string
	LocalProviderModel string
	Timeout            time.Duration
	Catalog            *catalog.Catalog
}

// NewRegistryFromConfig builds a registry with every variant whose
// prerequisites are satisfied: mock is always present (it needs only the
// catalog), cloud-a/cloud-b need their API key, local-http needs a URL.
func NewRegistryFromConfig(cfg Config) *Registry {
	r := NewRegistry()
	r.applyConfig(cfg)
	return r
}

// Reload re-applies cfg, registering newly satisfied variants and
// dropping ones whose prerequisites disappeared.
func (r *Registry) Reload(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]Provider)
	r.applyConfigLocked(cfg)
}

func (r *Registry) applyConfig(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyConfigLocked(cfg)
}

func (r *Registry) applyConfigLocked(cfg Config) {
	if cfg.Catalog != nil {
		r.providers["mock"] = NewMock(cfg.Catalog)
	}
	if cfg.ProviderAKey != "" {
		r.providers["cloud-a"] = NewCloudA(cfg.ProviderAKey, cfg.ProviderAModel, cfg.Timeout)
	}
	if cfg.ProviderBKey != "" {
		r.providers["cloud-b"] = NewCloudB(cfg.ProviderBKey, cfg.ProviderBModel, cfg.Timeout)
	}
	if cfg.LocalProviderURL != "" {
		r.providers["local-http"] = NewLocalHTTP(cfg.LocalProviderURL, cfg.LocalProviderModel, cfg.Timeout)
	}
}
