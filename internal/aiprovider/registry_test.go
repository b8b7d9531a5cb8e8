package aiprovider

import (
	"testing"
	"time"

	"github.com/rpgvault/ingest/internal/catalog"
)

func TestRegistryFromConfigRegistersOnlySatisfiedVariants(t *testing.T) {
	r := NewRegistryFromConfig(Config{
		Catalog: catalog.New(),
		Timeout: 10 * time.Second,
	})
	if !r.Has("mock") {
		t.Fatal("expected mock to be registered when catalog is set")
	}
	if r.Has("cloud-a") || r.Has("cloud-b") || r.Has("local-http") {
		t.Fatal("expected no cloud/local variants without configured keys/URLs")
	}
}

func TestRegistryFromConfigRegistersCloudVariants(t *testing.T) {
	r := NewRegistryFromConfig(Config{
		Catalog:          catalog.New(),
		ProviderAKey:     "sk-test",
		ProviderBKey:     "sk-ant-test",
		LocalProviderURL: "http://localhost:11434",
		Timeout:          10 * time.Second,
	})
	for _, want := range []string{"mock", "cloud-a", "cloud-b", "local-http"} {
		if !r.Has(want) {
			t.Errorf("expected variant %q to be registered", want)
		}
	}
}

func TestRegistryGetUnknownReturnsErrNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestRegistryReloadDropsUnsatisfiedVariants(t *testing.T) {
	r := NewRegistryFromConfig(Config{Catalog: catalog.New(), ProviderAKey: "sk-test", Timeout: time.Second})
	if !r.Has("cloud-a") {
		t.Fatal("expected cloud-a registered initially")
	}
	r.Reload(Config{Catalog: catalog.New(), Timeout: time.Second})
	if r.Has("cloud-a") {
		t.Fatal("expected cloud-a dropped after reload without its key")
	}
}
