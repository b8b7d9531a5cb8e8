// Package aiprovider abstracts the AI backends behind a single
// capability: four variants (mock, cloud-a, cloud-b, local-http), three
// operations (identify, categorize, extract_characters). Variants are
// constructed by NewRegistryFromConfig and looked up through a Registry.
package aiprovider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rpgvault/ingest/internal/model"
)

// Pass selects which phase of the novel character pass is running.
type Pass string

const (
	PassDiscover Pass = "discover"
	PassEnhance  Pass = "enhance"
)

// Options are the per-call knobs shared by every operation.
type Options struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int
	Retries     int
	Cache       bool
}

// DefaultIdentifyOptions returns the default knobs for identification.
func DefaultIdentifyOptions() Options {
	return Options{Temperature: 0.1, MaxTokens: 4000, TimeoutMs: 30000, Retries: 3, Cache: true}
}

// DefaultCategorizeOptions returns the default knobs for categorization.
func DefaultCategorizeOptions() Options {
	return Options{Temperature: 0.0, MaxTokens: 4000, TimeoutMs: 30000, Retries: 3, Cache: true}
}

func (o Options) timeout() time.Duration {
	if o.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(o.TimeoutMs) * time.Millisecond
}

// CategorizeResult is categorize's output.
type CategorizeResult struct {
	Category   string
	Confidence float64
	Rationale  string
}

// Provider is the single AI capability. All variants must produce
// structurally identical outputs.
type Provider interface {
	// Name returns the variant identifier: "mock", "cloud-a", "cloud-b", "local-http".
	Name() string

	// Identify returns a verdict partial: every Verdict field except the
	// post-derivation ones (Derivation is always set by the caller).
	Identify(ctx context.Context, text string, contentKind model.ContentKind, opts Options) (model.Verdict, error)

	// Categorize assigns one of allowedCategories to a section of text.
	Categorize(ctx context.Context, sectionText string, allowedCategories []string, opts Options) (CategorizeResult, error)

	// ExtractCharacters runs one pass (discover or enhance) of the novel
	// character extraction over novelText, folding in prior results on
	// the enhance pass.
	ExtractCharacters(ctx context.Context, novelText string, pass Pass, prior *model.CharacterGraph, opts Options) (*model.CharacterGraph, error)
}

// contentHash is the cache key input: identical (operation, content-hash,
// options) tuples return the prior result when caching is on.
func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func cacheKey(op string, opts Options, parts ...string) string {
	all := append([]string{op, fmt.Sprintf("%v", opts)}, parts...)
	return contentHash(all...)
}
