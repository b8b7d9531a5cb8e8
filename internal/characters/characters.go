// Package characters is the novel character pass: a two-pass
// (discover, enhance) extraction of named characters, their quotes, and
// their personality/behavior traits from novel text, chunked into
// overlapping windows so no single AI call exceeds its token budget.
// Windows are measured with tiktoken-go's cl100k_base encoding.
package characters

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/rpgvault/ingest/internal/aiprovider"
	"github.com/rpgvault/ingest/internal/model"
)

// defaultChunkTokens and defaultOverlapTokens bound each chunk sent to the
// AI provider and the overlap between consecutive chunks, so a character
// introduced near a chunk boundary isn't lost to either pass.
const (
	defaultChunkTokens   = 3000
	defaultOverlapTokens = 300

	// defaultMinMentions filters out characters mentioned too rarely to be
	// worth surfacing (likely a passing reference, not a real character).
	defaultMinMentions = 2
)

// Options configures a character pass run, independent of the AI
// provider's own per-call Options (temperature/retries/etc).
type Options struct {
	ChunkTokens   int
	OverlapTokens int
	MinMentions   int
}

// DefaultOptions returns the default chunking and filtering knobs.
func DefaultOptions() Options {
	return Options{ChunkTokens: defaultChunkTokens, OverlapTokens: defaultOverlapTokens, MinMentions: defaultMinMentions}
}

// Chunk splits text into overlapping windows of at most maxTokens tokens
// (cl100k_base), each overlapping the previous by overlapTokens tokens. A
// non-positive maxTokens returns the whole text as a single chunk.
func Chunk(text string, maxTokens, overlapTokens int) []string {
	if maxTokens <= 0 {
		return []string{text}
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return []string{text}
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return []string{text}
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		overlapTokens = 0
	}

	var chunks []string
	stride := maxTokens - overlapTokens
	for start := 0; start < len(tokens); start += stride {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, enc.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// Run executes the full two-pass protocol over novelText: chunk, discover
// across every chunk (merging by character name), then enhance across
// every chunk against the merged discovery result, and finally filter out
// characters below MinMentions.
func Run(ctx context.Context, provider aiprovider.Provider, novelText string, passOpts aiprovider.Options, opts Options) (*model.CharacterGraph, error) {
	if opts.ChunkTokens <= 0 {
		opts = DefaultOptions()
	}
	chunks := Chunk(novelText, opts.ChunkTokens, opts.OverlapTokens)

	discovered := &model.CharacterGraph{Relationships: map[string][]string{}}
	for i, chunk := range chunks {
		g, err := provider.ExtractCharacters(ctx, chunk, aiprovider.PassDiscover, nil, passOpts)
		if err != nil {
			return nil, fmt.Errorf("characters: discover pass chunk %d: %w", i, err)
		}
		merge(discovered, g)
	}

	enhanced := &model.CharacterGraph{Relationships: map[string][]string{}}
	for i, chunk := range chunks {
		g, err := provider.ExtractCharacters(ctx, chunk, aiprovider.PassEnhance, discovered, passOpts)
		if err != nil {
			return nil, fmt.Errorf("characters: enhance pass chunk %d: %w", i, err)
		}
		merge(enhanced, g)
	}

	filterByMinMentions(enhanced, opts.MinMentions)
	return enhanced, nil
}

// merge folds src into dst, combining characters by name: mention counts
// add, quotes and traits append with de-duplication, and relationship
// edges union.
func merge(dst, src *model.CharacterGraph) {
	if src == nil {
		return
	}
	byName := make(map[string]int, len(dst.Characters))
	for i, c := range dst.Characters {
		byName[strings.ToLower(c.Name)] = i
	}

	for _, c := range src.Characters {
		key := strings.ToLower(c.Name)
		if idx, ok := byName[key]; ok {
			existing := &dst.Characters[idx]
			existing.PageMentions += c.PageMentions
			seenQuotes := make(map[model.CharacterQuote]struct{}, len(existing.Quotes))
			for _, q := range existing.Quotes {
				seenQuotes[q] = struct{}{}
			}
			for _, q := range c.Quotes {
				if _, dup := seenQuotes[q]; !dup {
					seenQuotes[q] = struct{}{}
					existing.Quotes = append(existing.Quotes, q)
				}
			}
			existing.Personality = dedupAppend(existing.Personality, c.Personality)
			existing.Behavior = dedupAppend(existing.Behavior, c.Behavior)
			continue
		}
		dst.Characters = append(dst.Characters, c)
		byName[key] = len(dst.Characters) - 1
	}

	if dst.Relationships == nil {
		dst.Relationships = map[string][]string{}
	}
	for id, edges := range src.Relationships {
		dst.Relationships[id] = dedupAppend(dst.Relationships[id], edges)
	}
}

func dedupAppend(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			existing = append(existing, v)
		}
	}
	return existing
}

// filterByMinMentions drops characters whose total mention count across
// all chunks falls below min, and prunes dangling relationship edges.
func filterByMinMentions(g *model.CharacterGraph, min int) {
	if min <= 0 {
		return
	}
	kept := g.Characters[:0]
	droppedIDs := map[string]bool{}
	for _, c := range g.Characters {
		if c.PageMentions >= min {
			kept = append(kept, c)
		} else {
			droppedIDs[c.ID] = true
		}
	}
	g.Characters = kept

	for id := range g.Relationships {
		if droppedIDs[id] {
			delete(g.Relationships, id)
			continue
		}
		var edges []string
		for _, e := range g.Relationships[id] {
			if !droppedIDs[e] {
				edges = append(edges, e)
			}
		}
		g.Relationships[id] = edges
	}
}
