package characters

import (
	"context"
	"strings"
	"testing"

	"github.com/rpgvault/ingest/internal/aiprovider"
	"github.com/rpgvault/ingest/internal/catalog"
	"github.com/rpgvault/ingest/internal/model"
)

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	chunks := Chunk("a short sentence", 3000, 300)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunkLongTextSplitsWithOverlap(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 2000)
	chunks := Chunk(text, 200, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long text, got %d", len(chunks))
	}
}

func TestChunkNonPositiveMaxTokensReturnsWhole(t *testing.T) {
	chunks := Chunk("anything", 0, 0)
	if len(chunks) != 1 || chunks[0] != "anything" {
		t.Fatalf("expected single unchanged chunk, got %v", chunks)
	}
}

func TestRunDiscoverThenEnhanceAcrossChunks(t *testing.T) {
	provider := aiprovider.NewMock(catalog.New())
	novel := strings.Repeat("The knight Elara drew her sword while Elara advanced, and Elara spoke. ", 5)
	g, err := Run(context.Background(), provider, novel, aiprovider.DefaultIdentifyOptions(), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, c := range g.Characters {
		if c.Name == "Elara" {
			found = true
			if len(c.Quotes) == 0 {
				t.Fatal("expected enhance pass to attach at least one quote")
			}
		}
	}
	if !found {
		t.Fatal("expected Elara to be discovered")
	}
}

func TestRunFiltersBelowMinMentions(t *testing.T) {
	provider := aiprovider.NewMock(catalog.New())
	novel := "Bob waved once. The end."
	opts := DefaultOptions()
	opts.MinMentions = 3
	g, err := Run(context.Background(), provider, novel, aiprovider.DefaultIdentifyOptions(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range g.Characters {
		if c.Name == "Bob" {
			t.Fatal("expected Bob to be filtered out for too few mentions")
		}
	}
}

func newGraph() *model.CharacterGraph {
	return &model.CharacterGraph{Relationships: map[string][]string{}}
}

func recordWithMentions(id, name string, mentions int) model.CharacterRecord {
	return model.CharacterRecord{ID: id, Name: name, PageMentions: mentions}
}

func TestMergeCombinesMentionCountsAndQuotes(t *testing.T) {
	dst := newGraph()
	src := newGraph()
	dst.Characters = append(dst.Characters, recordWithMentions("char_a", "A", 2))
	src.Characters = append(src.Characters, recordWithMentions("char_a", "A", 3))
	merge(dst, src)
	if len(dst.Characters) != 1 {
		t.Fatalf("expected merge to combine same-name characters, got %d", len(dst.Characters))
	}
	if dst.Characters[0].PageMentions != 5 {
		t.Fatalf("expected combined mention count 5, got %d", dst.Characters[0].PageMentions)
	}
}
