package aiprovider

import (
	"context"
	"reflect"
	"testing"

	"github.com/rpgvault/ingest/internal/catalog"
	"github.com/rpgvault/ingest/internal/model"
)

func TestMockIdentifyExplicitTitle(t *testing.T) {
	m := NewMock(catalog.New())
	v, err := m.Identify(context.Background(), "This is the Player's Handbook, chapter one.", model.KindSourceMaterial, DefaultIdentifyOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Game != "dnd" || v.Edition != "1st" || v.Book != "PHB" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
	if v.Confidence < 0.9 {
		t.Fatalf("expected high confidence for explicit title match, got %f", v.Confidence)
	}
}

func TestMockIdentifyKeywordFallback(t *testing.T) {
	m := NewMock(catalog.New())
	text := "Roll a saving throw against the dungeon master's spell slot for armor class."
	v, err := m.Identify(context.Background(), text, model.KindSourceMaterial, DefaultIdentifyOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Game != "dnd" {
		t.Fatalf("expected dnd keyword match, got %+v", v)
	}
	if v.Confidence <= 0 || v.Confidence > 1 {
		t.Fatalf("expected confidence in (0,1], got %f", v.Confidence)
	}
}

func TestMockIdentifyNoMatch(t *testing.T) {
	m := NewMock(catalog.New())
	_, err := m.Identify(context.Background(), "completely unrelated text about gardening", model.KindSourceMaterial, DefaultIdentifyOptions())
	if err == nil {
		t.Fatal("expected error when no game matches")
	}
}

func TestMockIdentifyCachesByContentHash(t *testing.T) {
	m := NewMock(catalog.New())
	opts := DefaultIdentifyOptions()
	text := "The Player's Handbook begins here."
	v1, _ := m.Identify(context.Background(), text, model.KindSourceMaterial, opts)
	v2, _ := m.Identify(context.Background(), text, model.KindSourceMaterial, opts)
	if !reflect.DeepEqual(v1, v2) {
		t.Fatalf("expected cached identical verdict, got %+v vs %+v", v1, v2)
	}
}

func TestMockCategorize(t *testing.T) {
	m := NewMock(catalog.New())
	cats := []string{"Combat", "Magic", "Uncategorized"}
	r, err := m.Categorize(context.Background(), "The Combat rules cover initiative and attacks.", cats, DefaultCategorizeOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Category != "Combat" {
		t.Fatalf("expected Combat category, got %q", r.Category)
	}
}

func TestMockCategorizeNoAllowedCategories(t *testing.T) {
	m := NewMock(catalog.New())
	_, err := m.Categorize(context.Background(), "text", nil, DefaultCategorizeOptions())
	if err == nil {
		t.Fatal("expected error for empty allowed categories")
	}
}

func TestMockExtractCharactersDiscoverThenEnhance(t *testing.T) {
	m := NewMock(catalog.New())
	novel := "The knight Elara drew her sword while Elara advanced, and Elara spoke to the crowd."
	discovered, err := m.ExtractCharacters(context.Background(), novel, PassDiscover, nil, DefaultIdentifyOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(discovered.Characters) == 0 {
		t.Fatal("expected at least one discovered character")
	}

	enhanced, err := m.ExtractCharacters(context.Background(), novel, PassEnhance, discovered, DefaultIdentifyOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enhanced.Characters) != len(discovered.Characters) {
		t.Fatalf("enhance pass should not change character count, got %d vs %d", len(enhanced.Characters), len(discovered.Characters))
	}
}
