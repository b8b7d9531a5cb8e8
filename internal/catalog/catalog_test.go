package catalog

import (
	"testing"

	"github.com/rpgvault/ingest/internal/ingesterr"
)

func TestEditionsUnknownGame(t *testing.T) {
	c := New()
	if _, err := c.Editions("not-a-game"); ingesterr.KindOf(err) != ingesterr.KindCatalogMissing {
		t.Fatalf("expected catalog_missing, got %v", err)
	}
}

func TestBooksUnknownEdition(t *testing.T) {
	c := New()
	if _, err := c.Books("dnd", "99th"); ingesterr.KindOf(err) != ingesterr.KindCatalogMissing {
		t.Fatalf("expected catalog_missing, got %v", err)
	}
}

func TestBooksKnownEdition(t *testing.T) {
	c := New()
	books, err := c.Books("dnd", "1st")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, b := range books {
		if b == "PHB" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected PHB in books for dnd 1st, got %v", books)
	}
}

func TestMatchSynonymPlayersHandbook(t *testing.T) {
	c := New()
	game, edition, book, ok := c.MatchSynonym("The Player's Handbook")
	if !ok {
		t.Fatal("expected synonym match")
	}
	if game != "dnd" || edition != "1st" || book != "PHB" {
		t.Fatalf("got game=%q edition=%q book=%q", game, edition, book)
	}
}

func TestMatchSynonymNoMatch(t *testing.T) {
	c := New()
	if _, _, _, ok := c.MatchSynonym("a totally unrelated title"); ok {
		t.Fatal("expected no synonym match")
	}
}

func TestBestKeywordMatch(t *testing.T) {
	c := New()
	text := "Roll a saving throw against the dungeon master's spell slot rules for armor class and hit points."
	game, density := c.BestKeywordMatch(text)
	if game != "dnd" {
		t.Fatalf("expected dnd, got %q (density %f)", game, density)
	}
	if density <= 0 {
		t.Fatalf("expected positive density, got %f", density)
	}
}

func TestBestKeywordMatchNoHits(t *testing.T) {
	c := New()
	game, density := c.BestKeywordMatch("nothing relevant here at all")
	if game != "" || density != 0 {
		t.Fatalf("expected no match, got game=%q density=%f", game, density)
	}
}

func TestCategoriesSourceVsNovel(t *testing.T) {
	c := New()
	source := c.Categories("dnd", false)
	novel := c.Categories("dnd", true)
	if len(source) == 0 || len(novel) == 0 {
		t.Fatal("expected non-empty category lists")
	}
	if source[0] == novel[0] {
		t.Fatal("expected distinct source vs novel taxonomies")
	}
}

func TestGamesSortedStable(t *testing.T) {
	c := New()
	ids := c.Games()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("expected sorted game ids, got %v", ids)
		}
	}
}

func TestProtectedTermsIncludesGameEditionAndBook(t *testing.T) {
	c := New()
	terms := c.ProtectedTerms()

	want := map[string]bool{"dnd": false, "1st": false, "PHB": false}
	for _, term := range terms {
		if _, ok := want[term]; ok {
			want[term] = true
		}
	}
	for term, found := range want {
		if !found {
			t.Errorf("expected ProtectedTerms() to include %q, got %v", term, terms)
		}
	}
}

func TestProtectedTermsNoDuplicatesAndSorted(t *testing.T) {
	c := New()
	terms := c.ProtectedTerms()

	seen := make(map[string]bool)
	for i, term := range terms {
		if seen[term] {
			t.Fatalf("duplicate protected term %q", term)
		}
		seen[term] = true
		if i > 0 && terms[i-1] >= term {
			t.Fatalf("expected sorted protected terms, got %v", terms)
		}
	}
}
