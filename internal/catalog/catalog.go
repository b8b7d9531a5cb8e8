// Package catalog is the static, read-only registry of supported game
// systems, editions, book codes, detection keywords, and category
// taxonomies. The tables are pure static data built once at init and
// read-only afterwards, so concurrent reads need no locking.
package catalog

import (
	"sort"
	"strings"

	"github.com/rpgvault/ingest/internal/ingesterr"
)

// Keyword is a detection keyword with a relative weight.
type Keyword struct {
	Term   string
	Weight float64
}

// Game describes one supported game system.
type Game struct {
	ID       string
	Editions []string
	// Books maps edition -> ordered list of book codes.
	Books map[string][]string
	// Keywords are detection keywords shared across the game's editions.
	Keywords []Keyword
	// SourceCategories is the ordered category taxonomy for source_material.
	SourceCategories []string
	// NovelCategories is the ordered category taxonomy for novel content.
	NovelCategories []string
}

// synonym maps a normalized title fragment to a (game, edition, book) triple.
type synonym struct {
	Game, Edition, Book string
}

// Catalog is the thread-safe read-only registry. All reads are safe for
// concurrent use since the underlying maps are never mutated after New().
type Catalog struct {
	games     map[string]Game
	synonyms  map[string]synonym
}

var defaultSourceCategories = []string{
	"Combat", "Magic", "Character", "Tables", "Rules", "Uncategorized",
}

var defaultNovelCategories = []string{
	"Chapter/Section", "Dialogue", "Description", "Action", "Internal Monologue", "Narrative", "Uncategorized",
}

// New builds the default catalog. The game list here is illustrative of
// the supported-system taxonomy; it is not meant to be exhaustive of every
// published TTRPG, and new games are added by extending this table.
func New() *Catalog {
	games := map[string]Game{
		"dnd": {
			ID:       "dnd",
			Editions: []string{"1st", "2nd", "3rd", "3.5", "4th", "5th"},
			Books: map[string][]string{
				"1st": {"PHB", "DMG", "MM"},
				"2nd": {"PHB", "DMG", "MM"},
				"3rd": {"PHB", "DMG", "MM"},
				"3.5": {"PHB", "DMG", "MM"},
				"4th": {"PHB", "DMG", "MM"},
				"5th": {"PHB", "DMG", "MM"},
			},
			Keywords: []Keyword{
				{"armor class", 1.0}, {"hit points", 0.8}, {"spell slot", 1.0},
				{"dungeon master", 1.2}, {"saving throw", 1.0}, {"character class", 0.6},
			},
			SourceCategories: defaultSourceCategories,
			NovelCategories:  defaultNovelCategories,
		},
		"pathfinder-like": {
			ID:       "pathfinder-like",
			Editions: []string{"1st", "2nd"},
			Books: map[string][]string{
				"1st": {"Core Rulebook", "Bestiary", "GM Guide"},
				"2nd": {"Core Rulebook", "Bestiary", "GM Guide"},
			},
			Keywords: []Keyword{
				{"game master", 1.0}, {"action economy", 1.2}, {"ancestry", 0.8},
				{"proficiency rank", 1.1}, {"hero point", 1.0},
			},
			SourceCategories: defaultSourceCategories,
			NovelCategories:  defaultNovelCategories,
		},
		"call-of-cthulhu-like": {
			ID:       "call-of-cthulhu-like",
			Editions: []string{"7th"},
			Books: map[string][]string{
				"7th": {"Keeper Rulebook", "Investigator Handbook"},
			},
			Keywords: []Keyword{
				{"sanity", 1.2}, {"keeper", 1.0}, {"mythos", 1.1}, {"investigator", 0.9},
			},
			SourceCategories: defaultSourceCategories,
			NovelCategories:  defaultNovelCategories,
		},
	}

	synonyms := map[string]synonym{
		"player's handbook":      {"dnd", "1st", "PHB"},
		"players handbook":       {"dnd", "1st", "PHB"},
		"dungeon master's guide": {"dnd", "1st", "DMG"},
		"dungeon masters guide":  {"dnd", "1st", "DMG"},
		"monster manual":         {"dnd", "1st", "MM"},
		"core rulebook":          {"pathfinder-like", "1st", "Core Rulebook"},
		"keeper rulebook":        {"call-of-cthulhu-like", "7th", "Keeper Rulebook"},
	}

	return &Catalog{games: games, synonyms: synonyms}
}

// Games returns all game ids in a stable, sorted order.
func (c *Catalog) Games() []string {
	ids := make([]string, 0, len(c.games))
	for id := range c.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Editions returns the known editions for a game.
func (c *Catalog) Editions(gameID string) ([]string, error) {
	g, ok := c.games[gameID]
	if !ok {
		return nil, ingesterr.New(ingesterr.KindCatalogMissing, "catalog", "unknown game "+gameID, nil)
	}
	return g.Editions, nil
}

// Books returns the known book codes for a (game, edition) pair.
func (c *Catalog) Books(gameID, edition string) ([]string, error) {
	g, ok := c.games[gameID]
	if !ok {
		return nil, ingesterr.New(ingesterr.KindCatalogMissing, "catalog", "unknown game "+gameID, nil)
	}
	books, ok := g.Books[edition]
	if !ok {
		return nil, ingesterr.New(ingesterr.KindCatalogMissing, "catalog", "unknown edition "+edition+" for game "+gameID, nil)
	}
	return books, nil
}

// Categories returns the ordered category taxonomy for a game and content kind.
func (c *Catalog) Categories(gameID string, novel bool) []string {
	g, ok := c.games[gameID]
	if !ok {
		if novel {
			return defaultNovelCategories
		}
		return defaultSourceCategories
	}
	if novel {
		return g.NovelCategories
	}
	return g.SourceCategories
}

// KeywordHits scans text (already lowercased by the caller is not
// required; KeywordHits lowercases internally) for each game's keywords
// and returns a per-game weighted hit density in [0,1], used by both the
// mock AI provider and the identifier's keyword-fallback vote.
func (c *Catalog) KeywordHits(text string) map[string]float64 {
	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(c.games))
	for id, g := range c.games {
		var hit, total float64
		for _, kw := range g.Keywords {
			total += kw.Weight
			if strings.Contains(lower, kw.Term) {
				hit += kw.Weight
			}
		}
		if total > 0 {
			scores[id] = hit / total
		}
	}
	return scores
}

// BestKeywordMatch returns the game id with the highest keyword hit
// density, or "" if no game scored above zero.
func (c *Catalog) BestKeywordMatch(text string) (gameID string, density float64) {
	scores := c.KeywordHits(text)
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids) // stable tie-break
	for _, id := range ids {
		if scores[id] > density {
			density = scores[id]
			gameID = id
		}
	}
	return gameID, density
}

// MatchSynonym looks up a normalized (case-folded, whitespace-collapsed)
// title fragment against the book-title synonym table. Fragments are
// tried longest first (ties alphabetically), so the result is the same
// on every call.
func (c *Catalog) MatchSynonym(text string) (game, edition, book string, ok bool) {
	norm := normalizeTitle(text)
	fragments := make([]string, 0, len(c.synonyms))
	for fragment := range c.synonyms {
		fragments = append(fragments, fragment)
	}
	sort.Slice(fragments, func(i, j int) bool {
		if len(fragments[i]) != len(fragments[j]) {
			return len(fragments[i]) > len(fragments[j])
		}
		return fragments[i] < fragments[j]
	})
	for _, fragment := range fragments {
		if strings.Contains(norm, fragment) {
			syn := c.synonyms[fragment]
			return syn.Game, syn.Edition, syn.Book, true
		}
	}
	return "", "", "", false
}

// ProtectedTerms returns every book code, game id, and edition label
// known to the catalog: the game-specific jargon the text enhancer must
// never "correct" away.
func (c *Catalog) ProtectedTerms() []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		terms = append(terms, s)
	}
	for id, g := range c.games {
		add(id)
		for _, ed := range g.Editions {
			add(ed)
		}
		for _, books := range g.Books {
			for _, b := range books {
				add(b)
			}
		}
		for _, kw := range g.Keywords {
			add(kw.Term)
		}
	}
	sort.Strings(terms)
	return terms
}

// normalizeTitle case-folds and collapses whitespace for synonym matching.
func normalizeTitle(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}
