// Package addresser builds hierarchical collection/folder paths from a
// classification verdict. Everything here is pure string handling.
package addresser

import (
	"strings"

	"github.com/rpgvault/ingest/internal/model"
)

// Sanitize lowercases a segment, rewrites '&' to "and", whitespace to
// '_', and strips anything else outside [a-z0-9_].
func Sanitize(segment string) string {
	s := strings.ToLower(segment)
	s = strings.ReplaceAll(s, "&", "and")

	var b strings.Builder
	lastWasUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasUnderscore = false
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastWasUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastWasUnderscore = true
			}
		case r == '_':
			if !lastWasUnderscore {
				b.WriteRune('_')
				lastWasUnderscore = true
			}
		default:
			// stripped
		}
	}
	return strings.Trim(b.String(), "_")
}

// Address derives the collection name (and, for single-with-folder, the
// folder path) for a verdict under the given layout. Pure and
// deterministic: two calls with the same inputs always agree, and
// applying it to its own output is a no-op.
//
// The collection leaf is the book's own sanitized game_edition_book name
// (e.g. "dnd_1st_phb"): games, editions, and books are already
// kind-specific, so kind need not repeat in the leaf. Separate layout
// uses that leaf as the collection name directly; single-with-folder
// uses the fixed collection "rpger" plus a kind/game/edition/book/<leaf>
// folder path.
func Address(v model.Verdict, layout model.CollectionLayout) model.CollectionAddress {
	kind := Sanitize(string(v.Kind))
	game := Sanitize(v.Game)
	edition := Sanitize(v.Edition)
	book := Sanitize(v.Book)
	leaf := Sanitize(strings.Join([]string{game, edition, book}, "_"))

	switch layout {
	case model.LayoutSingleWithFolder:
		return model.CollectionAddress{
			Layout:     model.LayoutSingleWithFolder,
			Collection: "rpger",
			FolderPath: strings.Join([]string{kind, game, edition, book, leaf}, "/"),
		}
	default: // LayoutSeparate
		return model.CollectionAddress{
			Layout:     model.LayoutSeparate,
			Collection: leaf,
			FolderPath: "",
		}
	}
}
