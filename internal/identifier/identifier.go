// Package identifier resolves a document's game, edition, book, and
// ISBN from an opened PDF handle: synonym scan first, then AI identify
// with a keyword-vote fallback, then ISBN scan, then manual override.
package identifier

import (
	"context"
	"errors"

	"github.com/rpgvault/ingest/internal/aiprovider"
	"github.com/rpgvault/ingest/internal/catalog"
	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/isbn"
	"github.com/rpgvault/ingest/internal/model"
	"github.com/rpgvault/ingest/internal/pdfdoc"
)

// firstNPages and identifyCharCeiling bound the text scanned for title/keyword
// detection.
const (
	firstNPages         = 15
	identifyCharCeiling = 5000
	edgePageCount       = 3

	// synonymConfidence is assigned when an explicit title synonym
	// matches.
	synonymConfidence = 0.95

	// keywordFallbackCap bounds confidence when falling back to a pure
	// keyword vote after AI identification is exhausted.
	keywordFallbackCap = 0.6
)

// ManualOverride carries user-supplied fields that replace the matching
// fields of the resolved verdict; fields left empty keep their resolved
// values.
type ManualOverride struct {
	Game      string
	Edition   string
	Book      string
	BookTitle string
	Publisher string
}

// Identify runs the 5-step identification protocol against an opened PDF
// handle. provider may be nil, in which case step 3's AI call is skipped
// and the protocol falls straight to the keyword vote.
func Identify(ctx context.Context, h *pdfdoc.Handle, contentKind model.ContentKind, cat *catalog.Catalog, provider aiprovider.Provider, opts aiprovider.Options, override *ManualOverride) (model.Verdict, error) {
	text, _, err := h.FirstNPagesText(firstNPages, identifyCharCeiling)
	if err != nil {
		return model.Verdict{}, err
	}

	v, err := identifyFromText(ctx, text, contentKind, cat, provider, opts)
	if err != nil {
		return model.Verdict{}, err
	}

	v = attachISBN(v, h)

	if override != nil {
		v = applyOverride(v, *override)
	}

	return v, nil
}

// identifyFromText runs steps 2-3 of the protocol (synonym scan, then AI
// identify with keyword-vote fallback) without touching the PDF handle, so
// it can be tested against plain strings.
func identifyFromText(ctx context.Context, text string, contentKind model.ContentKind, cat *catalog.Catalog, provider aiprovider.Provider, opts aiprovider.Options) (model.Verdict, error) {
	if game, edition, book, ok := cat.MatchSynonym(text); ok {
		return model.Verdict{
			Kind:       contentKind,
			Game:       game,
			Edition:    edition,
			Book:       book,
			BookTitle:  book,
			Confidence: synonymConfidence,
			Derivation: model.DerivationExplicitTitle,
		}, nil
	}

	if provider != nil {
		v, err := provider.Identify(ctx, text, contentKind, opts)
		if err == nil {
			v.Kind = contentKind
			v.Derivation = model.DerivationAIInference
			return v, nil
		}
		if !isFallbackEligible(err) {
			return model.Verdict{}, err
		}
	}

	return keywordFallback(text, contentKind, cat)
}

// isFallbackEligible reports whether the AI error is one the protocol
// tolerates by dropping to the keyword vote (malformed output or provider
// exhaustion), versus one that must propagate (e.g. a cancelled context).
func isFallbackEligible(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch ingesterr.KindOf(err) {
	case ingesterr.KindCancelled, ingesterr.KindDeadlineExceeded:
		return false
	case ingesterr.KindAIMalformed, ingesterr.KindAIUnreachable, ingesterr.KindAITimeout, ingesterr.KindProviderUnauthorized:
		return true
	default:
		// An untagged error (e.g. from a bare Provider implementation) is
		// treated the same as AI exhaustion: fall back rather than fail
		// identification outright.
		return ingesterr.KindOf(err) == ""
	}
}

func keywordFallback(text string, contentKind model.ContentKind, cat *catalog.Catalog) (model.Verdict, error) {
	game, density := cat.BestKeywordMatch(text)
	if game == "" {
		return model.Verdict{}, ingesterr.New(ingesterr.KindAIMalformed, "identifier", "no synonym match, no AI verdict, and no keyword signal", nil)
	}

	confidence := density
	if confidence > keywordFallbackCap {
		confidence = keywordFallbackCap
	}

	editions, _ := cat.Editions(game)
	var edition string
	if len(editions) > 0 {
		edition = editions[0]
	}

	return model.Verdict{
		Kind:       contentKind,
		Game:       game,
		Edition:    edition,
		Confidence: confidence,
		Derivation: model.DerivationFallbackKeyword,
	}, nil
}

// attachISBN scans the first and last edgePageCount pages for an ISBN
// and attaches canonical forms to v. ISBN scanning never
// fails identification: a missing or unreadable edge page is skipped.
func attachISBN(v model.Verdict, h *pdfdoc.Handle) model.Verdict {
	pages := edgePages(h.PageCount(), edgePageCount)

	var i10, i13 string
	for _, page := range pages {
		text, _, _, err := h.PageText(page)
		if err != nil {
			continue
		}
		if found10, found13 := isbn.Scan(text); found10 != "" || found13 != "" {
			if i10 == "" {
				i10 = found10
			}
			if i13 == "" {
				i13 = found13
			}
		}
		if i10 != "" && i13 != "" {
			break
		}
	}

	v.ISBN10 = i10
	v.ISBN13 = i13
	return v
}

// edgePages returns the first n and last n page numbers (1-indexed,
// deduplicated, in order) of a document with total pages.
func edgePages(total, n int) []int {
	if total <= 0 {
		return nil
	}
	if n > total {
		n = total
	}
	seen := make(map[int]bool, 2*n)
	var pages []int
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	for p := 1; p <= n; p++ {
		add(p)
	}
	for p := total - n + 1; p <= total; p++ {
		add(p)
	}
	return pages
}

// applyOverride replaces each field the manual override sets, leaving
// empty override fields untouched (derivation manual_override,
// confidence 1.0).
func applyOverride(v model.Verdict, o ManualOverride) model.Verdict {
	if o.Game != "" {
		v.Game = o.Game
	}
	if o.Edition != "" {
		v.Edition = o.Edition
	}
	if o.Book != "" {
		v.Book = o.Book
	}
	if o.BookTitle != "" {
		v.BookTitle = o.BookTitle
	}
	if o.Publisher != "" {
		v.Publisher = o.Publisher
	}
	v.Derivation = model.DerivationManualOverride
	v.Confidence = 1.0
	return v
}
