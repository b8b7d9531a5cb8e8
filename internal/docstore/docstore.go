package docstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

// Document is one persisted record, independent of whether it came from
// a whole-artifact or per-section insert.
type Document struct {
	DocID        string
	Collection   string
	FolderPath   string
	Game         string
	Edition      string
	Book         string
	Kind         string
	ISBN         string
	ImportDate   time.Time
	Page         int
	Ordinal      int
	Category     string
	Text         string
	IsWhole      bool
	SourceDigest string
}

// Page is one page of a paged read.
type Page struct {
	Docs  []Document
	Total int
}

// Store exposes the typed document-store operations over a Client.
type Store struct {
	client *Client

	mu          sync.Mutex
	schemaReady bool
	collections map[string]struct{}
}

// New builds a Store over a DefraDB-compatible GraphQL endpoint.
func New(url string) *Store {
	return &Store{client: NewClient(url), collections: map[string]struct{}{}}
}

// Health reports document-store reachability for the Session API's
// health() verb.
func (s *Store) Health(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

// EnsureCollection registers name as a known logical collection, and
// installs the backing GraphQL schema on first use (the schema is
// installed once, globally; see the package doc).
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.schemaReady {
		if err := s.client.AddSchema(ctx, ingestDocumentSchema); err != nil {
			if ingesterr.KindOf(err) != ingesterr.KindStoreConflict {
				return err
			}
			// Conflict here means the schema was already installed by an
			// earlier session; that's the steady-state case.
		}
		s.schemaReady = true
	}
	s.collections[name] = struct{}{}
	return nil
}

// ListCollections returns every collection name this adapter has ensured.
func (s *Store) ListCollections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names
}

// InsertWhole inserts a single document representing the whole
// artifact, carrying the folder/game metadata.
func (s *Store) InsertWhole(ctx context.Context, collection string, artifact model.Artifact, folderPath, sourceDigest string) (string, error) {
	input := map[string]any{
		"collection":   collection,
		"folderPath":   folderPath,
		"game":         artifact.Verdict.Game,
		"edition":      artifact.Verdict.Edition,
		"book":         artifact.Verdict.Book,
		"kind":         string(artifact.Verdict.Kind),
		"isbn":         preferISBN(artifact.Verdict),
		"importDate":   artifact.IngestedAt.Format(time.RFC3339),
		"isWhole":      true,
		"sourceDigest": sourceDigest,
		"text":         joinSectionText(artifact.Sections),
	}
	id, err := s.client.Create(ctx, "IngestDocument", input)
	if err != nil {
		return "", err
	}
	return id, nil
}

// InsertSplit inserts one document per section, all sharing the
// verdict's metadata.
func (s *Store) InsertSplit(ctx context.Context, collection string, verdict model.Verdict, sections []model.Section, folderPath, sourceDigest string) ([]string, error) {
	ids := make([]string, 0, len(sections))
	for _, sec := range sections {
		input := map[string]any{
			"collection":   collection,
			"folderPath":   folderPath,
			"game":         verdict.Game,
			"edition":      verdict.Edition,
			"book":         verdict.Book,
			"kind":         string(verdict.Kind),
			"isbn":         preferISBN(verdict),
			"importDate":   time.Now().UTC().Format(time.RFC3339),
			"page":         sec.Page,
			"ordinal":      sec.Ordinal,
			"category":     sec.Category,
			"text":         sec.EnhancedText,
			"isWhole":      false,
			"sourceDigest": sourceDigest,
		}
		id, err := s.client.Create(ctx, "IngestDocument", input)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var documentFields = []string{
	"_docID", "collection", "folderPath", "game", "edition", "book", "kind",
	"isbn", "importDate", "page", "ordinal", "category", "text", "isWhole", "sourceDigest",
}

// ReadPage reads up to limit documents of collection starting at
// offset. An optional category filter narrows the read.
func (s *Store) ReadPage(ctx context.Context, collection string, offset, limit int, categoryFilter string) (Page, error) {
	q := NewQuery("IngestDocument").Filter("collection", collection).Fields(documentFields...).Offset(offset).Limit(limit)
	if categoryFilter != "" {
		q = q.Filter("category", categoryFilter)
	}
	resp, err := q.Execute(ctx, s.client)
	if err != nil {
		return Page{}, err
	}
	if msg := resp.Error(); msg != "" {
		return Page{}, ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.page", msg, nil)
	}
	docs := decodeDocuments(resp)

	total, err := s.countCollection(ctx, collection, categoryFilter)
	if err != nil {
		return Page{}, err
	}
	return Page{Docs: docs, Total: total}, nil
}

func (s *Store) countCollection(ctx context.Context, collection, categoryFilter string) (int, error) {
	q := NewQuery("IngestDocument").Filter("collection", collection).Fields("_docID")
	if categoryFilter != "" {
		q = q.Filter("category", categoryFilter)
	}
	resp, err := q.Execute(ctx, s.client)
	if err != nil {
		return 0, err
	}
	docs, _ := resp.Data["IngestDocument"].([]any)
	return len(docs), nil
}

// SearchText performs a case-insensitive substring search over text
// within collection.
// DefraDB's filter language has no native substring operator exposed
// here, so this fetches the collection and filters client-side, fine
// for the ingest-time read volumes this adapter targets; a production
// deployment would push this down to DefraDB's full-text index.
func (s *Store) SearchText(ctx context.Context, collection, query string, limit int) ([]Document, error) {
	q := NewQuery("IngestDocument").Filter("collection", collection).Fields(documentFields...)
	resp, err := q.Execute(ctx, s.client)
	if err != nil {
		return nil, err
	}
	if msg := resp.Error(); msg != "" {
		return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "docstore.search_text", msg, nil)
	}

	lowerQuery := strings.ToLower(query)
	var matches []Document
	for _, doc := range decodeDocuments(resp) {
		if strings.Contains(strings.ToLower(doc.Text), lowerQuery) {
			matches = append(matches, doc)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

func decodeDocuments(resp *GQLResponse) []Document {
	raw, _ := resp.Data["IngestDocument"].([]any)
	docs := make([]Document, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		docs = append(docs, Document{
			DocID:        str(m["_docID"]),
			Collection:   str(m["collection"]),
			FolderPath:   str(m["folderPath"]),
			Game:         str(m["game"]),
			Edition:      str(m["edition"]),
			Book:         str(m["book"]),
			Kind:         str(m["kind"]),
			ISBN:         str(m["isbn"]),
			ImportDate:   parseTime(str(m["importDate"])),
			Page:         intOf(m["page"]),
			Ordinal:      intOf(m["ordinal"]),
			Category:     str(m["category"]),
			Text:         str(m["text"]),
			IsWhole:      boolOf(m["isWhole"]),
			SourceDigest: str(m["sourceDigest"]),
		})
	}
	return docs
}

func preferISBN(v model.Verdict) string {
	if v.ISBN13 != "" {
		return v.ISBN13
	}
	return v.ISBN10
}

func joinSectionText(sections []model.Section) string {
	var b strings.Builder
	for _, s := range sections {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.EnhancedText)
	}
	return b.String()
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
