// Package vectorstore provides typed collection/upsert/list/sample/
// count operations over Qdrant. Sections are embedded with a
// deterministic hash-projected vector rather than a model-generated
// embedding: enough to exercise upsert/sample/count/list against a real
// Qdrant collection without coupling ingest to an embedding provider.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/rpgvault/ingest/internal/ingesterr"
)

// vectorDim is the fixed dimensionality of the hash-projected embedding;
// every collection created here uses the same dimension.
const vectorDim = 128

// Section is one upsertable unit.
type Section struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Document is a retrieved record, returned by Sample.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Store wraps a Qdrant client with the typed operations the pipeline needs.
type Store struct {
	client *qdrant.Client
}

// Config configures how to reach Qdrant.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// New dials a Qdrant client.
func New(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "vectorstore.new", cfg.Host, err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.client.Close() }

// EnsureCollection creates name if it doesn't already exist. Returns
// true if it already existed.
func (s *Store) EnsureCollection(ctx context.Context, name string) (alreadyExisted bool, err error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, ingesterr.New(ingesterr.KindStoreUnreachable, "vectorstore.ensure_collection", name, err)
	}
	if exists {
		return true, nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorDim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return false, ingesterr.New(ingesterr.KindStoreConflict, "vectorstore.ensure_collection", name, err)
	}
	return false, nil
}

// maxPayloadBytes approximates a provider size limit; real Qdrant
// deployments configure this per-instance,
// so this is a conservative default the orchestrator's retry-with-
// truncation policy can work against.
const maxPayloadBytes = 1 << 20 // 1 MiB

// UpsertSections upserts a batch of sections, idempotent by id. A
// section whose text exceeds maxPayloadBytes fails with
// store_oversize so the orchestrator can retry with truncated text.
func (s *Store) UpsertSections(ctx context.Context, collection string, sections []Section) error {
	points := make([]*qdrant.PointStruct, 0, len(sections))
	for _, sec := range sections {
		if len(sec.Text) > maxPayloadBytes {
			return ingesterr.New(ingesterr.KindStoreOversize, "vectorstore.upsert_sections", sec.ID, nil)
		}
		payload, err := buildPayload(sec)
		if err != nil {
			return fmt.Errorf("vectorstore: build payload for %s: %w", sec.ID, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(deterministicUUID(sec.ID)),
			Vectors: qdrant.NewVectors(hashEmbed(sec.Text)...),
			Payload: payload,
		})
	}
	if len(points) == 0 {
		return nil
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "vectorstore.upsert_sections", collection, err)
	}
	return nil
}

func buildPayload(sec Section) (map[string]*qdrant.Value, error) {
	payload := make(map[string]*qdrant.Value, len(sec.Metadata)+1)
	for k, v := range sec.Metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return nil, err
		}
		payload[k] = val
	}
	val, err := qdrant.NewValue(sec.Text)
	if err != nil {
		return nil, err
	}
	payload["text"] = val
	return payload, nil
}

// ListCollections returns every collection name known to the store.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "vectorstore.list_collections", "", err)
	}
	return names, nil
}

// Sample returns up to limit documents from a collection, for
// inspection.
func (s *Store) Sample(ctx context.Context, collection string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 10
	}
	limit32 := uint32(limit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          &limit32,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "vectorstore.sample", collection, err)
	}

	docs := make([]Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, pointToDocument(p))
	}
	return docs, nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, ingesterr.New(ingesterr.KindStoreUnreachable, "vectorstore.count", collection, err)
	}
	return int(n), nil
}

func pointToDocument(p *qdrant.RetrievedPoint) Document {
	id := p.Id.GetUuid()
	if id == "" {
		id = fmt.Sprintf("%d", p.Id.GetNum())
	}
	doc := Document{ID: id, Metadata: make(map[string]string, len(p.Payload))}
	for k, v := range p.Payload {
		s := valueToString(v)
		if k == "text" {
			doc.Text = s
			continue
		}
		doc.Metadata[k] = s
	}
	return doc
}

func valueToString(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
		return sv.StringValue
	}
	return fmt.Sprintf("%v", v.Kind)
}

// hashEmbed derives a deterministic vector from text's SHA-256 digest,
// expanded to vectorDim float32 components, each in [-1, 1]; the vector
// is not normalized to unit length. It stands in
// for a real embedding model (see the package doc) while still producing
// distinct, stable vectors per section so upsert/sample round-trip
// meaningfully in tests and local Qdrant instances.
func hashEmbed(text string) []float32 {
	vec := make([]float32, vectorDim)
	block := sha256.Sum256([]byte(text))
	seed := block[:]
	for i := 0; i < vectorDim; i++ {
		if i > 0 && i%len(seed) == 0 {
			next := sha256.Sum256(seed)
			seed = next[:]
		}
		off := i % len(seed)
		end := off + 4
		if end > len(seed) {
			end = len(seed)
		}
		b := seed[off:end]
		if len(b) < 4 {
			b = append(append([]byte{}, b...), make([]byte, 4-len(b))...)
		}
		u := binary.BigEndian.Uint32(b)
		vec[i] = float32(int32(u)) / float32(math.MaxInt32)
	}
	return vec
}

// deterministicUUID derives a stable UUID-shaped string from an
// arbitrary id string, since Qdrant point ids must be a UUID or uint64
// while section ids follow the ${collection}_page${page}_${ordinal}
// scheme.
func deterministicUUID(id string) string {
	sum := sha256.Sum256([]byte(id))
	hexStr := fmt.Sprintf("%x", sum[:16])
	return strings.Join([]string{
		hexStr[0:8], hexStr[8:12], "4" + hexStr[13:16],
		"a" + hexStr[17:20], hexStr[20:32],
	}, "-")
}
