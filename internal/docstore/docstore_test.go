package docstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

func TestEnsureCollection_InstallsSchemaOnce(t *testing.T) {
	var schemaCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v0/schema" {
			atomic.AddInt32(&schemaCalls, 1)
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Errorf("unexpected path: %s", r.URL.Path)
	}))
	defer server.Close()

	store := New(server.URL)
	if err := store.EnsureCollection(context.Background(), "rpger.dnd.1st_edition.phb"); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.EnsureCollection(context.Background(), "rpger.dnd.1st_edition.dmg"); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}

	if got := atomic.LoadInt32(&schemaCalls); got != 1 {
		t.Fatalf("expected schema to be installed once, got %d calls", got)
	}
	names := store.ListCollections()
	if len(names) != 2 {
		t.Fatalf("expected 2 registered collections, got %d: %v", len(names), names)
	}
}

func TestEnsureCollection_ConflictIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("schema already exists"))
	}))
	defer server.Close()

	store := New(server.URL)
	if err := store.EnsureCollection(context.Background(), "rpger.dnd.1st_edition.phb"); err != nil {
		t.Fatalf("expected schema conflict to be swallowed, got %v", err)
	}
}

func TestInsertWhole(t *testing.T) {
	var receivedQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			return
		}
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		receivedQuery = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"create_IngestDocument": [{"_docID": "bae-whole-1"}]}}`))
	}))
	defer server.Close()

	store := New(server.URL)
	artifact := model.Artifact{
		Verdict:    model.Verdict{Game: "dnd", Edition: "1st_edition", Book: "phb", Kind: model.KindSourceMaterial, ISBN13: "9780000000000"},
		Sections:   []model.Section{{EnhancedText: "chapter one"}, {EnhancedText: "chapter two"}},
		IngestedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	id, err := store.InsertWhole(context.Background(), "rpger.dnd.1st_edition.phb", artifact, "rpger/dnd/1st_edition/phb", "sha256:deadbeef")
	if err != nil {
		t.Fatalf("InsertWhole() error = %v", err)
	}
	if id != "bae-whole-1" {
		t.Errorf("unexpected doc id: %s", id)
	}
	if receivedQuery == "" {
		t.Error("expected a request body to be sent")
	}
}

func TestInsertSplit(t *testing.T) {
	var creates int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&creates, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data": {"create_IngestDocument": [{"_docID": "bae-split-%d"}]}}`, n)
	}))
	defer server.Close()

	store := New(server.URL)
	verdict := model.Verdict{Game: "call-of-cthulhu-like", Edition: "7th_edition", Book: "keeper_rulebook", Kind: model.KindSourceMaterial}
	sections := []model.Section{
		{Page: 1, Ordinal: 0, Category: "Rules", EnhancedText: "sanity mechanics"},
		{Page: 2, Ordinal: 0, Category: "Lore", EnhancedText: "mythos entities"},
	}

	ids, err := store.InsertSplit(context.Background(), "rpger.call-of-cthulhu-like.7th_edition.keeper_rulebook", verdict, sections, "rpger/call-of-cthulhu-like/7th_edition/keeper_rulebook", "sha256:cafef00d")
	if err != nil {
		t.Fatalf("InsertSplit() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 doc ids, got %d", len(ids))
	}
	if atomic.LoadInt32(&creates) != 2 {
		t.Fatalf("expected 2 create calls, got %d", creates)
	}
}

func TestReadPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"IngestDocument": [
			{"_docID": "a", "collection": "rpger.dnd.1st_edition.phb", "page": 1, "ordinal": 0, "text": "first", "isWhole": false},
			{"_docID": "b", "collection": "rpger.dnd.1st_edition.phb", "page": 2, "ordinal": 0, "text": "second", "isWhole": false}
		]}}`))
	}))
	defer server.Close()

	store := New(server.URL)
	page, err := store.ReadPage(context.Background(), "rpger.dnd.1st_edition.phb", 0, 10, "")
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if page.Total != 2 || len(page.Docs) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Docs[0].DocID != "a" || page.Docs[1].Text != "second" {
		t.Fatalf("unexpected docs: %+v", page.Docs)
	}
}

func TestReadPage_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors": [{"message": "unknown collection"}]}`))
	}))
	defer server.Close()

	store := New(server.URL)
	_, err := store.ReadPage(context.Background(), "does-not-exist", 0, 10, "")
	if err == nil {
		t.Fatal("expected error for unknown collection")
	}
	if ingesterr.KindOf(err) != ingesterr.KindStoreUnreachable {
		t.Fatalf("unexpected error kind: %v", ingesterr.KindOf(err))
	}
}

func TestSearchText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"IngestDocument": [
			{"_docID": "a", "text": "the dragon hoards gold"},
			{"_docID": "b", "text": "sanity loss mechanics"},
			{"_docID": "c", "text": "a second DRAGON encounter"}
		]}}`))
	}))
	defer server.Close()

	store := New(server.URL)
	docs, err := store.SearchText(context.Background(), "rpger.dnd.1st_edition.phb", "dragon", 0)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 case-insensitive matches, got %d: %+v", len(docs), docs)
	}
}

func TestSearchText_RespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"IngestDocument": [
			{"_docID": "a", "text": "dragon one"},
			{"_docID": "b", "text": "dragon two"},
			{"_docID": "c", "text": "dragon three"}
		]}}`))
	}))
	defer server.Close()

	store := New(server.URL)
	docs, err := store.SearchText(context.Background(), "rpger.dnd.1st_edition.phb", "dragon", 2)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(docs))
	}
}

func TestStore_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health-check" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := New(server.URL)
	if err := store.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
}
