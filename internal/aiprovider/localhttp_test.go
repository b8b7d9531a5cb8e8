package aiprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpgvault/ingest/internal/model"
)

// chatCompletionStub answers every chat completion with the given JSON
// content, counting upstream calls.
func chatCompletionStub(t *testing.T, content string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": ` + content + `}}]}`))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

const stubVerdictJSON = `"{\"kind\": \"source_material\", \"game\": \"dnd\", \"edition\": \"1st\", \"book\": \"PHB\", \"confidence\": 0.9, \"rationale\": \"stub\"}"`

func TestLocalHTTPIdentifyCachesRepeatCalls(t *testing.T) {
	server, calls := chatCompletionStub(t, stubVerdictJSON)
	p := NewLocalHTTP(server.URL, "test-model", 5*time.Second)

	opts := DefaultIdentifyOptions()
	text := "armor class and saving throws"

	v1, err := p.Identify(context.Background(), text, model.KindSourceMaterial, opts)
	if err != nil {
		t.Fatalf("first identify: %v", err)
	}
	v2, err := p.Identify(context.Background(), text, model.KindSourceMaterial, opts)
	if err != nil {
		t.Fatalf("second identify: %v", err)
	}
	if !reflect.DeepEqual(v1, v2) {
		t.Fatalf("expected identical cached verdict, got %+v vs %+v", v1, v2)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected 1 upstream call for repeat identical identify, got %d", got)
	}
}

func TestLocalHTTPIdentifyCacheDisabledAlwaysCalls(t *testing.T) {
	server, calls := chatCompletionStub(t, stubVerdictJSON)
	p := NewLocalHTTP(server.URL, "test-model", 5*time.Second)

	opts := DefaultIdentifyOptions()
	opts.Cache = false
	text := "armor class and saving throws"

	for i := 0; i < 2; i++ {
		if _, err := p.Identify(context.Background(), text, model.KindSourceMaterial, opts); err != nil {
			t.Fatalf("identify %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 upstream calls with caching off, got %d", got)
	}
}

func TestLocalHTTPCategorizeCachesRepeatCalls(t *testing.T) {
	server, calls := chatCompletionStub(t, `"{\"category\": \"Combat\", \"confidence\": 0.8, \"rationale\": \"stub\"}"`)
	p := NewLocalHTTP(server.URL, "test-model", 5*time.Second)

	opts := DefaultCategorizeOptions()
	cats := []string{"Combat", "Magic", "Uncategorized"}

	r1, err := p.Categorize(context.Background(), "initiative and attack rolls", cats, opts)
	if err != nil {
		t.Fatalf("first categorize: %v", err)
	}
	r2, err := p.Categorize(context.Background(), "initiative and attack rolls", cats, opts)
	if err != nil {
		t.Fatalf("second categorize: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("expected identical cached result, got %+v vs %+v", r1, r2)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected 1 upstream call for repeat identical categorize, got %d", got)
	}
}
