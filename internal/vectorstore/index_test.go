package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studyowl/studyowl/config"
)

func testIndex(url string) *Index {
	return NewIndex(config.VectorIndexConfig{URL: url, APIKey: "idx-key", Namespace: "study"})
}

func TestIndexUpsertPayload(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "idx-key" {
			t.Fatalf("missing Api-Key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	idx := testIndex(srv.URL)
	err := idx.Upsert(context.Background(), []Record{{
		ID:           "chunk-1",
		DocumentID:   "doc-1",
		DocumentName: "notes.pdf",
		OwnerID:      "user-1",
		Text:         "some chunk text",
		Embedding:    []float32{0.1, 0.2},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if captured["namespace"] != "study" {
		t.Fatalf("namespace not sent: %v", captured)
	}
	vectors := captured["vectors"].([]any)
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	meta := vectors[0].(map[string]any)["metadata"].(map[string]any)
	if meta["owner_id"] != "user-1" || meta["document_id"] != "doc-1" || meta["text"] != "some chunk text" {
		t.Fatalf("metadata incomplete: %v", meta)
	}
}

func TestIndexUpsertNoRecords(t *testing.T) {
	// Must not reach the network at all.
	idx := testIndex("http://localhost:0")
	if err := idx.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert(nil): %v", err)
	}
}

func TestIndexSearchOwnerFilterAndResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req["topK"].(float64) != 3 {
			t.Fatalf("topK not forwarded: %v", req["topK"])
		}
		filter := req["filter"].(map[string]any)["owner_id"].(map[string]any)
		if filter["$eq"] != "user-1" {
			t.Fatalf("owner filter missing: %v", req["filter"])
		}
		fmt.Fprint(w, `{"matches":[
			{"id":"c1","score":0.91,"metadata":{"text":"first","document_id":"d1","document_name":"a.pdf"}},
			{"id":"c2","score":0.74,"metadata":{"text":"second","document_id":"d2","document_name":"b.pdf"}}
		]}`)
	}))
	defer srv.Close()

	idx := testIndex(srv.URL)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 3, "user-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ChunkID != "c1" || results[0].Score != 0.91 || results[0].DocumentName != "a.pdf" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Content != "second" {
		t.Fatalf("metadata text not mapped: %+v", results[1])
	}
}

func TestIndexDeleteByDocumentFilter(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	idx := testIndex(srv.URL)
	if err := idx.DeleteByDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	filter := captured["filter"].(map[string]any)["document_id"].(map[string]any)
	if filter["$eq"] != "doc-9" {
		t.Fatalf("document filter missing: %v", captured)
	}
}

func TestIndexDeleteByOwnerFilter(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	idx := testIndex(srv.URL)
	if err := idx.DeleteByOwner(context.Background(), "user-7"); err != nil {
		t.Fatalf("DeleteByOwner: %v", err)
	}
	filter := captured["filter"].(map[string]any)["owner_id"].(map[string]any)
	if filter["$eq"] != "user-7" {
		t.Fatalf("owner filter missing: %v", captured)
	}
}

func TestIndexErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	idx := testIndex(srv.URL)
	if err := idx.Ping(context.Background()); err == nil {
		t.Fatal("expected error from 503")
	}
	if _, err := idx.Search(context.Background(), []float32{1}, 5, ""); err == nil {
		t.Fatal("expected error from 503")
	}
}
