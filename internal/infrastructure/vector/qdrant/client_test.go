package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

func testChunk(index int) domain.Chunk {
	return domain.Chunk{
		Text:       "chunk text",
		DocumentID: "doc-1",
		OwnerID:    7,
		Index:      index,
		Filename:   "bbl.xml",
		UploadedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestIndexChunksEnsuresCollectionOncePerOwner(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	chunks := []domain.Chunk{testChunk(0), testChunk(1)}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	err := client.EnsureCollection(context.Background(), 7)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestIndexChunksWritesFacetPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7/points":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode upsert body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	chunk := testChunk(0)
	chunk.Article = &domain.ArticleMeta{
		Number:        "4.101",
		Label:         "Artikel 4.101",
		ChapterNumber: "4",
		ChapterTitle:  "Nieuwbouw",
		Citation:      "Hoofdstuk 4. Nieuwbouw",
		Scope:         domain.SpecificScope(domain.CategoryResidential),
		State:         domain.StateNewConstruction,
		Topics:        []domain.Topic{"ventilatie"},
	}

	client := New(server.URL, "regelrag")
	if err := client.IndexChunks(context.Background(), []domain.Chunk{chunk}, [][]float32{{0.1}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("expected 1 point, got %v", captured["points"])
	}
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	if got := payload["document_id"]; got != "doc-1" {
		t.Fatalf("document_id = %v", got)
	}
	if got := payload["document_state"]; got != "Nieuwbouw" {
		t.Fatalf("document_state = %v", got)
	}
	categories, _ := payload["categories"].([]any)
	if len(categories) != 1 || categories[0] != "Woonfunctie" {
		t.Fatalf("categories = %v", payload["categories"])
	}
	if got := payload["article_number"]; got != "4.101" {
		t.Fatalf("article_number = %v", got)
	}
}

func TestIndexChunksMarksFlatChunksGeneral(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/regelrag_7/points":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode upsert body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	if err := client.IndexChunks(context.Background(), []domain.Chunk{testChunk(0)}, [][]float32{{0.1}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	points := captured["points"].([]any)
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	categories, _ := payload["categories"].([]any)
	if len(categories) != 1 || categories[0] != "Algemeen" {
		t.Fatalf("categories = %v, want [Algemeen]", payload["categories"])
	}
	if _, present := payload["document_state"]; present {
		t.Fatalf("flat chunk must not carry a document state")
	}
	if _, present := payload["article_number"]; present {
		t.Fatalf("flat chunk must not carry an article number")
	}
}

func TestSearchBuildsFacetFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/regelrag_7/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[{"score":0.91,"payload":{
			"document_id":"doc-1","owner_id":7,"filename":"bbl.xml","chunk_index":3,
			"text":"Een verblijfsruimte heeft een voorziening voor luchtverversing.",
			"uploaded_at":"2025-03-01T12:00:00Z",
			"categories":["Woonfunctie"],"document_state":"Nieuwbouw","topics":["ventilatie"],
			"article_number":"4.121","article_label":"Artikel 4.121",
			"chapter_number":"4","chapter_title":"Nieuwbouw",
			"citation":"Hoofdstuk 4. Nieuwbouw"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	filter := domain.SearchFilter{
		Categories: []domain.Category{domain.CategoryResidential},
		State:      domain.StateNewConstruction,
		Topics:     []domain.Topic{"ventilatie"},
	}
	results, err := client.Search(context.Background(), 7, []float32{0.1, 0.2}, 15, filter)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := captured["limit"]; got != float64(15) {
		t.Fatalf("limit = %v, want 15", got)
	}
	raw, err := json.Marshal(captured["filter"])
	if err != nil {
		t.Fatalf("marshal captured filter: %v", err)
	}
	sent := string(raw)
	for _, fragment := range []string{
		`"key":"categories"`, `"Algemeen"`, `"Woonfunctie"`,
		`"key":"document_state"`, `"is_empty"`,
		`"key":"topics"`, `"ventilatie"`,
	} {
		if !strings.Contains(sent, fragment) {
			t.Fatalf("filter missing %s: %s", fragment, sent)
		}
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	result := results[0]
	if result.Similarity != 0.91 {
		t.Fatalf("similarity = %v", result.Similarity)
	}
	article := result.Chunk.Article
	if article == nil {
		t.Fatalf("expected article metadata on result")
	}
	if article.Number != "4.121" || article.State != domain.StateNewConstruction {
		t.Fatalf("article = %+v", article)
	}
	if article.Scope.General || !article.Scope.Contains(domain.CategoryResidential) {
		t.Fatalf("scope = %+v", article.Scope)
	}
}

func TestSearchWithoutFacetsOmitsFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	if _, err := client.Search(context.Background(), 7, []float32{0.1}, 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, present := captured["filter"]; present {
		t.Fatalf("empty facet set must not send a filter, sent %v", captured["filter"])
	}
}

func TestSearchMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	_, err := client.Search(context.Background(), 42, []float32{0.1}, 5, domain.SearchFilter{})
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestListDocumentsGroupsScrolledPoints(t *testing.T) {
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/regelrag_7/points/scroll" {
			http.NotFound(w, r)
			return
		}
		page++
		if page == 1 {
			_, _ = w.Write([]byte(`{"result":{"points":[
				{"payload":{"document_id":"doc-1","filename":"bbl.xml","uploaded_at":"2025-03-01T12:00:00Z"}},
				{"payload":{"document_id":"doc-1","filename":"bbl.xml","uploaded_at":"2025-03-01T12:00:00Z"}},
				{"payload":{"document_id":"doc-2","filename":"notitie.txt","uploaded_at":"2025-03-02T09:00:00Z"}}
			],"next_page_offset":"cursor-1"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"payload":{"document_id":"doc-1","filename":"bbl.xml","uploaded_at":"2025-03-01T12:00:00Z"}}
		],"next_page_offset":null}}`))
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	summaries, err := client.ListDocuments(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if page != 2 {
		t.Fatalf("expected 2 scroll pages, got %d", page)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(summaries))
	}
	// Newest upload first.
	if summaries[0].DocumentID != "doc-2" || summaries[0].ChunkCount != 1 {
		t.Fatalf("summaries[0] = %+v", summaries[0])
	}
	if summaries[1].DocumentID != "doc-1" || summaries[1].ChunkCount != 3 {
		t.Fatalf("summaries[1] = %+v", summaries[1])
	}
}

func TestListDocumentsMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	summaries, err := client.ListDocuments(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no documents, got %d", len(summaries))
	}
}

func TestDeleteDocumentToleratesMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	if err := client.DeleteDocument(context.Background(), 42, "doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
}

func TestCountChunks(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/regelrag_7/points/count" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode count body: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":{"count":12}}`))
	}))
	defer server.Close()

	client := New(server.URL, "regelrag")
	count, err := client.CountChunks(context.Background(), 7, "doc-1")
	if err != nil {
		t.Fatalf("CountChunks() error = %v", err)
	}
	if count != 12 {
		t.Fatalf("count = %d, want 12", count)
	}
	raw, _ := json.Marshal(captured["filter"])
	if !strings.Contains(string(raw), `"doc-1"`) {
		t.Fatalf("count filter missing document id: %s", raw)
	}
}
