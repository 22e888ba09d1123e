package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

type processRepoFake struct {
	doc        *domain.Document
	getErr     error
	statuses   []domain.DocumentStatus
	lastError  string
	chunkCount int
}

func (f *processRepoFake) Create(context.Context, *domain.Document) error { return nil }
func (f *processRepoFake) Get(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}
func (f *processRepoFake) GetByID(context.Context, int64, string) (*domain.Document, error) {
	return f.doc, nil
}
func (f *processRepoFake) ListByOwner(context.Context, int64) ([]domain.Document, error) {
	return nil, nil
}
func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.lastError = errMessage
	return nil
}
func (f *processRepoFake) SetChunkCount(_ context.Context, _ string, count int) error {
	f.chunkCount = count
	return nil
}
func (f *processRepoFake) Delete(context.Context, int64, string) error { return nil }

type processExtractorFake struct {
	extraction ports.Extraction
	err        error
}

func (f *processExtractorFake) Extract(context.Context, *domain.Document) (ports.Extraction, error) {
	return f.extraction, f.err
}

type processChunkerFake struct {
	pieces []string
	called bool
}

func (f *processChunkerFake) Split(string) []string {
	f.called = true
	return f.pieces
}

type processArticleChunkerFake struct {
	articles []domain.Article
}

func (f *processArticleChunkerFake) ChunkArticle(article domain.Article) domain.Chunk {
	f.articles = append(f.articles, article)
	return domain.Chunk{
		Text:    article.Label(),
		Article: &domain.ArticleMeta{Number: article.Number, Label: article.Label()},
	}
}

type processEmbedderFake struct {
	batches [][]string
	err     error
}

func (f *processEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}
func (f *processEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, nil
}

type processVectorFake struct {
	ensured int64
	indexed []domain.Chunk
	err     error
}

func (f *processVectorFake) EnsureCollection(_ context.Context, ownerID int64) error {
	f.ensured = ownerID
	return nil
}
func (f *processVectorFake) IndexChunks(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	f.indexed = chunks
	return f.err
}
func (f *processVectorFake) Search(context.Context, int64, []float32, int, domain.SearchFilter) ([]domain.RankedResult, error) {
	return nil, nil
}
func (f *processVectorFake) DeleteDocument(context.Context, int64, string) error { return nil }
func (f *processVectorFake) ListDocuments(context.Context, int64) ([]domain.DocumentSummary, error) {
	return nil, nil
}
func (f *processVectorFake) CountChunks(context.Context, int64, string) (int, error) { return 0, nil }

func processDoc() *domain.Document {
	return &domain.Document{
		ID:        "doc-1",
		OwnerID:   7,
		Filename:  "regels.txt",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessFlatDocument(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	chunker := &processChunkerFake{pieces: []string{"eerste deel", "tweede deel"}}
	vector := &processVectorFake{}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{extraction: ports.Extraction{Text: "eerste deel tweede deel"}},
		chunker,
		&processArticleChunkerFake{},
		&processEmbedderFake{},
		vector,
		50,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if !chunker.called {
		t.Fatal("flat extraction must go through the text chunker")
	}
	if len(vector.indexed) != 2 {
		t.Fatalf("indexed %d chunks, want 2", len(vector.indexed))
	}
	for i, chunk := range vector.indexed {
		if chunk.DocumentID != "doc-1" || chunk.OwnerID != 7 || chunk.Index != i {
			t.Fatalf("chunk %d identity = %+v", i, chunk)
		}
		if chunk.Filename != "regels.txt" || chunk.UploadedAt.IsZero() {
			t.Fatalf("chunk %d provenance = %+v", i, chunk)
		}
	}
	if vector.ensured != 7 {
		t.Fatalf("ensured collection for owner %d, want 7", vector.ensured)
	}
	if repo.chunkCount != 2 {
		t.Fatalf("chunk count = %d, want 2", repo.chunkCount)
	}
	want := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusReady}
	if len(repo.statuses) != 2 || repo.statuses[0] != want[0] || repo.statuses[1] != want[1] {
		t.Fatalf("statuses = %v, want %v", repo.statuses, want)
	}
}

func TestProcessHierarchicalDocument(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	articleChunker := &processArticleChunkerFake{}
	chunker := &processChunkerFake{pieces: []string{"unused"}}
	vector := &processVectorFake{}
	articles := []domain.Article{
		{Number: "4.1", ChapterNumber: "4"},
		{Number: "4.2", ChapterNumber: "4"},
		{Number: "5.1", ChapterNumber: "5"},
	}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{extraction: ports.Extraction{Articles: articles}},
		chunker,
		articleChunker,
		&processEmbedderFake{},
		vector,
		50,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if chunker.called {
		t.Fatal("hierarchical extraction must bypass the text chunker")
	}
	if len(articleChunker.articles) != 3 {
		t.Fatalf("chunked %d articles, want 3", len(articleChunker.articles))
	}
	if len(vector.indexed) != 3 {
		t.Fatalf("indexed %d chunks, want one per article", len(vector.indexed))
	}
	if vector.indexed[2].Index != 2 {
		t.Fatalf("chunk index = %d, want positional index", vector.indexed[2].Index)
	}
}

func TestProcessExtractionFailureMarksFailed(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{err: errors.New("corrupt pdf")},
		&processChunkerFake{},
		&processArticleChunkerFake{},
		&processEmbedderFake{},
		&processVectorFake{},
		50,
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("error = %v, want ErrExtractionFailed", err)
	}
	last := repo.statuses[len(repo.statuses)-1]
	if last != domain.StatusFailed {
		t.Fatalf("final status = %s, want %s", last, domain.StatusFailed)
	}
	if !strings.Contains(repo.lastError, "corrupt pdf") {
		t.Fatalf("stored error = %q, want cause", repo.lastError)
	}
}

func TestProcessEmptyExtractionFails(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{},
		&processChunkerFake{},
		&processArticleChunkerFake{},
		&processEmbedderFake{},
		&processVectorFake{},
		50,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("error = %v, want ErrExtractionFailed", err)
	}
}

func TestProcessEmbedsInBatches(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	embedder := &processEmbedderFake{}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{extraction: ports.Extraction{Text: "t"}},
		&processChunkerFake{pieces: []string{"a", "b", "c", "d", "e"}},
		&processArticleChunkerFake{},
		embedder,
		&processVectorFake{},
		2,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(embedder.batches) != 3 {
		t.Fatalf("batches = %d, want 3 for 5 chunks at size 2", len(embedder.batches))
	}
	if len(embedder.batches[2]) != 1 {
		t.Fatalf("last batch = %v, want the single remainder", embedder.batches[2])
	}
}
