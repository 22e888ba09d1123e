package ports

import (
	"context"
	"io"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

// DocumentRepository persists and reads document state. Get is the
// owner-agnostic lookup the processing worker uses; GetByID scopes to an
// owner and is what request paths must call.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	Get(ctx context.Context, id string) (*domain.Document, error)
	GetByID(ctx context.Context, ownerID int64, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
	Delete(ctx context.Context, ownerID int64, id string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// Extraction is what a text extractor produced: either flat text, or the
// structured article list of a hierarchical document. Exactly one is set.
type Extraction struct {
	Text     string
	Articles []domain.Article
}

// TextExtractor turns a stored source document into extractable content.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (Extraction, error)
}

// Chunker splits flat text into bounded, overlapping retrieval units.
type Chunker interface {
	Split(text string) []string
}

// ArticleChunker maps one article to one retrieval unit with facet metadata.
type ArticleChunker interface {
	ChunkArticle(article domain.Article) domain.Chunk
}

// Embedder builds vectors for chunks and query text. Embed returns one vector
// per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingStore is the durable backing tier of the embedding cache, keyed by
// the same content hash as the in-memory tier. Load returns (nil, nil) on a
// miss; an error means the store itself failed.
type EmbeddingStore interface {
	Load(ctx context.Context, hash string) ([]float32, error)
	Save(ctx context.Context, hash string, vector []float32) error
}

// ReasoningProvider performs free-text completions for the analyzer's facet
// gap-fill and the reranker's relevance verification. Both call sites must
// tolerate empty or malformed output.
type ReasoningProvider interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// AnswerGenerator creates the final user-facing answer from ranked sources.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, sources []domain.RankedResult) (string, error)
}

// VectorStore indexes chunks and performs owner-scoped similarity search with
// optional facet filtering.
type VectorStore interface {
	EnsureCollection(ctx context.Context, ownerID int64) error
	IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, ownerID int64, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RankedResult, error)
	DeleteDocument(ctx context.Context, ownerID int64, documentID string) error
	ListDocuments(ctx context.Context, ownerID int64) ([]domain.DocumentSummary, error)
	CountChunks(ctx context.Context, ownerID int64, documentID string) (int, error)
}

// QueryAnalyzer extracts structured facets and a confidence score from a
// free-text query.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, query string) domain.QueryAnalysis
}
