package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo           ports.DocumentRepository
	extractor      ports.TextExtractor
	chunker        ports.Chunker
	articleChunker ports.ArticleChunker
	embedder       ports.Embedder
	vectorDB       ports.VectorStore
	embedBatchSize int
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	articleChunker ports.ArticleChunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	embedBatchSize int,
) *ProcessDocumentUseCase {
	if embedBatchSize <= 0 {
		embedBatchSize = 50
	}
	return &ProcessDocumentUseCase{
		repo:           repo,
		extractor:      extractor,
		chunker:        chunker,
		articleChunker: articleChunker,
		embedder:       embedder,
		vectorDB:       vectorDB,
		embedBatchSize: embedBatchSize,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetChunkCount(ctx, doc.ID, chunkCount); err != nil {
		return fmt.Errorf("save chunk count: %w", err)
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, int, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, 0, err
	}

	extraction, err := uc.extract(ctx, doc)
	if err != nil {
		return nil, 0, err
	}

	chunks, err := uc.chunk(doc, extraction)
	if err != nil {
		return nil, 0, err
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return nil, 0, err
	}

	if err := uc.index(ctx, doc, chunks, vectors); err != nil {
		return nil, 0, err
	}

	return doc, len(chunks), nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc *domain.Document) (ports.Extraction, error) {
	extraction, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return ports.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract document", err)
	}
	if extraction.Text == "" && len(extraction.Articles) == 0 {
		return ports.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract document", errors.New("empty extraction"))
	}
	return extraction, nil
}

// chunk produces either one chunk per article (hierarchical documents) or
// bounded overlapping text chunks (flat documents). Every chunk carries the
// document identity the retriever filters on.
func (uc *ProcessDocumentUseCase) chunk(doc *domain.Document, extraction ports.Extraction) ([]domain.Chunk, error) {
	var chunks []domain.Chunk

	if len(extraction.Articles) > 0 {
		chunks = make([]domain.Chunk, 0, len(extraction.Articles))
		for _, article := range extraction.Articles {
			chunks = append(chunks, uc.articleChunker.ChunkArticle(article))
		}
	} else {
		pieces := uc.chunker.Split(extraction.Text)
		chunks = make([]domain.Chunk, 0, len(pieces))
		for _, text := range pieces {
			chunks = append(chunks, domain.Chunk{Text: text})
		}
	}

	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyResult, "chunk document", errors.New("chunking produced zero chunks"))
	}

	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].OwnerID = doc.OwnerID
		chunks[i].Index = i
		chunks[i].Filename = doc.Filename
		chunks[i].UploadedAt = doc.CreatedAt
	}
	return chunks, nil
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += uc.embedBatchSize {
		end := start + uc.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}
		batch, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) index(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if err := uc.vectorDB.EnsureCollection(ctx, doc.OwnerID); err != nil {
		return fmt.Errorf("ensure vector collection: %w", err)
	}
	if err := uc.vectorDB.IndexChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
