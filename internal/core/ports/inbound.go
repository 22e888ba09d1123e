package ports

import (
	"context"
	"io"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, ownerID int64, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error)
}

// DocumentQueryService is the inbound contract for retrieval and answering.
type DocumentQueryService interface {
	Answer(ctx context.Context, ownerID int64, question string, limit int) (*domain.Answer, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, ownerID int64, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentRemover deletes a document and its indexed chunks.
type DocumentRemover interface {
	Remove(ctx context.Context, ownerID int64, documentID string) error
}
