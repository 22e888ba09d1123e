package usecase

import (
	"context"
	"fmt"

	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

// RemoveDocumentUseCase deletes a document's indexed chunks and then its
// metadata, in that order.
type RemoveDocumentUseCase struct {
	repo     ports.DocumentRepository
	vectorDB ports.VectorStore
}

func NewRemoveDocumentUseCase(repo ports.DocumentRepository, vectorDB ports.VectorStore) *RemoveDocumentUseCase {
	return &RemoveDocumentUseCase{repo: repo, vectorDB: vectorDB}
}

func (uc *RemoveDocumentUseCase) Remove(ctx context.Context, ownerID int64, documentID string) error {
	if _, err := uc.repo.GetByID(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := uc.vectorDB.DeleteDocument(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("delete document vectors: %w", err)
	}

	if err := uc.repo.Delete(ctx, ownerID, documentID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	return nil
}
