package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrExtractionFailed marks an unreadable source document. Fatal for
	// that document only, never for the pipeline.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrCollectionNotFound means the owner has no indexed content yet.
	// Surfaced as user-facing guidance, not as a system error.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmptyResult means chunking or search produced nothing usable.
	ErrEmptyResult = errors.New("empty result")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
