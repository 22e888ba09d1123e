// Package pdf extracts plain text from PDF source documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (ports.Extraction, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return ports.Extraction{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return ports.Extraction{}, fmt.Errorf("read source document: %w", err)
	}

	parsed, err := pdfreader.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return ports.Extraction{}, fmt.Errorf("parse pdf %s: %w", doc.Filename, err)
	}

	plain, err := parsed.GetPlainText()
	if err != nil {
		return ports.Extraction{}, fmt.Errorf("extract pdf text %s: %w", doc.Filename, err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return ports.Extraction{}, fmt.Errorf("collect pdf text %s: %w", doc.Filename, err)
	}

	return ports.Extraction{Text: strings.TrimSpace(b.String())}, nil
}
