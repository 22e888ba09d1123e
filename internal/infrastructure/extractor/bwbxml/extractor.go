// Package bwbxml extracts structured articles from Dutch BWB regulation XML
// (hoofdstuk / afdeling / artikel / lid nesting). The extraction is
// hierarchical: the document processor indexes one chunk per article.
package bwbxml

import (
	"context"
	"fmt"
	"strings"

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

	articles, err := Parse(reader)
	if err != nil {
		return ports.Extraction{}, fmt.Errorf("parse regulation xml %s: %w", doc.Filename, err)
	}
	if len(articles) == 0 {
		return ports.Extraction{}, fmt.Errorf("no articles in %s", doc.Filename)
	}
	return ports.Extraction{Articles: articles}, nil
}

// IsRegulationXML reports whether the filename or mime type marks a document
// as BWB regulation XML.
func IsRegulationXML(filename, mimeType string) bool {
	if mimeType == "application/xml" || mimeType == "text/xml" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".xml")
}
