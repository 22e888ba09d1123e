// Package extractor routes a stored document to the extractor for its format.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/extractor/bwbxml"
)

type Mux struct {
	plaintext ports.TextExtractor
	pdf       ports.TextExtractor
	xml       ports.TextExtractor
}

func NewMux(plaintext, pdf, xml ports.TextExtractor) *Mux {
	return &Mux{plaintext: plaintext, pdf: pdf, xml: xml}
}

func (m *Mux) Extract(ctx context.Context, doc *domain.Document) (ports.Extraction, error) {
	switch {
	case bwbxml.IsRegulationXML(doc.Filename, doc.MimeType):
		return m.xml.Extract(ctx, doc)
	case isPDF(doc):
		return m.pdf.Extract(ctx, doc)
	case isPlaintext(doc):
		return m.plaintext.Extract(ctx, doc)
	default:
		return ports.Extraction{}, domain.WrapError(
			domain.ErrExtractionFailed,
			"route extractor",
			fmt.Errorf("unsupported format %q (%s)", doc.MimeType, doc.Filename),
		)
	}
}

func isPDF(doc *domain.Document) bool {
	return doc.MimeType == "application/pdf" || strings.HasSuffix(strings.ToLower(doc.Filename), ".pdf")
}

func isPlaintext(doc *domain.Document) bool {
	if strings.HasPrefix(doc.MimeType, "text/") {
		return true
	}
	name := strings.ToLower(doc.Filename)
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md")
}
