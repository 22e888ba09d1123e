package extractor

import (
	"context"
	"testing"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

type markerExtractor struct {
	marker string
	called bool
}

func (m *markerExtractor) Extract(context.Context, *domain.Document) (ports.Extraction, error) {
	m.called = true
	return ports.Extraction{Text: m.marker}, nil
}

func TestMuxRoutesByFormat(t *testing.T) {
	cases := []struct {
		filename, mimeType string
		want               string
	}{
		{"bbl.xml", "application/octet-stream", "xml"},
		{"rapport.pdf", "application/pdf", "pdf"},
		{"RAPPORT.PDF", "", "pdf"},
		{"notities.txt", "text/plain", "plain"},
		{"leesmij.md", "", "plain"},
	}

	for _, tc := range cases {
		plain := &markerExtractor{marker: "plain"}
		pdf := &markerExtractor{marker: "pdf"}
		xml := &markerExtractor{marker: "xml"}
		mux := NewMux(plain, pdf, xml)

		extraction, err := mux.Extract(context.Background(), &domain.Document{
			Filename: tc.filename,
			MimeType: tc.mimeType,
		})
		if err != nil {
			t.Fatalf("%s: Extract() error = %v", tc.filename, err)
		}
		if extraction.Text != tc.want {
			t.Fatalf("%s routed to %q, want %q", tc.filename, extraction.Text, tc.want)
		}
	}
}

func TestMuxRejectsUnknownFormat(t *testing.T) {
	mux := NewMux(&markerExtractor{}, &markerExtractor{}, &markerExtractor{})

	_, err := mux.Extract(context.Background(), &domain.Document{
		Filename: "foto.png",
		MimeType: "image/png",
	})
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("error = %v, want ErrExtractionFailed", err)
	}
}
