package chunking

import (
	"fmt"
	"strings"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

// ArticleChunker renders one article as one retrieval unit. The rendered text
// leads with the citable label and source reference so a chunk remains
// attributable when shown in isolation.
type ArticleChunker struct {
	enricher *FacetEnricher
}

func NewArticleChunker() *ArticleChunker {
	return &ArticleChunker{enricher: NewFacetEnricher()}
}

func (c *ArticleChunker) ChunkArticle(article domain.Article) domain.Chunk {
	var b strings.Builder

	fmt.Fprintf(&b, "%s", article.Label())
	if article.Title != "" {
		fmt.Fprintf(&b, " %s", article.Title)
	}
	fmt.Fprintf(&b, "\n(Bron: %s)\n", article.Citation())

	for _, paragraph := range article.Paragraphs {
		b.WriteString("\n")
		if paragraph.Number != "" {
			fmt.Fprintf(&b, "Lid %s. ", paragraph.Number)
		}
		b.WriteString(strings.TrimSpace(paragraph.Text))
	}

	meta := &domain.ArticleMeta{
		Number:         article.Number,
		Label:          article.Label(),
		Title:          article.Title,
		ChapterNumber:  article.ChapterNumber,
		ChapterTitle:   article.ChapterTitle,
		SectionNumber:  article.SectionNumber,
		SectionTitle:   article.SectionTitle,
		ParagraphCount: len(article.Paragraphs),
		Citation:       article.Citation(),
	}
	c.enricher.Enrich(article, meta)

	return domain.Chunk{
		Text:    b.String(),
		Article: meta,
	}
}
