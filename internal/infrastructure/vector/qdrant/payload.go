package qdrant

import (
	"time"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

// Payload keys. Categories always hold at least the general-scope marker so
// that category filters can match content that applies to every usage class.
const (
	payloadDocumentID     = "document_id"
	payloadOwnerID        = "owner_id"
	payloadFilename       = "filename"
	payloadChunkIndex     = "chunk_index"
	payloadText           = "text"
	payloadUploadedAt     = "uploaded_at"
	payloadCategories     = "categories"
	payloadState          = "document_state"
	payloadTopics         = "topics"
	payloadArticleNumber  = "article_number"
	payloadArticleLabel   = "article_label"
	payloadArticleTitle   = "article_title"
	payloadChapterNumber  = "chapter_number"
	payloadChapterTitle   = "chapter_title"
	payloadSectionNumber  = "section_number"
	payloadSectionTitle   = "section_title"
	payloadParagraphCount = "paragraph_count"
	payloadCitation       = "citation"
)

func chunkPayload(chunk domain.Chunk) map[string]any {
	payload := map[string]any{
		payloadDocumentID: chunk.DocumentID,
		payloadOwnerID:    chunk.OwnerID,
		payloadFilename:   chunk.Filename,
		payloadChunkIndex: chunk.Index,
		payloadText:       chunk.Text,
		payloadUploadedAt: chunk.UploadedAt.UTC().Format(time.RFC3339),
	}

	article := chunk.Article
	if article == nil {
		payload[payloadCategories] = []string{domain.GeneralScopeMarker}
		return payload
	}

	payload[payloadCategories] = scopeValues(article.Scope)
	if article.State != domain.StateUnspecified {
		payload[payloadState] = string(article.State)
	}
	if len(article.Topics) > 0 {
		topics := make([]string, 0, len(article.Topics))
		for _, topic := range article.Topics {
			topics = append(topics, string(topic))
		}
		payload[payloadTopics] = topics
	}
	payload[payloadArticleNumber] = article.Number
	payload[payloadArticleLabel] = article.Label
	if article.Title != "" {
		payload[payloadArticleTitle] = article.Title
	}
	payload[payloadChapterNumber] = article.ChapterNumber
	payload[payloadChapterTitle] = article.ChapterTitle
	if article.SectionNumber != "" {
		payload[payloadSectionNumber] = article.SectionNumber
		payload[payloadSectionTitle] = article.SectionTitle
	}
	payload[payloadParagraphCount] = article.ParagraphCount
	payload[payloadCitation] = article.Citation
	return payload
}

func scopeValues(scope domain.Scope) []string {
	if scope.General || len(scope.Categories) == 0 {
		return []string{domain.GeneralScopeMarker}
	}
	values := make([]string, 0, len(scope.Categories))
	for _, category := range scope.Categories {
		values = append(values, string(category))
	}
	return values
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	chunk := domain.Chunk{
		DocumentID: payloadString(payload, payloadDocumentID),
		OwnerID:    payloadInt64(payload, payloadOwnerID),
		Filename:   payloadString(payload, payloadFilename),
		Index:      int(payloadInt64(payload, payloadChunkIndex)),
		Text:       payloadString(payload, payloadText),
	}
	if raw := payloadString(payload, payloadUploadedAt); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			chunk.UploadedAt = ts
		}
	}

	number := payloadString(payload, payloadArticleNumber)
	if number == "" {
		return chunk
	}

	article := &domain.ArticleMeta{
		Number:         number,
		Label:          payloadString(payload, payloadArticleLabel),
		Title:          payloadString(payload, payloadArticleTitle),
		ChapterNumber:  payloadString(payload, payloadChapterNumber),
		ChapterTitle:   payloadString(payload, payloadChapterTitle),
		SectionNumber:  payloadString(payload, payloadSectionNumber),
		SectionTitle:   payloadString(payload, payloadSectionTitle),
		ParagraphCount: int(payloadInt64(payload, payloadParagraphCount)),
		Citation:       payloadString(payload, payloadCitation),
		State:          domain.DocumentState(payloadString(payload, payloadState)),
		Scope:          scopeFromValues(payloadStrings(payload, payloadCategories)),
	}
	for _, topic := range payloadStrings(payload, payloadTopics) {
		article.Topics = append(article.Topics, domain.Topic(topic))
	}
	chunk.Article = article
	return chunk
}

func scopeFromValues(values []string) domain.Scope {
	categories := make([]domain.Category, 0, len(values))
	for _, value := range values {
		if value == domain.GeneralScopeMarker {
			return domain.GeneralScope()
		}
		categories = append(categories, domain.Category(value))
	}
	if len(categories) == 0 {
		return domain.GeneralScope()
	}
	return domain.SpecificScope(categories...)
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func payloadInt64(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func payloadStrings(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
