package qdrant

import "github.com/jvanleeuwen/regelrag/internal/core/domain"

// searchFilter renders a domain filter as a Qdrant filter clause. Category
// matches always admit the general-scope marker, and a document-state match
// also admits chunks with no state at all, so content that applies regardless
// of usage class or construction state is never filtered away. Owner scoping
// is handled by the per-owner collection, not by the filter.
func searchFilter(filter domain.SearchFilter) map[string]any {
	var must []map[string]any

	if len(filter.Categories) > 0 {
		values := make([]string, 0, len(filter.Categories)+1)
		for _, category := range filter.Categories {
			values = append(values, string(category))
		}
		values = append(values, domain.GeneralScopeMarker)
		must = append(must, map[string]any{
			"key":   payloadCategories,
			"match": map[string]any{"any": values},
		})
	}

	if filter.State != domain.StateUnspecified {
		must = append(must, map[string]any{
			"should": []map[string]any{
				{"key": payloadState, "match": map[string]any{"value": string(filter.State)}},
				{"is_empty": map[string]any{"key": payloadState}},
			},
		})
	}

	if len(filter.Topics) > 0 {
		values := make([]string, 0, len(filter.Topics))
		for _, topic := range filter.Topics {
			values = append(values, string(topic))
		}
		must = append(must, map[string]any{
			"key":   payloadTopics,
			"match": map[string]any{"any": values},
		})
	}

	if filter.ChapterNumber != "" {
		must = append(must, map[string]any{
			"key":   payloadChapterNumber,
			"match": map[string]any{"value": filter.ChapterNumber},
		})
	}

	return map[string]any{"must": must}
}

func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": payloadDocumentID, "match": map[string]any{"value": documentID}},
		},
	}
}
