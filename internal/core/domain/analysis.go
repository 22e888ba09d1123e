package domain

// QueryAnalysis is the structured reading of one free-text query. It is
// derived per request and never persisted.
type QueryAnalysis struct {
	Query          string        `json:"query"`
	Categories     []Category    `json:"categories,omitempty"`
	State          DocumentState `json:"state,omitempty"`
	Topic          Topic         `json:"topic,omitempty"`
	ArticleNumbers []string      `json:"article_numbers,omitempty"`
	ChapterNumber  string        `json:"chapter_number,omitempty"`

	// EnhancedQuery is the original text augmented with resolved facet terms.
	// It steers the embedding only; Query is what the user wrote.
	EnhancedQuery string   `json:"enhanced_query"`
	RelatedTerms  []string `json:"related_terms,omitempty"`

	Confidence float64 `json:"confidence"`
}

// Filter converts the detected facets into a vector-store filter. A facet the
// analyzer did not detect is simply absent.
func (a QueryAnalysis) Filter() SearchFilter {
	return SearchFilter{
		Categories:    a.Categories,
		State:         a.State,
		Topics:        topicsOf(a.Topic),
		ChapterNumber: a.ChapterNumber,
	}
}

func topicsOf(topic Topic) []Topic {
	if topic == "" {
		return nil
	}
	return []Topic{topic}
}

// FacetContribution is the gap-fill result of the optional reasoning pass.
// The zero value means "no contribution"; it is never an error.
type FacetContribution struct {
	Categories []Category
	State      DocumentState
	Topic      Topic
}

func (c FacetContribution) Empty() bool {
	return len(c.Categories) == 0 && c.State == StateUnspecified && c.Topic == ""
}
