package domain

// SearchFilter narrows a similarity search to chunks matching the detected
// facets. The zero value means pure similarity search.
type SearchFilter struct {
	Categories    []Category
	State         DocumentState
	Topics        []Topic
	ChapterNumber string
}

func (f SearchFilter) Empty() bool {
	return len(f.Categories) == 0 &&
		f.State == StateUnspecified &&
		len(f.Topics) == 0 &&
		f.ChapterNumber == ""
}

// Verdict is the categorical relevance classification of the verification
// pass. The labels match the reasoning provider's answer vocabulary.
type Verdict string

const (
	VerdictNone             Verdict = ""
	VerdictRelevant         Verdict = "RELEVANT"
	VerdictPossiblyRelevant Verdict = "MOGELIJK_RELEVANT"
	VerdictNotRelevant      Verdict = "NIET_RELEVANT"
)

// RankedResult pairs a retrieved chunk with its ranking signals.
type RankedResult struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
	FacetScore float64 `json:"facet_score"`
	Combined   float64 `json:"combined_score"`
	Verdict    Verdict `json:"verdict,omitempty"`
}

// Answer is the final bundle returned to the caller and stored in the query
// cache. Cached is set on cache hits and excluded from the cached payload
// itself.
type Answer struct {
	Text    string         `json:"text"`
	Sources []RankedResult `json:"sources"`
	Cached  bool           `json:"cached,omitempty"`
}
