package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/cache"
	"github.com/jvanleeuwen/regelrag/internal/config"
	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

type queryAnalyzerFake struct {
	analysis domain.QueryAnalysis
}

func (f *queryAnalyzerFake) Analyze(_ context.Context, query string) domain.QueryAnalysis {
	analysis := f.analysis
	analysis.Query = query
	if analysis.EnhancedQuery == "" {
		analysis.EnhancedQuery = query
	}
	return analysis
}

type queryEmbedderFake struct {
	embedded string
	err      error
}

func (f *queryEmbedderFake) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *queryEmbedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.embedded = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type queryVectorFake struct {
	results []domain.RankedResult
	limit   int
	filter  domain.SearchFilter
	owner   int64
	err     error
}

func (f *queryVectorFake) EnsureCollection(context.Context, int64) error { return nil }
func (f *queryVectorFake) IndexChunks(context.Context, []domain.Chunk, [][]float32) error {
	return nil
}
func (f *queryVectorFake) Search(_ context.Context, ownerID int64, _ []float32, limit int, filter domain.SearchFilter) ([]domain.RankedResult, error) {
	f.owner = ownerID
	f.limit = limit
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}
func (f *queryVectorFake) DeleteDocument(context.Context, int64, string) error { return nil }
func (f *queryVectorFake) ListDocuments(context.Context, int64) ([]domain.DocumentSummary, error) {
	return nil, nil
}
func (f *queryVectorFake) CountChunks(context.Context, int64, string) (int, error) { return 0, nil }

type queryGeneratorFake struct {
	calls int
	err   error
}

func (f *queryGeneratorFake) GenerateAnswer(context.Context, string, []domain.RankedResult) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "antwoord", nil
}

func testLimits() QueryLimits {
	return QueryLimits{
		DefaultTopK:           5,
		MaxTopK:               100,
		SimilarityThreshold:   0.65,
		MinimumRelevance:      0.4,
		FallbackResultCount:   3,
		CandidateMultiplier:   3,
		CandidateCeiling:      30,
		VerifyBelowConfidence: 0.5,
	}
}

func newQueryUseCase(analyzer *queryAnalyzerFake, embedder *queryEmbedderFake, vector *queryVectorFake, generator *queryGeneratorFake, reasoner *rerankReasonerFake) *QueryUseCase {
	return NewQueryUseCase(
		analyzer,
		embedder,
		vector,
		NewReranker(config.DefaultRankingWeights(), reasonerOrNil(reasoner), time.Second, testLogger()),
		generator,
		cache.NewQueryCache(10, time.Hour),
		testLimits(),
		testLogger(),
	)
}

func reasonerOrNil(r *rerankReasonerFake) ports.ReasoningProvider {
	if r == nil {
		return nil
	}
	return r
}

func resultWithSimilarity(id string, similarity float64) domain.RankedResult {
	return domain.RankedResult{
		Chunk:      domain.Chunk{DocumentID: id, Text: "tekst " + id},
		Similarity: similarity,
	}
}

func TestQueryAnswerDefaultAndOverfetch(t *testing.T) {
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	answer, err := uc.Answer(context.Background(), 7, "vraag", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "antwoord" {
		t.Fatalf("text = %q", answer.Text)
	}
	if vector.owner != 7 {
		t.Fatalf("searched owner %d, want 7", vector.owner)
	}
	// Default limit 5, over-fetched by the candidate multiplier.
	if vector.limit != 15 {
		t.Fatalf("search limit = %d, want 15", vector.limit)
	}
}

func TestQueryAnswerCandidateCeiling(t *testing.T) {
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	if _, err := uc.Answer(context.Background(), 7, "vraag", 20); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if vector.limit != 30 {
		t.Fatalf("search limit = %d, want ceiling 30", vector.limit)
	}
}

func TestQueryAnswerClampsLimitToMax(t *testing.T) {
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	answer, err := uc.Answer(context.Background(), 7, "vraag", 1000)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) > 100 {
		t.Fatalf("sources = %d, want at most the max limit", len(answer.Sources))
	}
}

func TestQueryAnswerRejectsEmptyQuestion(t *testing.T) {
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, &queryVectorFake{}, &queryGeneratorFake{}, nil)

	if _, err := uc.Answer(context.Background(), 7, "", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestQueryAnswerEmbedsEnhancedQuery(t *testing.T) {
	embedder := &queryEmbedderFake{}
	analyzer := &queryAnalyzerFake{analysis: domain.QueryAnalysis{EnhancedQuery: "vraag (Kantoorfunctie)"}}
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(analyzer, embedder, vector, &queryGeneratorFake{}, nil)

	if _, err := uc.Answer(context.Background(), 7, "vraag", 5); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if embedder.embedded != "vraag (Kantoorfunctie)" {
		t.Fatalf("embedded %q, want the enhanced query", embedder.embedded)
	}
}

func TestQueryAnswerPassesFacetFilter(t *testing.T) {
	analyzer := &queryAnalyzerFake{analysis: domain.QueryAnalysis{
		Categories: []domain.Category{domain.CategoryOffice},
		State:      domain.StateNewConstruction,
	}}
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(analyzer, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	if _, err := uc.Answer(context.Background(), 7, "vraag", 5); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(vector.filter.Categories) != 1 || vector.filter.Categories[0] != domain.CategoryOffice {
		t.Fatalf("filter categories = %v", vector.filter.Categories)
	}
	if vector.filter.State != domain.StateNewConstruction {
		t.Fatalf("filter state = %q", vector.filter.State)
	}
}

func TestQueryAnswerSecondCallIsCached(t *testing.T) {
	generator := &queryGeneratorFake{}
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, generator, nil)

	first, err := uc.Answer(context.Background(), 7, "vraag", 5)
	if err != nil {
		t.Fatalf("first Answer() error = %v", err)
	}
	second, err := uc.Answer(context.Background(), 7, "vraag", 5)
	if err != nil {
		t.Fatalf("second Answer() error = %v", err)
	}

	if first.Cached {
		t.Fatal("first answer must not be marked cached")
	}
	if !second.Cached {
		t.Fatal("second answer must be marked cached")
	}
	if second.Text != first.Text {
		t.Fatalf("cached text = %q, want %q", second.Text, first.Text)
	}
	if generator.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", generator.calls)
	}
}

func TestQueryAnswerDifferentOwnerMissesCache(t *testing.T) {
	generator := &queryGeneratorFake{}
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, generator, nil)

	uc.Answer(context.Background(), 7, "vraag", 5)
	uc.Answer(context.Background(), 8, "vraag", 5)

	if generator.calls != 2 {
		t.Fatalf("generator calls = %d, want per-owner isolation", generator.calls)
	}
}

func TestQueryAnswerNoRelevantInformation(t *testing.T) {
	generator := &queryGeneratorFake{}
	vector := &queryVectorFake{results: []domain.RankedResult{
		resultWithSimilarity("a", 0.3),
		resultWithSimilarity("b", 0.2),
	}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, generator, nil)

	answer, err := uc.Answer(context.Background(), 7, "ruimtevaart", 5)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != NoRelevantInformationText {
		t.Fatalf("text = %q, want the empty-result answer", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("sources = %d, want none", len(answer.Sources))
	}
	if generator.calls != 0 {
		t.Fatal("generator must not run without sources")
	}
}

func TestQueryAnswerFallbackBelowThreshold(t *testing.T) {
	vector := &queryVectorFake{results: []domain.RankedResult{
		resultWithSimilarity("a", 0.6),
		resultWithSimilarity("b", 0.55),
		resultWithSimilarity("c", 0.5),
		resultWithSimilarity("d", 0.45),
	}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	answer, err := uc.Answer(context.Background(), 7, "vraag", 5)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	// Nothing reaches 0.65; the best few above the relevance floor survive.
	if len(answer.Sources) != 3 {
		t.Fatalf("sources = %d, want the fallback count", len(answer.Sources))
	}
}

func TestQueryAnswerTruncatesToLimit(t *testing.T) {
	vector := &queryVectorFake{results: []domain.RankedResult{
		resultWithSimilarity("a", 0.9),
		resultWithSimilarity("b", 0.85),
		resultWithSimilarity("c", 0.8),
	}}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	answer, err := uc.Answer(context.Background(), 7, "vraag", 2)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(answer.Sources))
	}
}

func TestQueryAnswerVerifiesOnlyLowConfidence(t *testing.T) {
	reasoner := &rerankReasonerFake{fallback: "RELEVANT"}
	vector := &queryVectorFake{results: []domain.RankedResult{resultWithSimilarity("a", 0.8)}}

	confident := &queryAnalyzerFake{analysis: domain.QueryAnalysis{Confidence: 0.7}}
	uc := newQueryUseCase(confident, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, reasoner)
	if _, err := uc.Answer(context.Background(), 7, "vraag een", 5); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if reasoner.calls != 0 {
		t.Fatalf("verification calls = %d, want none for confident analysis", reasoner.calls)
	}

	vague := &queryAnalyzerFake{analysis: domain.QueryAnalysis{Confidence: 0.2}}
	uc = newQueryUseCase(vague, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, reasoner)
	if _, err := uc.Answer(context.Background(), 7, "vraag twee", 5); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if reasoner.calls == 0 {
		t.Fatal("vague analysis must trigger verification")
	}
}

func TestQueryAnswerSearchErrorPropagates(t *testing.T) {
	vector := &queryVectorFake{err: domain.ErrCollectionNotFound}
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{}, vector, &queryGeneratorFake{}, nil)

	_, err := uc.Answer(context.Background(), 7, "vraag", 5)
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("error = %v, want ErrCollectionNotFound", err)
	}
}

func TestQueryAnswerEmbedError(t *testing.T) {
	uc := newQueryUseCase(&queryAnalyzerFake{}, &queryEmbedderFake{err: errors.New("embed fail")}, &queryVectorFake{}, &queryGeneratorFake{}, nil)

	if _, err := uc.Answer(context.Background(), 7, "vraag", 5); err == nil {
		t.Fatal("expected error")
	}
}
