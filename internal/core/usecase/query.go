package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jvanleeuwen/regelrag/internal/cache"
	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

// NoRelevantInformationText is the answer text when retrieval finds nothing
// above the relevance floor. An empty retrieval is a valid outcome, not an
// error.
const NoRelevantInformationText = "Geen relevante informatie gevonden."

// QueryLimits bundles the retrieval thresholds of the pipeline.
type QueryLimits struct {
	DefaultTopK         int
	MaxTopK             int
	SimilarityThreshold float64
	MinimumRelevance    float64
	FallbackResultCount int
	CandidateMultiplier int
	CandidateCeiling    int

	// VerifyBelowConfidence gates the verification pass: analyses at or
	// above it are trusted without a second model call.
	VerifyBelowConfidence float64
}

type QueryUseCase struct {
	analyzer   ports.QueryAnalyzer
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	reranker   *Reranker
	generator  ports.AnswerGenerator
	queryCache *cache.QueryCache
	limits     QueryLimits
	logger     *slog.Logger
}

func NewQueryUseCase(
	analyzer ports.QueryAnalyzer,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	reranker *Reranker,
	generator ports.AnswerGenerator,
	queryCache *cache.QueryCache,
	limits QueryLimits,
	logger *slog.Logger,
) *QueryUseCase {
	return &QueryUseCase{
		analyzer:   analyzer,
		embedder:   embedder,
		vectorDB:   vectorDB,
		reranker:   reranker,
		generator:  generator,
		queryCache: queryCache,
		limits:     limits,
		logger:     logger,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, ownerID int64, question string, limit int) (*domain.Answer, error) {
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", fmt.Errorf("empty question"))
	}
	limit = uc.clampLimit(limit)

	if cached, ok := uc.queryCache.Get(ownerID, question, limit); ok {
		cached.Cached = true
		return &cached, nil
	}

	analysis := uc.analyzer.Analyze(ctx, question)

	queryVector, err := uc.embedder.EmbedQuery(ctx, analysis.EnhancedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := uc.vectorDB.Search(ctx, ownerID, queryVector, uc.candidateLimit(limit), analysis.Filter())
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}

	relevant := uc.selectRelevant(candidates)
	if len(relevant) == 0 {
		answer := domain.Answer{Text: NoRelevantInformationText, Sources: []domain.RankedResult{}}
		uc.queryCache.Set(ownerID, question, limit, answer)
		return &answer, nil
	}

	verify := analysis.Confidence < uc.limits.VerifyBelowConfidence
	ranked := uc.reranker.Rerank(ctx, analysis, relevant, verify)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, ranked)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	answer := domain.Answer{Text: answerText, Sources: ranked}
	uc.queryCache.Set(ownerID, question, limit, answer)

	uc.logger.Info("query_answered",
		"owner_id", ownerID,
		"confidence", analysis.Confidence,
		"verified", verify,
		"sources", len(ranked),
	)
	return &answer, nil
}

func (uc *QueryUseCase) clampLimit(limit int) int {
	if limit <= 0 {
		return uc.limits.DefaultTopK
	}
	if limit > uc.limits.MaxTopK {
		return uc.limits.MaxTopK
	}
	return limit
}

// candidateLimit over-fetches so the reranker has room to reorder, bounded
// by a fixed ceiling.
func (uc *QueryUseCase) candidateLimit(limit int) int {
	candidates := limit * uc.limits.CandidateMultiplier
	if candidates > uc.limits.CandidateCeiling {
		candidates = uc.limits.CandidateCeiling
	}
	if candidates < limit {
		candidates = limit
	}
	return candidates
}

// selectRelevant keeps candidates above the similarity threshold. When none
// qualify it falls back to the few best above the minimum relevance floor,
// so a slightly-off-threshold corpus still yields an answer.
func (uc *QueryUseCase) selectRelevant(candidates []domain.RankedResult) []domain.RankedResult {
	var relevant []domain.RankedResult
	for _, candidate := range candidates {
		if candidate.Similarity >= uc.limits.SimilarityThreshold {
			relevant = append(relevant, candidate)
		}
	}
	if len(relevant) > 0 {
		return relevant
	}

	for _, candidate := range candidates {
		if candidate.Similarity >= uc.limits.MinimumRelevance {
			relevant = append(relevant, candidate)
			if len(relevant) == uc.limits.FallbackResultCount {
				break
			}
		}
	}
	return relevant
}
