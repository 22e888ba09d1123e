package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/config"
	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

// relatedTopicGroups pairs topics that usually answer each other's questions.
// Membership in the same group earns the reduced topic weight.
var relatedTopicGroups = [][]domain.Topic{
	{"brandveiligheid", "constructie"},
	{"ventilatie", "daglicht"},
	{"energieprestatie", "isolatie"},
	{"geluid", "akoestiek"},
}

// Reranker orders candidates by a weighted combination of vector similarity
// and facet agreement with the analyzed query. For low-confidence analyses it
// can additionally ask a reasoning provider to verify each top candidate.
type Reranker struct {
	weights       config.RankingWeights
	reasoner      ports.ReasoningProvider
	verifyTimeout time.Duration
	logger        *slog.Logger
}

func NewReranker(weights config.RankingWeights, reasoner ports.ReasoningProvider, verifyTimeout time.Duration, logger *slog.Logger) *Reranker {
	if verifyTimeout <= 0 {
		verifyTimeout = 20 * time.Second
	}
	return &Reranker{
		weights:       weights,
		reasoner:      reasoner,
		verifyTimeout: verifyTimeout,
		logger:        logger,
	}
}

// Rerank scores every candidate and returns them in descending combined
// order. Candidates are not dropped here; truncation is the caller's call.
func (r *Reranker) Rerank(ctx context.Context, analysis domain.QueryAnalysis, candidates []domain.RankedResult, verify bool) []domain.RankedResult {
	ranked := make([]domain.RankedResult, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		ranked[i].FacetScore = r.facetScore(analysis, ranked[i].Chunk)
		ranked[i].Combined = r.weights.Similarity*ranked[i].Similarity + r.weights.Facet*ranked[i].FacetScore
	}
	sortByCombined(ranked)

	if verify && r.reasoner != nil {
		verified := r.verifyTop(ctx, analysis.Query, ranked)
		// Only the verified head is re-sorted; the unverified tail keeps its
		// position behind it.
		sortByCombined(ranked[:verified])
	}
	return ranked
}

func sortByCombined(results []domain.RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Combined != results[j].Combined {
			return results[i].Combined > results[j].Combined
		}
		if results[i].Chunk.DocumentID != results[j].Chunk.DocumentID {
			return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
}

// facetScore measures how well a chunk's metadata agrees with the analyzed
// query. Flat chunks carry no metadata and score zero. A general-scope
// article applies to every usage class and earns the full category weight; an
// article scoped to other classes keeps a sliver of credit.
func (r *Reranker) facetScore(analysis domain.QueryAnalysis, chunk domain.Chunk) float64 {
	meta := chunk.Article
	if meta == nil {
		return 0
	}

	score := 0.0

	if len(analysis.Categories) > 0 {
		switch {
		case meta.Scope.General:
			score += r.weights.Category
		case anyCategory(meta.Scope, analysis.Categories):
			score += r.weights.Category
		case len(meta.Scope.Categories) > 0:
			score += r.weights.CategoryPartial
		}
	}

	if analysis.State != domain.StateUnspecified {
		switch meta.State {
		case analysis.State:
			score += r.weights.State
		case domain.StateUnspecified:
			score += r.weights.StatePartial
		}
	}

	if analysis.Topic != "" {
		switch {
		case hasTopic(meta.Topics, analysis.Topic):
			score += r.weights.Topic
		case hasRelatedTopic(meta.Topics, analysis.Topic):
			score += r.weights.TopicRelated
		}
	}

	if len(analysis.ArticleNumbers) > 0 {
		switch {
		case exactArticleMatch(meta.Number, analysis.ArticleNumbers):
			score += r.weights.Article
		case partialArticleMatch(meta.Number, analysis.ArticleNumbers):
			score += r.weights.ArticlePartial
		}
	}

	return score
}

func anyCategory(scope domain.Scope, categories []domain.Category) bool {
	for _, category := range categories {
		if scope.Contains(category) {
			return true
		}
	}
	return false
}

func hasTopic(topics []domain.Topic, want domain.Topic) bool {
	for _, topic := range topics {
		if topic == want {
			return true
		}
	}
	return false
}

func hasRelatedTopic(topics []domain.Topic, want domain.Topic) bool {
	for _, group := range relatedTopicGroups {
		if !groupContains(group, want) {
			continue
		}
		for _, topic := range topics {
			if topic != want && groupContains(group, topic) {
				return true
			}
		}
	}
	return false
}

func groupContains(group []domain.Topic, topic domain.Topic) bool {
	for _, member := range group {
		if member == topic {
			return true
		}
	}
	return false
}

func exactArticleMatch(number string, wanted []string) bool {
	for _, want := range wanted {
		if number == want {
			return true
		}
	}
	return false
}

func partialArticleMatch(number string, wanted []string) bool {
	if number == "" {
		return false
	}
	for _, want := range wanted {
		if strings.Contains(number, want) || strings.Contains(want, number) {
			return true
		}
	}
	return false
}

// verifyTop asks the reasoning provider for a categorical relevance verdict
// on the leading candidates and scales their combined score by it. A failed
// or unreadable verification leaves the score untouched. It returns the
// number of candidates it examined.
func (r *Reranker) verifyTop(ctx context.Context, question string, ranked []domain.RankedResult) int {
	limit := r.weights.VerifyMaxCandidates
	if limit > len(ranked) {
		limit = len(ranked)
	}

	for i := 0; i < limit; i++ {
		verdict, err := r.verifyCandidate(ctx, question, ranked[i].Chunk)
		if err != nil {
			r.logger.Warn("relevance_verification_degraded",
				"document_id", ranked[i].Chunk.DocumentID,
				"chunk_index", ranked[i].Chunk.Index,
				"error", err,
			)
			continue
		}
		ranked[i].Verdict = verdict
		ranked[i].Combined *= r.verdictMultiplier(verdict)
	}
	return limit
}

func (r *Reranker) verifyCandidate(ctx context.Context, question string, chunk domain.Chunk) (domain.Verdict, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, r.verifyTimeout)
	defer cancel()

	response, err := r.reasoner.Complete(verifyCtx, r.buildVerifyPrompt(question, chunk), 20)
	if err != nil {
		return domain.VerdictNone, err
	}
	return parseVerdict(response), nil
}

func (r *Reranker) buildVerifyPrompt(question string, chunk domain.Chunk) string {
	excerpt := chunk.Text
	if len(excerpt) > r.weights.VerifyExcerptChars {
		excerpt = excerpt[:r.weights.VerifyExcerptChars]
	}
	return fmt.Sprintf(`Beoordeel of deze tekst relevant is voor de vraag.

Vraag: %s

Tekst:
%s

Antwoord met precies een van: RELEVANT, MOGELIJK_RELEVANT, NIET_RELEVANT`, question, excerpt)
}

// parseVerdict reads the provider's answer by containment, most specific
// label first: "NIET_RELEVANT" and "MOGELIJK_RELEVANT" both contain
// "RELEVANT". Anything unreadable counts as no verdict.
func parseVerdict(response string) domain.Verdict {
	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, "NIET"):
		return domain.VerdictNotRelevant
	case strings.Contains(upper, "MOGELIJK"):
		return domain.VerdictPossiblyRelevant
	case strings.Contains(upper, "RELEVANT"):
		return domain.VerdictRelevant
	default:
		return domain.VerdictNone
	}
}

func (r *Reranker) verdictMultiplier(verdict domain.Verdict) float64 {
	switch verdict {
	case domain.VerdictRelevant:
		return r.weights.VerifyBoost
	case domain.VerdictNotRelevant:
		return r.weights.VerifyPenalty
	default:
		return r.weights.VerifyNeutral
	}
}
