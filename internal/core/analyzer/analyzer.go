package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

// Confidence contributions per detected facet type. The sum is capped at 1.0.
const (
	confidenceArticle  = 0.4
	confidenceCategory = 0.3
	confidenceState    = 0.15
	confidenceTopic    = 0.15
)

// enhancementTopicTerms is how many topic synonyms the enhanced query carries.
const enhancementTopicTerms = 3

// Analyzer extracts structured facets from free-text queries. The regex and
// dictionary pass always runs; a reasoning provider, when configured, fills
// gaps the first pass left empty and never overrides it.
type Analyzer struct {
	reasoner   ports.ReasoningProvider
	llmTimeout time.Duration
	logger     *slog.Logger
}

func New(reasoner ports.ReasoningProvider, llmTimeout time.Duration, logger *slog.Logger) *Analyzer {
	if llmTimeout <= 0 {
		llmTimeout = 8 * time.Second
	}
	return &Analyzer{
		reasoner:   reasoner,
		llmTimeout: llmTimeout,
		logger:     logger,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, query string) domain.QueryAnalysis {
	lower := strings.ToLower(query)

	categories := extractCategories(lower)
	state := extractState(lower)
	articles := extractArticleNumbers(lower)
	chapter := extractChapterNumber(lower)
	topic := extractTopic(lower)

	if a.reasoner != nil && (len(categories) == 0 || state == domain.StateUnspecified || topic == "") {
		contribution := a.reasonFacets(ctx, query)
		if len(categories) == 0 {
			categories = contribution.Categories
		}
		if state == domain.StateUnspecified {
			state = contribution.State
		}
		if topic == "" {
			topic = contribution.Topic
		}
	}

	enhanced, related := enhanceQuery(query, categories, state, topic)

	return domain.QueryAnalysis{
		Query:          query,
		Categories:     categories,
		State:          state,
		Topic:          topic,
		ArticleNumbers: articles,
		ChapterNumber:  chapter,
		EnhancedQuery:  enhanced,
		RelatedTerms:   related,
		Confidence:     confidence(categories, state, topic, articles),
	}
}

func extractCategories(lower string) []domain.Category {
	var detected []domain.Category
	seen := make(map[domain.Category]struct{})

	add := func(c domain.Category) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		detected = append(detected, c)
	}

	for _, category := range domain.Categories {
		if strings.Contains(lower, strings.ToLower(string(category))) {
			add(category)
		}
	}

	// Fixed iteration order over the synonym dictionary keeps the output
	// deterministic regardless of map ordering.
	for _, synonym := range sortedSynonyms() {
		if wordBoundaryMatch(lower, synonym) {
			add(categorySynonyms[synonym])
		}
	}
	return detected
}

func extractState(lower string) domain.DocumentState {
	for _, pattern := range newConstructionPatterns {
		if pattern.MatchString(lower) {
			return domain.StateNewConstruction
		}
	}
	for _, pattern := range existingStructurePatterns {
		if pattern.MatchString(lower) {
			return domain.StateExisting
		}
	}
	return domain.StateUnspecified
}

func extractArticleNumbers(lower string) []string {
	var numbers []string
	seen := make(map[string]struct{})
	for _, pattern := range articleNumberPatterns {
		for _, match := range pattern.FindAllStringSubmatch(lower, -1) {
			number := match[1]
			if _, ok := seen[number]; ok {
				continue
			}
			seen[number] = struct{}{}
			numbers = append(numbers, number)
		}
	}
	return numbers
}

func extractChapterNumber(lower string) string {
	for _, pattern := range chapterNumberPatterns {
		if match := pattern.FindStringSubmatch(lower); match != nil {
			return match[1]
		}
	}
	return ""
}

// extractTopic scores by substring containment rather than word boundaries:
// Dutch compounds ("brandveiligheidseisen", "ventilatiesysteem") would
// otherwise hide the term. Ties break on the fixed topicOrder.
func extractTopic(lower string) domain.Topic {
	best := domain.Topic("")
	bestScore := 0
	for _, topic := range topicOrder {
		score := 0
		if strings.Contains(lower, string(topic)) {
			score += 2
		}
		for _, term := range topicTerms[topic] {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > bestScore {
			best = topic
			bestScore = score
		}
	}
	return best
}

func enhanceQuery(query string, categories []domain.Category, state domain.DocumentState, topic domain.Topic) (string, []string) {
	parts := []string{query}
	var related []string

	if len(categories) > 0 {
		names := make([]string, len(categories))
		for i, category := range categories {
			names[i] = string(category)
			related = append(related, string(category))
		}
		parts = append(parts, "("+strings.Join(names, " of ")+")")
	}

	if state != domain.StateUnspecified {
		parts = append(parts, string(state))
		related = append(related, string(state))
	}

	if terms, ok := topicTerms[topic]; ok {
		limit := enhancementTopicTerms
		if limit > len(terms) {
			limit = len(terms)
		}
		related = append(related, terms[:limit]...)
		parts = append(parts, terms[:limit]...)
	}

	return strings.Join(parts, " "), related
}

func confidence(categories []domain.Category, state domain.DocumentState, topic domain.Topic, articles []string) float64 {
	score := 0.0
	if len(articles) > 0 {
		score += confidenceArticle
	}
	if len(categories) > 0 {
		score += confidenceCategory
	}
	if state != domain.StateUnspecified {
		score += confidenceState
	}
	if topic != "" {
		score += confidenceTopic
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// reasonFacets asks the reasoning provider for the facets the regex pass
// missed. Any failure, timeout, or unparsable payload degrades to an empty
// contribution; the query proceeds on the regex result alone.
func (a *Analyzer) reasonFacets(ctx context.Context, query string) domain.FacetContribution {
	reasonCtx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()

	response, err := a.reasoner.Complete(reasonCtx, buildFacetPrompt(query), 300)
	if err != nil {
		a.logger.Warn("facet_analysis_degraded", "error", err)
		return domain.FacetContribution{}
	}
	return parseFacetResponse(response, a.logger)
}

func buildFacetPrompt(query string) string {
	return `Analyseer deze vraag over bouwregelgeving en extraheer:
1. categories: lijst van gebruiksfuncties uit: ` + categoryList() + `
   (lege lijst [] als niet duidelijk)
2. state: "Nieuwbouw", "Bestaande bouw", of null
3. topic: hoofdonderwerp in enkele woorden (bijv. "brandveiligheid", "ventilatie"), of null

Vraag: "` + query + `"

Geef je antwoord als JSON in exact dit formaat, zonder extra tekst:
{"categories": ["..."], "state": "..." , "topic": "..."}`
}

func categoryList() string {
	names := make([]string, len(domain.Categories))
	for i, category := range domain.Categories {
		names[i] = string(category)
	}
	return strings.Join(names, ", ")
}

var jsonObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)

func parseFacetResponse(response string, logger *slog.Logger) domain.FacetContribution {
	raw := jsonObjectPattern.FindString(response)
	if raw == "" {
		logger.Warn("facet_analysis_degraded", "reason", "no json object in response")
		return domain.FacetContribution{}
	}

	var payload struct {
		Categories []string `json:"categories"`
		State      string   `json:"state"`
		Topic      string   `json:"topic"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logger.Warn("facet_analysis_degraded", "reason", "unparsable json", "error", err)
		return domain.FacetContribution{}
	}

	var contribution domain.FacetContribution
	for _, name := range payload.Categories {
		if category, ok := knownCategory(name); ok {
			contribution.Categories = append(contribution.Categories, category)
		}
	}
	switch payload.State {
	case string(domain.StateNewConstruction):
		contribution.State = domain.StateNewConstruction
	case string(domain.StateExisting):
		contribution.State = domain.StateExisting
	}
	if payload.Topic != "" && payload.Topic != "null" {
		contribution.Topic = domain.Topic(strings.ToLower(strings.TrimSpace(payload.Topic)))
	}
	return contribution
}

func knownCategory(name string) (domain.Category, bool) {
	trimmed := strings.TrimSpace(name)
	for _, category := range domain.Categories {
		if strings.EqualFold(trimmed, string(category)) {
			return category, true
		}
	}
	return "", false
}

func wordBoundaryMatch(haystack, term string) bool {
	idx := 0
	for {
		found := strings.Index(haystack[idx:], term)
		if found < 0 {
			return false
		}
		start := idx + found
		end := start + len(term)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		idx = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}
