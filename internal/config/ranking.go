package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RankingWeights holds the scoring constants of the retrieval pipeline. The
// values are empirically tuned, not derived, so they live in configuration: a
// YAML file can override any subset without touching ranking logic.
type RankingWeights struct {
	Similarity float64 `yaml:"similarity"`
	Facet      float64 `yaml:"facet"`

	Category        float64 `yaml:"category"`
	CategoryPartial float64 `yaml:"category_partial"`
	State           float64 `yaml:"state"`
	StatePartial    float64 `yaml:"state_partial"`
	Topic           float64 `yaml:"topic"`
	TopicRelated    float64 `yaml:"topic_related"`
	Article         float64 `yaml:"article"`
	ArticlePartial  float64 `yaml:"article_partial"`

	VerifyBoost   float64 `yaml:"verify_boost"`
	VerifyNeutral float64 `yaml:"verify_neutral"`
	VerifyPenalty float64 `yaml:"verify_penalty"`

	VerifyMaxCandidates int `yaml:"verify_max_candidates"`
	VerifyExcerptChars  int `yaml:"verify_excerpt_chars"`
}

func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		Similarity: 0.7,
		Facet:      0.3,

		Category:        0.4,
		CategoryPartial: 0.1,
		State:           0.25,
		StatePartial:    0.15,
		Topic:           0.25,
		TopicRelated:    0.15,
		Article:         0.1,
		ArticlePartial:  0.05,

		VerifyBoost:   1.2,
		VerifyNeutral: 1.0,
		VerifyPenalty: 0.5,

		VerifyMaxCandidates: 10,
		VerifyExcerptChars:  500,
	}
}

// LoadRankingWeights returns the defaults, overlaid with the YAML file at
// path when one is configured.
func LoadRankingWeights(path string) (RankingWeights, error) {
	weights := DefaultRankingWeights()
	if path == "" {
		return weights, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("read ranking config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &weights); err != nil {
		return weights, fmt.Errorf("parse ranking config: %w", err)
	}
	return weights, nil
}
