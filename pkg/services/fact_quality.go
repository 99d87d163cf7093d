package services

import (
	"strings"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// FactQualityFilter drops extracted facts that are too short or describe
// ephemeral screen state rather than durable knowledge. Precision over
// recall: a dropped good fact costs little, a stored junk fact pollutes
// every future retrieval.
type FactQualityFilter struct {
	minLength       int
	trivialPatterns []string
	logger          *zap.Logger
}

// NewFactQualityFilter creates a filter from pipeline configuration.
// Trivial patterns are matched case-insensitively as substrings.
func NewFactQualityFilter(cfg *config.PipelineConfig, logger *zap.Logger) *FactQualityFilter {
	patterns := make([]string, 0, len(cfg.TrivialPatterns))
	for _, p := range cfg.TrivialPatterns {
		patterns = append(patterns, strings.ToLower(p))
	}
	return &FactQualityFilter{
		minLength:       cfg.MinFactLength,
		trivialPatterns: patterns,
		logger:          logger.Named("fact-quality"),
	}
}

// Keep reports whether a single extracted fact passes the quality bar.
func (f *FactQualityFilter) Keep(fact models.ExtractedFact) bool {
	content := strings.TrimSpace(fact.Content)
	if len(content) < f.minLength {
		return false
	}
	lower := strings.ToLower(content)
	for _, pattern := range f.trivialPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

// Filter returns the facts that pass the quality bar, preserving order.
func (f *FactQualityFilter) Filter(facts []models.ExtractedFact) []models.ExtractedFact {
	kept := make([]models.ExtractedFact, 0, len(facts))
	for _, fact := range facts {
		if f.Keep(fact) {
			kept = append(kept, fact)
			continue
		}
		f.logger.Debug("Dropping low-quality fact",
			zap.String("content", fact.Content))
	}
	return kept
}
