// Package models contains domain types for glimpse-engine.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Fact Kinds
// ============================================================================

// FactKind classifies what sort of knowledge a fact carries.
type FactKind string

const (
	FactKindFact       FactKind = "fact"
	FactKindPreference FactKind = "preference"
	FactKindInsight    FactKind = "insight"
	FactKindEvent      FactKind = "event"
	FactKindDecision   FactKind = "decision"
)

// ValidFactKinds contains all valid fact kind values.
var ValidFactKinds = []FactKind{
	FactKindFact,
	FactKindPreference,
	FactKindInsight,
	FactKindEvent,
	FactKindDecision,
}

// IsValidFactKind checks if the given kind is valid.
func IsValidFactKind(k FactKind) bool {
	for _, v := range ValidFactKinds {
		if v == k {
			return true
		}
	}
	return false
}

// NormalizeFactKind maps an arbitrary model-produced kind string onto a valid
// FactKind, defaulting to FactKindFact for anything unrecognized.
func NormalizeFactKind(s string) FactKind {
	k := FactKind(s)
	if IsValidFactKind(k) {
		return k
	}
	return FactKindFact
}

// ============================================================================
// Importance
// ============================================================================

// Importance is the extraction model's estimate of how durable a fact is.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// NormalizeImportance maps an arbitrary string onto a valid Importance,
// defaulting to medium.
func NormalizeImportance(s string) Importance {
	switch Importance(s) {
	case ImportanceLow:
		return ImportanceLow
	case ImportanceHigh:
		return ImportanceHigh
	default:
		return ImportanceMedium
	}
}

// ============================================================================
// Facts
// ============================================================================

// ExtractedFact is a candidate fact parsed from raw model output.
// It has not been embedded or persisted yet.
type ExtractedFact struct {
	Content        string          `json:"content"`
	Kind           FactKind        `json:"memory_type"`
	Importance     Importance      `json:"importance"`
	Context        string          `json:"context,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
}

// Fact is a persisted, embedded unit of extracted knowledge.
// Immutable after creation except for deletion.
type Fact struct {
	ID              uuid.UUID       `json:"id"`
	Content         string          `json:"content"`
	Kind            FactKind        `json:"kind"`
	Importance      Importance      `json:"importance"`
	Context         string          `json:"context,omitempty"`
	StructuredData  json.RawMessage `json:"structured_data,omitempty"`
	Embedding       []float32       `json:"-"`
	SourceRef       string          `json:"source_ref,omitempty"`
	SourceImagePath string          `json:"source_image_path,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
