package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Entity Types
// ============================================================================

// EntityType classifies a knowledge-graph node.
type EntityType string

const (
	EntityTypePerson       EntityType = "person"
	EntityTypePlace        EntityType = "place"
	EntityTypePreference   EntityType = "preference"
	EntityTypeEvent        EntityType = "event"
	EntityTypeTopic        EntityType = "topic"
	EntityTypeProject      EntityType = "project"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeOther        EntityType = "other"
)

// ValidEntityTypes contains all valid entity type values.
var ValidEntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypePlace,
	EntityTypePreference,
	EntityTypeEvent,
	EntityTypeTopic,
	EntityTypeProject,
	EntityTypeOrganization,
	EntityTypeOther,
}

// IsValidEntityType checks if the given type is valid.
func IsValidEntityType(t EntityType) bool {
	for _, v := range ValidEntityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NormalizeEntityType maps an arbitrary model-produced type string onto a
// valid EntityType, defaulting to EntityTypeOther.
func NormalizeEntityType(s string) EntityType {
	t := EntityType(s)
	if IsValidEntityType(t) {
		return t
	}
	return EntityTypeOther
}

// ============================================================================
// Entities
// ============================================================================

// Entity is a persisted node in the knowledge graph.
// The (name, type) pair is its natural key; uniqueness is enforced by the
// resolution engine within a run, not by the storage layer.
type Entity struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Description string     `json:"description,omitempty"`
	Embedding   []float32  `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ExtractedEntity is a candidate entity parsed from model output during batch
// entity extraction. MentionIndices are positions into the batch of facts the
// extraction ran over.
type ExtractedEntity struct {
	Name           string `json:"name"`
	Type           string `json:"entity_type"`
	Description    string `json:"description,omitempty"`
	MentionIndices []int  `json:"memory_indices,omitempty"`
}

// ExtractedRelation is a candidate entity-to-entity edge parsed from model
// output. Endpoints reference entity names within the same extraction batch.
type ExtractedRelation struct {
	SourceName   string `json:"source"`
	TargetName   string `json:"target"`
	RelationType string `json:"relation_type"`
	Description  string `json:"description,omitempty"`
}

// EntityExtraction is the combined result of one batch entity extraction.
type EntityExtraction struct {
	Entities  []ExtractedEntity  `json:"entities"`
	Relations []ExtractedRelation `json:"relationships"`
}

// MatchVerdict is the arbitration model's answer to "is this candidate the
// same real-world entity as one of the presented matches".
type MatchVerdict struct {
	IsMatch   bool       `json:"is_match"`
	TargetID  *uuid.UUID `json:"matched_entity_id,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`
}
