package models

import (
	"time"

	"github.com/google/uuid"
)

// RelationKind distinguishes the two edge families in the graph.
type RelationKind string

const (
	RelationKindFactEntity   RelationKind = "fact_entity"
	RelationKindEntityEntity RelationKind = "entity_entity"
)

// DefaultRelationType is used when the extraction model omits a relation type.
const DefaultRelationType = "related_to"

// Relation is a persisted edge in the knowledge graph: either a fact-to-entity
// mention link or an entity-to-entity semantic edge. Entity-to-entity
// relations must not be self-loops.
type Relation struct {
	ID             uuid.UUID    `json:"id"`
	Kind           RelationKind `json:"kind"`
	SourceEntityID uuid.UUID    `json:"source_entity_id"`
	TargetEntityID uuid.UUID    `json:"target_entity_id"`
	RelationType   string       `json:"relation_type"`
	Description    string       `json:"description,omitempty"`
	FactID         *uuid.UUID   `json:"fact_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
