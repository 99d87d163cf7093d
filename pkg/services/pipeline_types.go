package services

import (
	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// Observation is one unit of pipeline input: a textual rendering of what was
// observed on screen, plus provenance.
type Observation struct {
	// Text is the textual description of the observation. Required.
	Text string `json:"text"`
	// SourceRef identifies where the observation came from (session id,
	// capture id). Optional.
	SourceRef string `json:"source_ref,omitempty"`
	// ImagePath is the on-disk path of the source screenshot. Optional.
	ImagePath string `json:"image_path,omitempty"`
}

// Pipeline stage names, also used as step record names.
const (
	StageInitializing         = "initializing"
	StageAnalyzing            = "analyzing"
	StageExtractingMemories   = "extracting_memories"
	StageGeneratingEmbeddings = "generating_embeddings"
	StageSavingData           = "saving_data"
	StageExtractingEntities   = "extracting_entities"
	StageResolvingEntities    = "resolving_entities"
	StageCreatingRelations    = "creating_relations"
	StageGeneratingResponse   = "generating_response"
	StageComplete             = "complete"
	StageError                = "error"
)

// Progress is a point-in-time snapshot of a run's advancement. Fraction is
// monotone within a run and reaches 1.0 only on completion.
type Progress struct {
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message,omitempty"`
}

// ProgressObserver receives progress snapshots during a run. May be nil.
type ProgressObserver func(Progress)

// PipelineResult is the caller-facing outcome of one pipeline run.
type PipelineResult struct {
	RunID            uuid.UUID         `json:"run_id"`
	Status           models.RunStatus  `json:"status"`
	ActionKind       models.ActionKind `json:"action_kind"`
	FactsCreated     int               `json:"facts_created"`
	EntitiesCreated  int               `json:"entities_created"`
	RelationsCreated int               `json:"relations_created"`
	ResponseText     string            `json:"response_text,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
}
