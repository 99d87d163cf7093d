package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Action Kinds
// ============================================================================

// ActionKind is the classifier's verdict on what an observation calls for.
type ActionKind string

const (
	ActionSaveMemory ActionKind = "save_memory"
	ActionTakeAction ActionKind = "take_action"
	ActionBoth       ActionKind = "both"
)

// WantsMemory reports whether the memory-extraction branch should run.
func (a ActionKind) WantsMemory() bool {
	return a == ActionSaveMemory || a == ActionBoth
}

// WantsAction reports whether the response-generation branch should run.
func (a ActionKind) WantsAction() bool {
	return a == ActionTakeAction || a == ActionBoth
}

// ============================================================================
// Run Status
// ============================================================================

// RunStatus represents the lifecycle state of a pipeline run record.
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusError      RunStatus = "error"
)

// IsTerminal returns true if the run status is terminal.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusError
}

// StepStatus represents the lifecycle state of one pipeline step record.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusError     StepStatus = "error"
)

// ============================================================================
// Run and Step Records
// ============================================================================

// PipelineRun is the append-only audit record for one end-to-end pipeline
// execution over a single observation. Terminal fields (CompletedAt, Status,
// counts, ErrorMessage) are filled exactly once at run end.
type PipelineRun struct {
	ID               uuid.UUID  `json:"id"`
	ObservationRef   string     `json:"observation_ref"`
	Status           RunStatus  `json:"status"`
	ActionKind       ActionKind `json:"action_kind,omitempty"`
	FactsCreated     int        `json:"facts_created"`
	EntitiesCreated  int        `json:"entities_created"`
	RelationsCreated int        `json:"relations_created"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// PipelineStep is one stage's audit record within a run. Written best-effort:
// a failure to persist a step must never abort the pipeline.
type PipelineStep struct {
	ID           uuid.UUID  `json:"id"`
	RunID        uuid.UUID  `json:"run_id"`
	Name         string     `json:"name"`
	Status       StepStatus `json:"status"`
	Details      string     `json:"details,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
