// Package prompts builds the prompt and system-message pairs for every LLM
// call the extraction pipeline makes.
package prompts

import (
	"fmt"
	"strings"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// ============================================================================
// Action Classification
// ============================================================================

// BuildClassificationSystemMessage returns the system message for classifying
// an observation's intent.
func BuildClassificationSystemMessage() string {
	return `You are an intent classifier for a personal memory assistant.
Given the text content derived from the user's screen, decide what the assistant should do.

Respond with exactly one line in the format:
VERDICT|context

VERDICT is one of:
- SAVE_MEMORY: the content carries durable personal information worth remembering
- TAKE_ACTION: the content calls for an assistant response (a question, a draft, a decision to support)
- BOTH: the content warrants both remembering and responding

The context after the delimiter is a one-sentence description of what is on screen.
No markdown, no explanations beyond the single line.`
}

// BuildClassificationPrompt creates the classification prompt for one
// observation's derived text.
func BuildClassificationPrompt(observationText string) string {
	var sb strings.Builder
	sb.WriteString("Classify the following screen content:\n\n")
	sb.WriteString(observationText)
	return sb.String()
}

// ============================================================================
// Fact Extraction
// ============================================================================

// BuildFactExtractionSystemMessage returns the system message for extracting
// durable facts from an observation.
func BuildFactExtractionSystemMessage() string {
	return `You extract durable personal facts from screen content for a long-term memory store.

Extract only information that will still matter in a week: facts about the user,
their preferences, insights, events, and decisions. Ignore ephemeral UI state,
notifications, and anything that merely describes what is visible right now.

Respond ONLY with a JSON object of the form:
{
  "memories": [
    {
      "content": "Complete sentence stating the fact",
      "memory_type": "fact" | "preference" | "insight" | "event" | "decision",
      "importance": "low" | "medium" | "high",
      "context": "Optional: where this was seen",
      "structured_data": { }
    }
  ]
}

Return an empty memories array when nothing durable is present. No markdown.`
}

// BuildFactExtractionPrompt creates the extraction prompt for one observation.
func BuildFactExtractionPrompt(observationText string) string {
	var sb strings.Builder
	sb.WriteString("Extract durable personal facts from this screen content:\n\n")
	sb.WriteString(observationText)
	return sb.String()
}

// ============================================================================
// Batch Entity Extraction
// ============================================================================

// BuildEntityExtractionSystemMessage returns the system message for extracting
// entities and relations from a batch of saved facts.
func BuildEntityExtractionSystemMessage() string {
	return `You extract knowledge-graph entities and relationships from a numbered list of facts.

Entity types: person, place, preference, event, topic, project, organization, other.

Respond ONLY with a JSON object of the form:
{
  "entities": [
    {
      "name": "Canonical entity name",
      "entity_type": "person",
      "description": "One sentence about the entity",
      "memory_indices": [0, 2]
    }
  ],
  "relationships": [
    {
      "source": "Entity name",
      "target": "Other entity name",
      "relation_type": "works_at",
      "description": "Optional detail"
    }
  ]
}

memory_indices are the zero-based indices of the facts that mention the entity.
Only relate entities that appear in the entities array. No markdown.`
}

// BuildEntityExtractionPrompt creates the batch extraction prompt over the
// facts saved in this run, numbered so mention indices line up.
func BuildEntityExtractionPrompt(facts []*models.Fact) string {
	var sb strings.Builder
	sb.WriteString("Extract entities and relationships from these facts:\n\n")
	for i, f := range facts {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i, f.Content))
	}
	return sb.String()
}

// ============================================================================
// Entity Match Arbitration
// ============================================================================

// ArbitrationCandidate describes one existing entity presented to the
// arbitration model.
type ArbitrationCandidate struct {
	ID          string
	Name        string
	Type        models.EntityType
	Description string
	Score       float64
}

// BuildArbitrationSystemMessage returns the system message for the binary
// entity-match verdict. The instructions are deliberately conservative:
// a wrongful merge corrupts the graph, a duplicate entity merely clutters it.
func BuildArbitrationSystemMessage() string {
	return `You decide whether a newly extracted entity is the same real-world thing as one of the existing entities listed.

Rules:
- Match only when you are confident they refer to the same real-world entity.
- The declared type is a hard signal: never match entities of different types.
- Similar names alone are not sufficient. When in doubt, answer no match.

Respond ONLY with a JSON object:
{
  "is_match": true | false,
  "matched_entity_id": "id of the matched candidate, only when is_match is true",
  "reasoning": "One sentence"
}`
}

// BuildArbitrationPrompt creates the arbitration prompt for one candidate
// entity against its vector-similar existing entities. factContext carries up
// to a few of the facts that mention the new entity; may be empty.
func BuildArbitrationPrompt(name string, entityType models.EntityType, description string, factContext []string, candidates []ArbitrationCandidate) string {
	var sb strings.Builder

	sb.WriteString("## New Entity\n")
	sb.WriteString(fmt.Sprintf("Name: %s\nType: %s\n", name, entityType))
	if description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", description))
	}

	if len(factContext) > 0 {
		sb.WriteString("\n## Mentioned In\n")
		for _, fc := range factContext {
			sb.WriteString(fmt.Sprintf("- %s\n", fc))
		}
	}

	sb.WriteString("\n## Existing Entities\n")
	for _, c := range candidates {
		sb.WriteString(fmt.Sprintf("- id: %s | name: %s | type: %s | similarity: %.2f\n", c.ID, c.Name, c.Type, c.Score))
		if c.Description != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", c.Description))
		}
	}

	sb.WriteString("\nIs the new entity the same as one of the existing entities?")
	return sb.String()
}

// ============================================================================
// Observation Description
// ============================================================================

// BuildDescriptionSystemMessage returns the system message for summarizing an
// observation before response generation.
func BuildDescriptionSystemMessage() string {
	return `Summarize the given screen content in two or three sentences.
Focus on what the user is doing and what they might need. Plain text only.`
}

// BuildDescriptionPrompt creates the description prompt for one observation.
func BuildDescriptionPrompt(observationText string) string {
	return "Screen content:\n\n" + observationText
}

// ============================================================================
// Response Generation
// ============================================================================

// BuildResponseSystemMessage returns the system message for generating the
// grounded assistant reply.
func BuildResponseSystemMessage() string {
	return `You are a personal assistant with access to the user's remembered facts.
Write a helpful, concise response to the current situation. Use the provided
facts when relevant; never invent facts about the user. Plain text only.`
}

// BuildResponsePrompt creates the generation prompt from the situation
// description and the grounding facts selected for it.
func BuildResponsePrompt(description string, contextFacts []*models.Fact) string {
	var sb strings.Builder

	sb.WriteString("## Current Situation\n")
	sb.WriteString(description)
	sb.WriteString("\n")

	if len(contextFacts) > 0 {
		sb.WriteString("\n## What You Remember\n")
		for _, f := range contextFacts {
			sb.WriteString(fmt.Sprintf("- %s\n", f.Content))
		}
	}

	sb.WriteString("\nRespond to the situation.")
	return sb.String()
}
