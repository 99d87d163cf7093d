package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

func TestBuildEntityExtractionPromptNumbersFacts(t *testing.T) {
	facts := []*models.Fact{
		{Content: "User is learning Rust"},
		{Content: "User prefers dark mode"},
	}

	prompt := BuildEntityExtractionPrompt(facts)
	assert.Contains(t, prompt, "0. User is learning Rust")
	assert.Contains(t, prompt, "1. User prefers dark mode")
}

func TestBuildArbitrationPromptIncludesHardSignals(t *testing.T) {
	prompt := BuildArbitrationPrompt(
		"Apple",
		models.EntityTypeOrganization,
		"Maker of the laptop the user owns",
		[]string{"User bought a MacBook"},
		[]ArbitrationCandidate{
			{ID: "abc", Name: "Apple", Type: models.EntityTypeTopic, Score: 0.97},
		},
	)

	assert.Contains(t, prompt, "Type: organization")
	assert.Contains(t, prompt, "id: abc")
	assert.Contains(t, prompt, "similarity: 0.97")
	assert.Contains(t, prompt, "User bought a MacBook")
}

func TestBuildResponsePromptIncludesContext(t *testing.T) {
	prompt := BuildResponsePrompt("User drafts an email", []*models.Fact{
		{Content: "User prefers concise writing"},
	})
	assert.Contains(t, prompt, "User drafts an email")
	assert.Contains(t, prompt, "User prefers concise writing")

	bare := BuildResponsePrompt("User drafts an email", nil)
	assert.NotContains(t, bare, "What You Remember")
}

func TestSystemMessagesDemandJSON(t *testing.T) {
	assert.Contains(t, BuildFactExtractionSystemMessage(), `"memories"`)
	assert.Contains(t, BuildEntityExtractionSystemMessage(), `"entities"`)
	assert.Contains(t, BuildArbitrationSystemMessage(), `"is_match"`)
	assert.Contains(t, BuildClassificationSystemMessage(), "VERDICT|context")
}
