package services

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/jsonutil"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/logging"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// plainLineMinLength is the floor for the last-resort plain-text fallback.
// Shorter lines are headers, bullets, or fragments rather than facts.
const plainLineMinLength = 20

// ExtractionParser turns raw model output into typed pipeline values.
// Every method is total: malformed output produces a conservative default,
// never an error that could abort a run.
type ExtractionParser struct {
	logger *zap.Logger
}

// NewExtractionParser creates a new ExtractionParser.
func NewExtractionParser(logger *zap.Logger) *ExtractionParser {
	return &ExtractionParser{logger: logger.Named("extraction-parser")}
}

// ParseActionClassification interprets the classifier's verdict line.
// Expected shape is "VERDICT|context of the observation". Both parts are
// optional in practice; verdict detection is substring-based with
// BOTH > TAKE_ACTION > SAVE_MEMORY priority, defaulting to SAVE_MEMORY.
// Without a delimiter the whole response doubles as the context.
func (p *ExtractionParser) ParseActionClassification(text string) (models.ActionKind, string) {
	text = strings.TrimSpace(llm.StripThinking(text))

	verdictPart := text
	contextPart := text
	if idx := strings.Index(text, "|"); idx >= 0 {
		verdictPart = text[:idx]
		contextPart = strings.TrimSpace(text[idx+1:])
	}

	upper := strings.ToUpper(verdictPart)
	kind := models.ActionSaveMemory
	switch {
	case strings.Contains(upper, "BOTH"):
		kind = models.ActionBoth
	case strings.Contains(upper, "TAKE_ACTION"):
		kind = models.ActionTakeAction
	case strings.Contains(upper, "SAVE_MEMORY"):
		kind = models.ActionSaveMemory
	default:
		p.logger.Debug("Classifier verdict unrecognized, defaulting to save_memory",
			zap.String("verdict", logging.Truncate(verdictPart, logging.MaxModelOutputLogLength)))
	}

	return kind, contextPart
}

// rawFact mirrors the extraction model's fact record with tolerant fields.
type rawFact struct {
	Content        json.RawMessage `json:"content"`
	MemoryType     json.RawMessage `json:"memory_type"`
	Importance     json.RawMessage `json:"importance"`
	Context        json.RawMessage `json:"context"`
	StructuredData json.RawMessage `json:"structured_data"`
}

// ParseExtractedFacts parses the fact-extraction response through three
// tiers: a JSON object with a "memories" array, a bare JSON array, and
// finally plain text lines. An unusable response yields an empty slice.
func (p *ExtractionParser) ParseExtractedFacts(text string) []models.ExtractedFact {
	cleaned := llm.StripThinking(text)

	if span, err := llm.ExtractJSONObject(cleaned); err == nil {
		var envelope struct {
			Memories []rawFact `json:"memories"`
		}
		if err := json.Unmarshal([]byte(span), &envelope); err == nil && envelope.Memories != nil {
			return p.convertRawFacts(envelope.Memories)
		}
	}

	if span, err := llm.ExtractJSONArray(cleaned); err == nil {
		var records []rawFact
		if err := json.Unmarshal([]byte(span), &records); err == nil {
			return p.convertRawFacts(records)
		}
	}

	p.logger.Debug("Fact extraction response not JSON, falling back to plain lines",
		zap.String("response", logging.Truncate(cleaned, logging.MaxModelOutputLogLength)))
	return p.parsePlainLines(cleaned)
}

func (p *ExtractionParser) convertRawFacts(records []rawFact) []models.ExtractedFact {
	facts := make([]models.ExtractedFact, 0, len(records))
	for _, rec := range records {
		content := strings.TrimSpace(jsonutil.FlexibleStringValue(rec.Content))
		if content == "" {
			continue
		}
		fact := models.ExtractedFact{
			Content:    content,
			Kind:       models.NormalizeFactKind(jsonutil.FlexibleStringValue(rec.MemoryType)),
			Importance: models.NormalizeImportance(jsonutil.FlexibleStringValue(rec.Importance)),
			Context:    jsonutil.FlexibleStringValue(rec.Context),
		}
		if len(rec.StructuredData) > 0 && string(rec.StructuredData) != "null" {
			fact.StructuredData = rec.StructuredData
		}
		facts = append(facts, fact)
	}
	return facts
}

// parsePlainLines treats each sufficiently long non-blank line as one fact.
func (p *ExtractionParser) parsePlainLines(text string) []models.ExtractedFact {
	var facts []models.ExtractedFact
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= plainLineMinLength {
			continue
		}
		facts = append(facts, models.ExtractedFact{
			Content:    line,
			Kind:       models.FactKindFact,
			Importance: models.ImportanceMedium,
		})
	}
	return facts
}

// rawEntity mirrors the entity-extraction record with tolerant fields.
type rawEntity struct {
	Name          json.RawMessage `json:"name"`
	EntityType    json.RawMessage `json:"entity_type"`
	Description   json.RawMessage `json:"description"`
	MemoryIndices json.RawMessage `json:"memory_indices"`
}

type rawRelation struct {
	Source       json.RawMessage `json:"source"`
	Target       json.RawMessage `json:"target"`
	RelationType json.RawMessage `json:"relation_type"`
	Description  json.RawMessage `json:"description"`
}

// ParseEntityExtraction parses the batch entity-extraction response.
// Entities without a name are dropped; unknown types map to "other";
// relations missing an endpoint are dropped and a missing relation type
// defaults to "related_to". Any structural failure yields an empty result.
func (p *ExtractionParser) ParseEntityExtraction(text string) models.EntityExtraction {
	cleaned := llm.StripThinking(text)

	span, err := llm.ExtractJSONObject(cleaned)
	if err != nil {
		p.logger.Debug("Entity extraction response had no JSON object",
			zap.String("response", logging.Truncate(cleaned, logging.MaxModelOutputLogLength)))
		return models.EntityExtraction{}
	}

	var envelope struct {
		Entities      []rawEntity   `json:"entities"`
		Relationships []rawRelation `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		p.logger.Debug("Entity extraction JSON did not match expected shape",
			zap.Error(err))
		return models.EntityExtraction{}
	}

	var result models.EntityExtraction
	for _, rec := range envelope.Entities {
		name := strings.TrimSpace(jsonutil.FlexibleStringValue(rec.Name))
		if name == "" {
			continue
		}
		result.Entities = append(result.Entities, models.ExtractedEntity{
			Name:           name,
			Type:           jsonutil.FlexibleStringValue(rec.EntityType),
			Description:    jsonutil.FlexibleStringValue(rec.Description),
			MentionIndices: jsonutil.FlexibleIntSlice(rec.MemoryIndices),
		})
	}

	for _, rec := range envelope.Relationships {
		source := strings.TrimSpace(jsonutil.FlexibleStringValue(rec.Source))
		target := strings.TrimSpace(jsonutil.FlexibleStringValue(rec.Target))
		if source == "" || target == "" {
			continue
		}
		relType := strings.TrimSpace(jsonutil.FlexibleStringValue(rec.RelationType))
		if relType == "" {
			relType = models.DefaultRelationType
		}
		result.Relations = append(result.Relations, models.ExtractedRelation{
			SourceName:   source,
			TargetName:   target,
			RelationType: relType,
			Description:  jsonutil.FlexibleStringValue(rec.Description),
		})
	}

	return result
}

// ParseMatchVerdict parses the arbitration response. Any failure produces a
// conservative no-match verdict carrying diagnostic reasoning, so a noisy
// arbitration model can only ever cause a duplicate entity, never a bad merge.
func (p *ExtractionParser) ParseMatchVerdict(text string) models.MatchVerdict {
	cleaned := llm.StripThinking(text)

	span, err := llm.ExtractJSONObject(cleaned)
	if err != nil {
		return models.MatchVerdict{
			IsMatch:   false,
			Reasoning: "arbitration response contained no JSON object",
		}
	}

	var raw struct {
		IsMatch         bool            `json:"is_match"`
		MatchedEntityID json.RawMessage `json:"matched_entity_id"`
		Reasoning       json.RawMessage `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return models.MatchVerdict{
			IsMatch:   false,
			Reasoning: "arbitration response did not match expected shape",
		}
	}

	verdict := models.MatchVerdict{
		IsMatch:   raw.IsMatch,
		Reasoning: jsonutil.FlexibleStringValue(raw.Reasoning),
	}

	if verdict.IsMatch {
		idStr := strings.TrimSpace(jsonutil.FlexibleStringValue(raw.MatchedEntityID))
		id, err := uuid.Parse(idStr)
		if err != nil {
			// A match without a usable target is no match at all.
			verdict.IsMatch = false
			verdict.Reasoning = "match verdict carried an unparseable entity id"
		} else {
			verdict.TargetID = &id
		}
	}

	return verdict
}
