// Package tools provides MCP tool implementations for glimpse-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

// MemoryToolDeps contains dependencies for memory tools.
type MemoryToolDeps struct {
	Orchestrator   services.PipelineOrchestrator
	ContextService services.ResponseContextService
	FactRepo       repositories.FactRepository
	Logger         *zap.Logger
}

// RegisterMemoryTools registers the memory MCP tools.
func RegisterMemoryTools(s *server.MCPServer, deps *MemoryToolDeps) {
	registerSaveMemoryTool(s, deps)
	registerSearchMemoryTool(s, deps)
	registerRecentMemoriesTool(s, deps)
}

// registerSaveMemoryTool adds the save_memory tool, which runs an observation
// through the full extraction pipeline.
func registerSaveMemoryTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"save_memory",
		mcp.WithDescription(
			"Process an observation through the memory pipeline. Extracts durable "+
				"facts, resolves the entities they mention against the knowledge graph, "+
				"and links facts to entities. Returns counts of facts, entities, and "+
				"relations created, plus a generated response when the observation "+
				"calls for one.",
		),
		mcp.WithString(
			"text",
			mcp.Required(),
			mcp.Description("The observation text to process"),
		),
		mcp.WithString(
			"source_ref",
			mcp.Description("Optional reference to the observation source (e.g., a screenshot ID)"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return nil, err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return NewErrorResult("invalid_parameters", "text parameter cannot be empty"), nil
		}

		obs := services.Observation{Text: text}
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if ref, ok := args["source_ref"].(string); ok {
				obs.SourceRef = ref
			}
		}

		result, err := deps.Orchestrator.Process(ctx, obs, nil, nil)
		if err != nil {
			deps.Logger.Warn("save_memory pipeline failed", zap.Error(err))
			if result != nil {
				return NewErrorResult("pipeline_failed", result.ErrorMessage), nil
			}
			return nil, fmt.Errorf("failed to process observation: %w", err)
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// memorySearchResult contains ranked facts for a search query.
type memorySearchResult struct {
	Query      string         `json:"query"`
	Memories   []scoredMemory `json:"memories"`
	TotalCount int            `json:"total_count"`
}

type scoredMemory struct {
	Fact  *models.Fact `json:"fact"`
	Score float64      `json:"score"`
}

// registerSearchMemoryTool adds the search_memory tool for similarity search
// over stored facts.
func registerSearchMemoryTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"search_memory",
		mcp.WithDescription(
			"Search stored memories by semantic similarity. Embeds the query and "+
				"ranks facts by cosine similarity, most relevant first. "+
				"Example: search_memory(query='meeting schedule') returns facts "+
				"about meetings and scheduling.",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Search query text"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of results to return (default 5, max 50)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}

		query = strings.TrimSpace(query)
		if query == "" {
			return NewErrorResult("invalid_parameters", "query parameter cannot be empty"), nil
		}

		limit := 0 // 0 lets the service apply its configured default
		if limitVal, ok := req.Params.Arguments.(map[string]any)["limit"]; ok {
			if limitFloat, ok := limitVal.(float64); ok {
				limit = int(limitFloat)
			}
		}
		if limit > 50 {
			limit = 50
		}

		scored, err := deps.ContextService.Search(ctx, query, limit, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to search memories: %w", err)
		}

		result := memorySearchResult{
			Query:    query,
			Memories: []scoredMemory{},
		}
		for _, s := range scored {
			result.Memories = append(result.Memories, scoredMemory{Fact: s.Fact, Score: s.Score})
		}
		result.TotalCount = len(result.Memories)

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// recentMemoriesResult contains the most recently stored facts.
type recentMemoriesResult struct {
	Memories   []*models.Fact `json:"memories"`
	TotalCount int            `json:"total_count"`
}

// registerRecentMemoriesTool adds the recent_memories tool.
func registerRecentMemoriesTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"recent_memories",
		mcp.WithDescription("Returns the most recently stored memories, newest first."),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of memories to return (default 10, max 50)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 10
		if limitVal, ok := req.Params.Arguments.(map[string]any)["limit"]; ok {
			if limitFloat, ok := limitVal.(float64); ok {
				limit = int(limitFloat)
			}
		}
		if limit < 1 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		facts, err := deps.FactRepo.ListRecent(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list memories: %w", err)
		}

		result := recentMemoriesResult{Memories: facts, TotalCount: len(facts)}
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
