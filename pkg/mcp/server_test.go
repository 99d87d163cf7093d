package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/mcp/tools"
)

func newServerUnderTest() *Server {
	// Handshake and discovery never invoke the tool handlers, so the
	// collaborators can stay nil.
	return NewServer("1.0.0", &tools.MemoryToolDeps{Logger: zap.NewNop()})
}

func TestNewServer_Handshake(t *testing.T) {
	s := newServerUnderTest()

	result := s.MCP().HandleMessage(context.Background(), []byte(
		`{"jsonrpc":"2.0","method":"initialize","id":1,"params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`,
	))

	resultBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var response struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resultBytes, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if response.Result.ServerInfo.Name != "glimpse-engine" {
		t.Errorf("unexpected server name: %s", response.Result.ServerInfo.Name)
	}
	if response.Result.ServerInfo.Version != "1.0.0" {
		t.Errorf("unexpected server version: %s", response.Result.ServerInfo.Version)
	}
}

func TestNewServer_RegistersMemoryTools(t *testing.T) {
	s := newServerUnderTest()

	result := s.MCP().HandleMessage(context.Background(), []byte(
		`{"jsonrpc":"2.0","method":"tools/list","id":2}`,
	))

	resultBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resultBytes, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	found := make(map[string]bool)
	for _, tool := range response.Result.Tools {
		found[tool.Name] = true
	}
	for _, want := range []string{"save_memory", "search_memory", "recent_memories"} {
		if !found[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}
