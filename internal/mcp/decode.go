package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/harp/internal/editor"
)

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// ScopeArgs carries the editor state a caller wants relativity derived from.
type ScopeArgs struct {
	BufferPath string `json:"buffer_path,omitempty"`
	Cwd        string `json:"cwd,omitempty"`
	Language   string `json:"language,omitempty"`
}

// scope falls back to the server's working directory.
func (a ScopeArgs) scope(cwd string) editor.FixedScope {
	if a.Cwd != "" {
		cwd = a.Cwd
	}
	return editor.NewFixedScope(a.BufferPath, cwd, a.Language)
}
