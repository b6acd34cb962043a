// ABOUTME: Tool definitions and in-process handlers for tool packs
// ABOUTME: Handlers receive the verified tenant id and raw JSON input

package packs

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidInput indicates the tool arguments were rejected before any query ran.
var ErrInvalidInput = errors.New("invalid input")

// ToolDefinition describes a tool to callers.
type ToolDefinition struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	InputSchema          json.RawMessage `json:"inputSchema"`
	RequiredCapabilities []string        `json:"requiredCapabilities,omitempty"`
}

// ToolHandler executes a tool for one tenant.
// It receives the verified tenant ID and the tool input as JSON.
// Returns the result as JSON or an error.
type ToolHandler func(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error)

// BuiltinTool represents a tool that executes in the gateway process.
type BuiltinTool struct {
	Definition *ToolDefinition
	Handler    ToolHandler
}

// BuiltinPack is a collection of built-in tools with a pack ID.
type BuiltinPack struct {
	ID    string
	Tools []*BuiltinTool
}

// builtinEntry stores a builtin tool with its pack ID for registry lookup.
type builtinEntry struct {
	Tool   *BuiltinTool
	PackID string
}
