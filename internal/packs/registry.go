// ABOUTME: Thread-safe registry for tool packs and their tools in the gateway.
// ABOUTME: Manages pack registration, tool lookup, and capability-based filtering.

package packs

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrToolCollision indicates a tool name already exists from another pack.
var ErrToolCollision = errors.New("tool name collision")

// ErrPackAlreadyRegistered indicates a pack with the same ID is already registered.
var ErrPackAlreadyRegistered = errors.New("pack already registered")

// Registry maintains the registered packs and their tools.
type Registry struct {
	mu       sync.RWMutex
	packIDs  map[string]struct{}
	builtins map[string]*builtinEntry // tool name -> entry
	logger   *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		packIDs:  make(map[string]struct{}),
		builtins: make(map[string]*builtinEntry),
		logger:   logger,
	}
}

// RegisterBuiltinPack registers a pack of tools that execute in-process.
// Returns ErrPackAlreadyRegistered for a repeated pack ID and ErrToolCollision
// if any tool name is already taken. Nothing is registered on error.
func (r *Registry) RegisterBuiltinPack(pack *BuiltinPack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.packIDs[pack.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPackAlreadyRegistered, pack.ID)
	}

	seen := make(map[string]struct{}, len(pack.Tools))
	for _, tool := range pack.Tools {
		name := tool.Definition.Name
		if entry, exists := r.builtins[name]; exists {
			return fmt.Errorf("%w: tool '%s' already registered by pack '%s'", ErrToolCollision, name, entry.PackID)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: tool '%s' appears twice in pack '%s'", ErrToolCollision, name, pack.ID)
		}
		seen[name] = struct{}{}
	}

	for _, tool := range pack.Tools {
		r.builtins[tool.Definition.Name] = &builtinEntry{
			Tool:   tool,
			PackID: pack.ID,
		}
	}
	r.packIDs[pack.ID] = struct{}{}

	r.logger.Info("=== PACK REGISTERED ===",
		"pack_id", pack.ID,
		"tool_count", len(pack.Tools),
		"total_tools", len(r.builtins),
	)

	return nil
}

// GetBuiltinTool returns a builtin tool by name, or nil if not found.
func (r *Registry) GetBuiltinTool(name string) *BuiltinTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.builtins[name]; ok {
		return entry.Tool
	}
	return nil
}

// IsBuiltin returns true if the tool name is registered.
func (r *Registry) IsBuiltin(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builtins[name]
	return ok
}

// BuiltinPackInfo contains information about a registered pack for display.
type BuiltinPackInfo struct {
	ID    string
	Tools []*BuiltinTool
}

// ListBuiltinPacks returns every registered pack sorted by ID, each with its
// tools sorted by name.
func (r *Registry) ListBuiltinPacks() []BuiltinPackInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	packTools := make(map[string][]*BuiltinTool, len(r.packIDs))
	for id := range r.packIDs {
		packTools[id] = nil
	}
	for _, entry := range r.builtins {
		packTools[entry.PackID] = append(packTools[entry.PackID], entry.Tool)
	}

	result := make([]BuiltinPackInfo, 0, len(packTools))
	for packID, tools := range packTools {
		sort.Slice(tools, func(i, j int) bool {
			return tools[i].Definition.Name < tools[j].Definition.Name
		})
		result = append(result, BuiltinPackInfo{ID: packID, Tools: tools})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// GetAllTools returns every tool definition sorted by name.
func (r *Registry) GetAllTools() []*ToolDefinition {
	return r.GetToolsForCapabilities(nil, true)
}

// GetToolsForCapabilities returns tools where the caller has ALL required
// capabilities, sorted by name. A tool with no required capabilities is always
// included. When all is true, capabilities are ignored.
func (r *Registry) GetToolsForCapabilities(caps []string, all bool) []*ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capSet := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		capSet[c] = struct{}{}
	}

	result := make([]*ToolDefinition, 0, len(r.builtins))
	for _, entry := range r.builtins {
		if all || hasAllCapabilities(entry.Tool.Definition.RequiredCapabilities, capSet) {
			result = append(result, entry.Tool.Definition)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// hasAllCapabilities checks if the capability set contains all required capabilities.
func hasAllCapabilities(required []string, capSet map[string]struct{}) bool {
	for _, req := range required {
		if _, has := capSet[req]; !has {
			return false
		}
	}
	return true
}

// Close clears the registry.
// This should be called during graceful shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.builtins)
	r.packIDs = make(map[string]struct{})
	r.builtins = make(map[string]*builtinEntry)

	r.logger.Info("registry closed", "tools_cleared", count)
}
