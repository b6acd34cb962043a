// Package packs provides the tool pack system that exposes tools to agents.
//
// # Overview
//
// Tool packs are collections of related tools. Each tool has a definition
// (name, description, JSON input schema, required capabilities) and an
// in-process handler that receives the verified tenant id and raw JSON input.
//
// # Architecture
//
//   - Registry: Tracks registered packs and their tools
//   - Router: Dispatches tool calls with a timeout, logging, and metrics
//   - Packs: Built by the tools package (see tools.Packs)
//
// The Unwind packs are:
//
//	unwind:data        - Retrieval tools (requires "data")
//	unwind:planning    - Aggregation tools (requires "planning")
//	unwind:reassurance - Spiral and recent-win tools (requires "reassurance")
//	unwind:shared      - Mutation tools (no capability required)
//
// Tool names are globally unique; registering a pack whose tool name is
// already taken fails with ErrToolCollision.
//
// # Capabilities
//
// GetToolsForCapabilities returns the tools an agent may call given its
// capabilities. A tool with no required capabilities is visible to every agent.
//
// # Usage
//
//	registry := packs.NewRegistry(logger)
//	for _, p := range tools.Packs(t) {
//		if err := registry.RegisterBuiltinPack(p); err != nil { ... }
//	}
//	router := packs.NewRouter(packs.RouterConfig{Registry: registry, Logger: logger})
//	result, err := router.RouteToolCall(ctx, "get_today_items", tenantID, input)
package packs
