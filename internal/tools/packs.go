// ABOUTME: Exposes the tools as packs with JSON schemas and JSON handlers
// ABOUTME: Capabilities map to agent groups; mutation tools need none

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/unwind-gateway/internal/packs"
	"github.com/invopop/jsonschema"
)

// Agent capabilities
const (
	CapabilityData        = "data"
	CapabilityPlanning    = "planning"
	CapabilityReassurance = "reassurance"
)

// emptySchema is the input schema of tools that take no arguments.
var emptySchema = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)

// schemaFor reflects the JSON schema of an input record.
func schemaFor[T any]() json.RawMessage {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(new(T))
	s.Version = ""
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("reflecting schema for %T: %v", *new(T), err))
	}
	return data
}

// decode unmarshals tool input. An empty body decodes to the zero value.
func decode[T any](input json.RawMessage) (T, error) {
	var in T
	if len(input) == 0 || string(input) == "null" {
		return in, nil
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return in, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return in, nil
}

// listResult wraps row lists.
func listResult(key string, rows any, count int) (json.RawMessage, error) {
	return json.Marshal(map[string]any{key: rows, "count": count})
}

// mutationResult is returned by every mutation tool.
type mutationResult struct {
	Success bool   `json:"success"`
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

func mutationResponse(ok bool, itemID, success, failure string) (json.RawMessage, error) {
	msg := success
	if !ok {
		msg = failure
	}
	return json.Marshal(mutationResult{Success: ok, ItemID: itemID, Message: msg})
}

func tool(name, description string, schema json.RawMessage, handler packs.ToolHandler, caps ...string) *packs.BuiltinTool {
	return &packs.BuiltinTool{
		Definition: &packs.ToolDefinition{
			Name:                 name,
			Description:          description,
			InputSchema:          schema,
			RequiredCapabilities: caps,
		},
		Handler: handler,
	}
}

// Packs returns the four Unwind tool packs backed by t.
func Packs(t *Tools) []*packs.BuiltinPack {
	h := &handlers{t: t}
	return []*packs.BuiltinPack{
		{
			ID: "unwind:data",
			Tools: []*packs.BuiltinTool{
				tool("get_today_items", "Get pending items due today or overdue, highest priority first",
					emptySchema, h.todayItems, CapabilityData),
				tool("get_week_items", "Get pending items due within the next seven days",
					emptySchema, h.weekItems, CapabilityData),
				tool("get_items_by_category", "Get pending items in one category",
					schemaFor[ByCategoryInput](), h.itemsByCategory, CapabilityData),
				tool("get_items_by_tags", "Get pending items that have any of the given tags",
					schemaFor[ByTagsInput](), h.itemsByTags, CapabilityData),
				tool("search_items", "Search pending item titles and descriptions, case-insensitive",
					schemaFor[SearchInput](), h.searchItems, CapabilityData),
				tool("get_worries", "Get pending items in the Worries Vault, newest first",
					emptySchema, h.worries, CapabilityData),
				tool("get_item_details", "Get every field of a single item",
					schemaFor[ItemInput](), h.itemDetail, CapabilityData),
			},
		},
		{
			ID: "unwind:planning",
			Tools: []*packs.BuiltinTool{
				tool("get_user_stats", "Get the user's anxiety profile and completion statistics",
					emptySchema, h.userStats, CapabilityPlanning),
				tool("get_completion_history", "Get completions per day over a recent window",
					schemaFor[HistoryInput](), h.completionHistory, CapabilityPlanning),
				tool("count_pending_by_priority", "Count pending items at each priority level",
					emptySchema, h.pendingCounts, CapabilityPlanning),
			},
		},
		{
			ID: "unwind:reassurance",
			Tools: []*packs.BuiltinTool{
				tool("get_spiral_items", "Get pending items flagged as worry spirals",
					emptySchema, h.spiralItems, CapabilityReassurance),
				tool("get_recent_completions", "Get recently completed items with mood context",
					schemaFor[RecentInput](), h.recentCompletions, CapabilityReassurance),
			},
		},
		{
			ID: "unwind:shared",
			Tools: []*packs.BuiltinTool{
				tool("mark_item_complete", "Mark a pending item as completed",
					schemaFor[ItemInput](), h.markComplete),
				tool("update_item_priority", "Change an item's priority",
					schemaFor[PriorityInput](), h.updatePriority),
				tool("add_note_to_item", "Append a timestamped note to an item",
					schemaFor[NoteInput](), h.appendNote),
			},
		},
	}
}

type handlers struct {
	t *Tools
}

func (h *handlers) todayItems(ctx context.Context, tenantID string, _ json.RawMessage) (json.RawMessage, error) {
	rows, err := h.t.TodayItems(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return listResult("items", rows, len(rows))
}

func (h *handlers) weekItems(ctx context.Context, tenantID string, _ json.RawMessage) (json.RawMessage, error) {
	rows, err := h.t.WeekItems(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return listResult("items", rows, len(rows))
}

func (h *handlers) itemsByCategory(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[ByCategoryInput](input)
	if err != nil {
		return nil, err
	}
	rows, err := h.t.ItemsByCategory(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return listResult("items", rows, len(rows))
}

func (h *handlers) itemsByTags(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[ByTagsInput](input)
	if err != nil {
		return nil, err
	}
	rows, err := h.t.ItemsByTags(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return listResult("items", rows, len(rows))
}

func (h *handlers) searchItems(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[SearchInput](input)
	if err != nil {
		return nil, err
	}
	rows, err := h.t.SearchItems(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return listResult("items", rows, len(rows))
}

func (h *handlers) worries(ctx context.Context, tenantID string, _ json.RawMessage) (json.RawMessage, error) {
	rows, err := h.t.Worries(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return listResult("worries", rows, len(rows))
}

func (h *handlers) itemDetail(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[ItemInput](input)
	if err != nil {
		return nil, err
	}
	row, err := h.t.ItemDetail(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"found": row != nil, "item": row})
}

func (h *handlers) userStats(ctx context.Context, tenantID string, _ json.RawMessage) (json.RawMessage, error) {
	row, err := h.t.UserStats(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"found": row != nil, "stats": row})
}

func (h *handlers) completionHistory(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[HistoryInput](input)
	if err != nil {
		return nil, err
	}
	rows, err := h.t.CompletionHistory(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return listResult("days", rows, len(rows))
}

func (h *handlers) pendingCounts(ctx context.Context, tenantID string, _ json.RawMessage) (json.RawMessage, error) {
	counts, err := h.t.PendingCountByPriority(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(counts)
}

func (h *handlers) spiralItems(ctx context.Context, tenantID string, _ json.RawMessage) (json.RawMessage, error) {
	rows, err := h.t.SpiralItems(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return listResult("items", rows, len(rows))
}

func (h *handlers) recentCompletions(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[RecentInput](input)
	if err != nil {
		return nil, err
	}
	rows, err := h.t.RecentCompletions(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return listResult("completions", rows, len(rows))
}

func (h *handlers) markComplete(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[ItemInput](input)
	if err != nil {
		return nil, err
	}
	ok, err := h.t.MarkComplete(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return mutationResponse(ok, in.ItemID, "Item marked as completed", "Item not found, not owned, or already completed")
}

func (h *handlers) updatePriority(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[PriorityInput](input)
	if err != nil {
		return nil, err
	}
	ok, err := h.t.UpdatePriority(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return mutationResponse(ok, in.ItemID, fmt.Sprintf("Priority updated to '%s'", in.Priority), "Item not found or not owned")
}

func (h *handlers) appendNote(ctx context.Context, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	in, err := decode[NoteInput](input)
	if err != nil {
		return nil, err
	}
	ok, err := h.t.AppendNote(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	return mutationResponse(ok, in.ItemID, "Note added successfully", "Item not found or not owned")
}
