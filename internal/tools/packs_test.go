// ABOUTME: Tests for the tool pack definitions and JSON handlers
// ABOUTME: Checks schemas, capability wiring, result shapes, and input decoding

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/2389/unwind-gateway/internal/packs"
	"github.com/2389/unwind-gateway/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findTool returns the named tool from the packs or fails the test.
func findTool(t *testing.T, all []*packs.BuiltinPack, name string) *packs.BuiltinTool {
	t.Helper()
	for _, p := range all {
		for _, tl := range p.Tools {
			if tl.Definition.Name == name {
				return tl
			}
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

func decodeObject(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestPacks_Layout(t *testing.T) {
	tl, _ := newTestTools(t)
	all := Packs(tl)

	want := map[string]struct {
		tools []string
		cap   string
	}{
		"unwind:data": {
			tools: []string{
				"get_today_items", "get_week_items", "get_items_by_category", "get_items_by_tags",
				"search_items", "get_worries", "get_item_details",
			},
			cap: CapabilityData,
		},
		"unwind:planning": {
			tools: []string{"get_user_stats", "get_completion_history", "count_pending_by_priority"},
			cap:   CapabilityPlanning,
		},
		"unwind:reassurance": {
			tools: []string{"get_spiral_items", "get_recent_completions"},
			cap:   CapabilityReassurance,
		},
		"unwind:shared": {
			tools: []string{"mark_item_complete", "update_item_priority", "add_note_to_item"},
		},
	}

	require.Len(t, all, len(want))
	for _, p := range all {
		expected, ok := want[p.ID]
		require.True(t, ok, "unexpected pack %s", p.ID)

		var names []string
		for _, tool := range p.Tools {
			names = append(names, tool.Definition.Name)
			assert.NotEmpty(t, tool.Definition.Description)
			assert.NotNil(t, tool.Handler)
			if expected.cap == "" {
				assert.Empty(t, tool.Definition.RequiredCapabilities, "%s should need no capability", tool.Definition.Name)
			} else {
				assert.Equal(t, []string{expected.cap}, tool.Definition.RequiredCapabilities)
			}
		}
		assert.Equal(t, expected.tools, names)
	}
}

func TestPacks_RegisterWithoutCollisions(t *testing.T) {
	tl, _ := newTestTools(t)
	reg := packs.NewRegistry(nil)
	for _, p := range Packs(tl) {
		require.NoError(t, reg.RegisterBuiltinPack(p))
	}
	assert.Len(t, reg.GetAllTools(), 15)

	planning := reg.GetToolsForCapabilities([]string{CapabilityPlanning}, false)
	var names []string
	for _, def := range planning {
		names = append(names, def.Name)
	}
	assert.Contains(t, names, "get_user_stats")
	assert.Contains(t, names, "mark_item_complete", "shared tools are available to every agent")
	assert.NotContains(t, names, "get_today_items")
}

func TestPacks_InputSchemas(t *testing.T) {
	tl, _ := newTestTools(t)
	all := Packs(tl)

	t.Run("no-argument tools", func(t *testing.T) {
		for _, name := range []string{"get_today_items", "get_worries", "get_user_stats", "count_pending_by_priority"} {
			schema := decodeObject(t, findTool(t, all, name).Definition.InputSchema)
			assert.Equal(t, "object", schema["type"], name)
			assert.Empty(t, schema["properties"], name)
		}
	})

	t.Run("category enum", func(t *testing.T) {
		schema := decodeObject(t, findTool(t, all, "get_items_by_category").Definition.InputSchema)
		assert.Equal(t, "object", schema["type"])
		assert.NotContains(t, schema, "$schema")
		assert.NotContains(t, schema, "$ref")
		assert.Equal(t, []any{"category"}, schema["required"])

		props := schema["properties"].(map[string]any)
		category := props["category"].(map[string]any)
		assert.Equal(t, "string", category["type"])
		assert.Len(t, category["enum"], len(Categories))
		assert.Contains(t, category["enum"], "Worries Vault")
	})

	t.Run("optional fields are not required", func(t *testing.T) {
		schema := decodeObject(t, findTool(t, all, "get_completion_history").Definition.InputSchema)
		assert.NotContains(t, schema, "required")
		days := schema["properties"].(map[string]any)["days"].(map[string]any)
		assert.Equal(t, "integer", days["type"])
		assert.EqualValues(t, 365, days["maximum"])
	})

	t.Run("mutation inputs", func(t *testing.T) {
		schema := decodeObject(t, findTool(t, all, "update_item_priority").Definition.InputSchema)
		assert.ElementsMatch(t, []any{"item_id", "priority"}, schema["required"])
		assert.Equal(t, false, schema["additionalProperties"])
	})
}

func TestHandlers_ResultShapes(t *testing.T) {
	ctx := context.Background()
	itemInput := json.RawMessage(`{"item_id":"` + testItem + `"}`)

	tests := []struct {
		name  string
		tool  string
		input json.RawMessage
		setup func(m *store.MockQuerier)
		check func(t *testing.T, out map[string]any)
	}{
		{
			name: "list result",
			tool: "get_today_items",
			setup: func(m *store.MockQuerier) {
				m.Rows = []store.Row{{"title": "a"}, {"title": "b"}}
			},
			check: func(t *testing.T, out map[string]any) {
				assert.EqualValues(t, 2, out["count"])
				assert.Len(t, out["items"], 2)
			},
		},
		{
			name: "empty list is an array",
			tool: "get_spiral_items",
			check: func(t *testing.T, out map[string]any) {
				assert.EqualValues(t, 0, out["count"])
				assert.Equal(t, []any{}, out["items"])
			},
		},
		{
			name: "worries key",
			tool: "get_worries",
			check: func(t *testing.T, out map[string]any) {
				assert.Contains(t, out, "worries")
			},
		},
		{
			name:  "history key",
			tool:  "get_completion_history",
			input: json.RawMessage(`{"days":30}`),
			check: func(t *testing.T, out map[string]any) {
				assert.Contains(t, out, "days")
			},
		},
		{
			name: "completions key",
			tool: "get_recent_completions",
			check: func(t *testing.T, out map[string]any) {
				assert.Contains(t, out, "completions")
			},
		},
		{
			name:  "item not found",
			tool:  "get_item_details",
			input: itemInput,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, false, out["found"])
				assert.Nil(t, out["item"])
			},
		},
		{
			name:  "item found",
			tool:  "get_item_details",
			input: itemInput,
			setup: func(m *store.MockQuerier) {
				m.Row = store.Row{"title": "Call dentist"}
			},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, true, out["found"])
				assert.Equal(t, "Call dentist", out["item"].(map[string]any)["title"])
			},
		},
		{
			name: "stats",
			tool: "get_user_stats",
			setup: func(m *store.MockQuerier) {
				m.Row = store.Row{"anxiety_type": "overwhelmed"}
			},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, true, out["found"])
				assert.Equal(t, "overwhelmed", out["stats"].(map[string]any)["anxiety_type"])
			},
		},
		{
			name: "pending counts",
			tool: "count_pending_by_priority",
			setup: func(m *store.MockQuerier) {
				m.Rows = []store.Row{{"priority": "medium", "count": int64(4)}}
			},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, map[string]any{"high": 0.0, "medium": 4.0, "low": 0.0, "total": 4.0}, out)
			},
		},
		{
			name:  "mutation success",
			tool:  "update_item_priority",
			input: json.RawMessage(`{"item_id":"` + testItem + `","priority":"low"}`),
			setup: func(m *store.MockQuerier) { m.Affected = 1 },
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, true, out["success"])
				assert.Equal(t, testItem, out["item_id"])
				assert.Equal(t, "Priority updated to 'low'", out["message"])
			},
		},
		{
			name:  "mutation miss",
			tool:  "mark_item_complete",
			input: itemInput,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, false, out["success"])
				assert.Equal(t, testItem, out["item_id"])
				assert.NotEmpty(t, out["message"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, mock := newTestTools(t)
			if tt.setup != nil {
				tt.setup(mock)
			}
			tool := findTool(t, Packs(tl), tt.tool)

			raw, err := tool.Handler(ctx, testTenant, tt.input)
			require.NoError(t, err)
			tt.check(t, decodeObject(t, raw))
		})
	}
}

func TestHandlers_TenantComesFromCaller(t *testing.T) {
	tl, mock := newTestTools(t)
	tool := findTool(t, Packs(tl), "get_today_items")

	// A tenant smuggled into the arguments is ignored.
	_, err := tool.Handler(context.Background(), testTenant, json.RawMessage(`{"user_id":"someone-else"}`))
	require.NoError(t, err)
	assert.Equal(t, []any{testTenant}, mock.LastCall().Args)
}

func TestHandlers_InvalidInput(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		tool  string
		input string
	}{
		{tool: "get_items_by_category", input: `{"category":"Chores"}`},
		{tool: "get_items_by_category", input: `{"category":7}`},
		{tool: "get_items_by_category", input: `not json`},
		{tool: "get_items_by_tags", input: `{"tags":[]}`},
		{tool: "search_items", input: `{}`},
		{tool: "get_item_details", input: `{"item_id":"abc"}`},
		{tool: "get_completion_history", input: `{"days":400}`},
		{tool: "get_recent_completions", input: `{"limit":"five"}`},
		{tool: "update_item_priority", input: `{"item_id":"` + testItem + `","priority":"urgent"}`},
		{tool: "add_note_to_item", input: `{"item_id":"` + testItem + `","note":"   "}`},
		{tool: "mark_item_complete", input: ``},
	}

	for _, tt := range tests {
		t.Run(tt.tool+" "+tt.input, func(t *testing.T) {
			tl, mock := newTestTools(t)
			tool := findTool(t, Packs(tl), tt.tool)

			_, err := tool.Handler(ctx, testTenant, json.RawMessage(tt.input))
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, mock.Calls())
		})
	}
}

func TestDecode(t *testing.T) {
	in, err := decode[HistoryInput](nil)
	require.NoError(t, err)
	assert.Zero(t, in.Days)

	in, err = decode[HistoryInput](json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Zero(t, in.Days)

	in, err = decode[HistoryInput](json.RawMessage(`{"days":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, in.Days)

	_, err = decode[HistoryInput](json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
