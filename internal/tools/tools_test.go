// ABOUTME: Unit tests for the tool functions using MockQuerier
// ABOUTME: Covers validation, defaults, tenant binding, and result shaping

package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/2389/unwind-gateway/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenant = "6f1c2a9e-1d2b-4c3d-9e8f-0a1b2c3d4e5f"
	testItem   = "0b7e1a52-3c4d-4e5f-8a9b-1c2d3e4f5a6b"
)

// newTestTools returns Tools over a fresh MockQuerier.
func newTestTools(t *testing.T) (*Tools, *store.MockQuerier) {
	t.Helper()
	mock := store.NewMockQuerier()
	return New(mock, nil), mock
}

func TestRetrievalTools_BindTenantFirst(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func(tl *Tools) error
		relation string
		wantArgs []any
	}{
		{
			name: "today",
			call: func(tl *Tools) error {
				_, err := tl.TodayItems(ctx, testTenant)
				return err
			},
			relation: "user_today_view",
			wantArgs: []any{testTenant},
		},
		{
			name: "week",
			call: func(tl *Tools) error {
				_, err := tl.WeekItems(ctx, testTenant)
				return err
			},
			relation: "user_this_week_view",
			wantArgs: []any{testTenant},
		},
		{
			name: "category",
			call: func(tl *Tools) error {
				_, err := tl.ItemsByCategory(ctx, testTenant, ByCategoryInput{Category: "Worries Vault"})
				return err
			},
			relation: "JOIN categories",
			wantArgs: []any{testTenant, "Worries Vault"},
		},
		{
			name: "worries",
			call: func(tl *Tools) error {
				_, err := tl.Worries(ctx, testTenant)
				return err
			},
			relation: "user_worries_vault_view",
			wantArgs: []any{testTenant},
		},
		{
			name: "spirals",
			call: func(tl *Tools) error {
				_, err := tl.SpiralItems(ctx, testTenant)
				return err
			},
			relation: "is_worry_spiral = true",
			wantArgs: []any{testTenant},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, mock := newTestTools(t)
			require.NoError(t, tt.call(tl))

			calls := mock.Calls()
			require.Len(t, calls, 1, "each tool runs exactly one statement")
			assert.Equal(t, "FetchAll", calls[0].Method)
			assert.Contains(t, calls[0].Statement, tt.relation)
			assert.Contains(t, calls[0].Statement, "user_id = $1")
			assert.Equal(t, tt.wantArgs, calls[0].Args)
		})
	}
}

func TestRetrievalTools_ReturnEmptyNotNil(t *testing.T) {
	tl, _ := newTestTools(t)

	rows, err := tl.TodayItems(context.Background(), testTenant)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestItemsByCategory_Validation(t *testing.T) {
	tl, mock := newTestTools(t)

	for _, category := range []string{"", "Chores", "tasks", "Worries"} {
		_, err := tl.ItemsByCategory(context.Background(), testTenant, ByCategoryInput{Category: category})
		assert.ErrorIs(t, err, ErrInvalidInput, "category %q", category)
	}
	assert.Empty(t, mock.Calls(), "invalid input must not reach the database")

	for _, category := range Categories {
		_, err := tl.ItemsByCategory(context.Background(), testTenant, ByCategoryInput{Category: category})
		assert.NoError(t, err, "category %q", category)
	}
}

func TestItemsByTags(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes tags", func(t *testing.T) {
		tl, mock := newTestTools(t)
		_, err := tl.ItemsByTags(ctx, testTenant, ByTagsInput{Tags: []string{" work ", "urgent", "work", ""}})
		require.NoError(t, err)

		call := mock.LastCall()
		assert.Contains(t, call.Statement, "tag = ANY($2::text[])")
		assert.Equal(t, []any{testTenant, []string{"work", "urgent"}}, call.Args)
	})

	t.Run("rejects empty tag list", func(t *testing.T) {
		tl, mock := newTestTools(t)
		for _, tags := range [][]string{nil, {}, {"  ", ""}} {
			_, err := tl.ItemsByTags(ctx, testTenant, ByTagsInput{Tags: tags})
			assert.ErrorIs(t, err, ErrInvalidInput)
		}
		assert.Empty(t, mock.Calls())
	})
}

func TestSearchItems(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		query   string
		pattern string
	}{
		{query: "dentist", pattern: "%dentist%"},
		{query: "  Call Mom  ", pattern: "%Call Mom%"},
		{query: "100%", pattern: `%100\%%`},
		{query: "file_name", pattern: `%file\_name%`},
		{query: `C:\temp`, pattern: `%C:\\temp%`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tl, mock := newTestTools(t)
			_, err := tl.SearchItems(ctx, testTenant, SearchInput{Query: tt.query})
			require.NoError(t, err)

			call := mock.LastCall()
			assert.Contains(t, call.Statement, "ILIKE $2 ESCAPE")
			assert.Equal(t, []any{testTenant, tt.pattern}, call.Args)
		})
	}

	t.Run("blank query", func(t *testing.T) {
		tl, mock := newTestTools(t)
		for _, q := range []string{"", "   ", "\t\n"} {
			_, err := tl.SearchItems(ctx, testTenant, SearchInput{Query: q})
			assert.ErrorIs(t, err, ErrInvalidInput)
		}
		assert.Empty(t, mock.Calls())
	})
}

func TestItemDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		tl, mock := newTestTools(t)
		mock.Row = store.Row{"id": testItem, "title": "Call dentist"}

		row, err := tl.ItemDetail(ctx, testTenant, ItemInput{ItemID: testItem})
		require.NoError(t, err)
		assert.Equal(t, "Call dentist", row["title"])

		call := mock.LastCall()
		assert.Equal(t, "FetchOne", call.Method)
		assert.Contains(t, call.Statement, "i.id = $1")
		assert.Contains(t, call.Statement, "i.user_id = $2")
		assert.Equal(t, []any{testItem, testTenant}, call.Args)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		tl, _ := newTestTools(t)
		row, err := tl.ItemDetail(ctx, testTenant, ItemInput{ItemID: testItem})
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("id is canonicalized", func(t *testing.T) {
		tl, mock := newTestTools(t)
		_, err := tl.ItemDetail(ctx, testTenant, ItemInput{ItemID: strings.ToUpper(testItem)})
		require.NoError(t, err)
		assert.Equal(t, testItem, mock.LastCall().Args[0])
	})

	t.Run("invalid id", func(t *testing.T) {
		tl, mock := newTestTools(t)
		for _, id := range []string{"", "42", "not-a-uuid", testItem + "0"} {
			_, err := tl.ItemDetail(ctx, testTenant, ItemInput{ItemID: id})
			assert.ErrorIs(t, err, ErrInvalidInput, "id %q", id)
		}
		assert.Empty(t, mock.Calls())
	})
}

func TestUserStats(t *testing.T) {
	tl, mock := newTestTools(t)

	row, err := tl.UserStats(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Nil(t, row)

	mock.Row = store.Row{"anxiety_type": "overwhelmed", "completed_count": int32(3)}
	row, err = tl.UserStats(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, "overwhelmed", row["anxiety_type"])
	assert.Contains(t, mock.LastCall().Statement, "completion_rate_percent")
}

func TestCompletionHistory_Days(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		days    int
		want    int
		wantErr bool
	}{
		{name: "default", days: 0, want: DefaultHistoryDays},
		{name: "one day", days: 1, want: 1},
		{name: "max", days: MaxHistoryDays, want: MaxHistoryDays},
		{name: "negative", days: -1, wantErr: true},
		{name: "too many", days: MaxHistoryDays + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, mock := newTestTools(t)
			_, err := tl.CompletionHistory(ctx, testTenant, HistoryInput{Days: tt.days})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Empty(t, mock.Calls())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []any{testTenant, tt.want}, mock.LastCall().Args)
		})
	}
}

func TestPendingCountByPriority(t *testing.T) {
	tl, mock := newTestTools(t)
	mock.Rows = []store.Row{
		{"priority": "high", "count": int32(2)},
		{"priority": "low", "count": int32(5)},
		{"priority": "someday", "count": int32(9)},
	}

	counts, err := tl.PendingCountByPriority(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, PendingCounts{High: 2, Medium: 0, Low: 5, Total: 7}, counts)
}

func TestPendingCountByPriority_NoItems(t *testing.T) {
	tl, _ := newTestTools(t)

	counts, err := tl.PendingCountByPriority(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, PendingCounts{}, counts)
}

func TestRecentCompletions_Limit(t *testing.T) {
	ctx := context.Background()

	tl, mock := newTestTools(t)
	_, err := tl.RecentCompletions(ctx, testTenant, RecentInput{})
	require.NoError(t, err)
	assert.Equal(t, []any{testTenant, DefaultRecentLimit}, mock.LastCall().Args)

	_, err = tl.RecentCompletions(ctx, testTenant, RecentInput{Limit: MaxRecentLimit + 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = tl.RecentCompletions(ctx, testTenant, RecentInput{Limit: -3})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMutations_AffectedRows(t *testing.T) {
	ctx := context.Background()

	run := map[string]func(tl *Tools) (bool, error){
		"mark complete": func(tl *Tools) (bool, error) {
			return tl.MarkComplete(ctx, testTenant, ItemInput{ItemID: testItem})
		},
		"update priority": func(tl *Tools) (bool, error) {
			return tl.UpdatePriority(ctx, testTenant, PriorityInput{ItemID: testItem, Priority: "high"})
		},
		"append note": func(tl *Tools) (bool, error) {
			return tl.AppendNote(ctx, testTenant, NoteInput{ItemID: testItem, Note: "called, left voicemail"})
		},
	}

	for name, fn := range run {
		t.Run(name, func(t *testing.T) {
			for affected, want := range map[int64]bool{0: false, 1: true, 2: false} {
				tl, mock := newTestTools(t)
				mock.Affected = affected

				ok, err := fn(tl)
				require.NoError(t, err)
				assert.Equal(t, want, ok, "affected=%d", affected)

				call := mock.LastCall()
				assert.Equal(t, "Execute", call.Method)
				assert.Contains(t, call.Statement, "user_id = $2")
				assert.Equal(t, testItem, call.Args[0])
				assert.Equal(t, testTenant, call.Args[1])
			}
		})
	}
}

func TestMarkComplete_OnlyPending(t *testing.T) {
	tl, mock := newTestTools(t)

	_, err := tl.MarkComplete(context.Background(), testTenant, ItemInput{ItemID: testItem})
	require.NoError(t, err)
	assert.Contains(t, mock.LastCall().Statement, "status = 'pending'")
}

func TestUpdatePriority_Validation(t *testing.T) {
	tl, mock := newTestTools(t)

	for _, p := range []string{"", "urgent", "HIGH", "Medium"} {
		_, err := tl.UpdatePriority(context.Background(), testTenant, PriorityInput{ItemID: testItem, Priority: p})
		assert.ErrorIs(t, err, ErrInvalidInput, "priority %q", p)
	}
	assert.Empty(t, mock.Calls())
}

func TestAppendNote(t *testing.T) {
	ctx := context.Background()

	t.Run("formats entry with UTC timestamp", func(t *testing.T) {
		tl, mock := newTestTools(t)
		mock.Affected = 1
		loc := time.FixedZone("EST", -5*60*60)
		tl.now = func() time.Time { return time.Date(2024, 3, 9, 22, 30, 0, 0, loc) }

		ok, err := tl.AppendNote(ctx, testTenant, NoteInput{ItemID: testItem, Note: "  feeling better about this  "})
		require.NoError(t, err)
		assert.True(t, ok)

		call := mock.LastCall()
		assert.Equal(t, "[2024-03-10 03:30] feeling better about this", call.Args[2])
		assert.Contains(t, call.Statement, `user_notes || E'\n' ||`)
	})

	t.Run("rejects blank note", func(t *testing.T) {
		tl, mock := newTestTools(t)
		for _, note := range []string{"", "   ", "\n\t"} {
			_, err := tl.AppendNote(ctx, testTenant, NoteInput{ItemID: testItem, Note: note})
			assert.ErrorIs(t, err, ErrInvalidInput)
		}
		assert.Empty(t, mock.Calls())
	})
}

func TestStoreErrorsPropagate(t *testing.T) {
	tl, mock := newTestTools(t)
	queryErr := &store.QueryError{Statement: "SELECT", Err: errors.New("connection refused")}
	mock.Err = queryErr

	_, err := tl.TodayItems(context.Background(), testTenant)
	assert.ErrorIs(t, err, queryErr)

	_, err = tl.MarkComplete(context.Background(), testTenant, ItemInput{ItemID: testItem})
	var qerr *store.QueryError
	assert.ErrorAs(t, err, &qerr)

	_, err = tl.PendingCountByPriority(context.Background(), testTenant)
	assert.ErrorAs(t, err, &qerr)
}

func TestValidationMessages(t *testing.T) {
	tl, _ := newTestTools(t)

	_, err := tl.UpdatePriority(context.Background(), testTenant, PriorityInput{ItemID: "nope", Priority: "urgent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item_id must be a UUID")
	assert.Contains(t, err.Error(), "priority must be one of: high medium low")
}

func TestExpectedSchema_CoversStatements(t *testing.T) {
	for _, relation := range []string{
		"users", "categories", "items", "item_tags", "completions_log",
		"user_today_view", "user_this_week_view", "user_worries_vault_view",
	} {
		cols, ok := ExpectedSchema[relation]
		assert.True(t, ok, "missing relation %s", relation)
		assert.NotEmpty(t, cols)
	}
}
