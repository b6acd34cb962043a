// ABOUTME: Reassurance tools: worry spirals and recent wins
// ABOUTME: Gives the reassurance agent evidence from the user's own history

package tools

import (
	"context"

	"github.com/2389/unwind-gateway/internal/store"
)

const spiralItemsQuery = `
	SELECT
		id::text AS id,
		title,
		description,
		spiral_breakdown,
		worry_acknowledgment_text,
		priority,
		created_at,
		updated_at
	FROM items
	WHERE user_id = $1
	  AND is_worry_spiral = true
	  AND status = 'pending'
	ORDER BY created_at DESC
	LIMIT 50
`

const recentCompletionsQuery = `
	SELECT
		i.id::text AS id,
		i.title,
		i.completed_at,
		i.completion_time_minutes,
		i.user_mood_after_completion AS mood_after,
		c.name AS category,
		cl.user_mood_before AS mood_before,
		cl.was_procrastinated
	FROM items i
	JOIN categories c ON i.category_id = c.id
	LEFT JOIN completions_log cl ON i.id = cl.item_id
	WHERE i.user_id = $1
	  AND i.status = 'completed'
	ORDER BY i.completed_at DESC NULLS LAST
	LIMIT $2
`

// SpiralItems returns pending items flagged as worry spirals, newest first.
func (t *Tools) SpiralItems(ctx context.Context, tenantID string) ([]store.Row, error) {
	rows, err := t.db.FetchAll(ctx, spiralItemsQuery, tenantID)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved spiral items", "tenant_id", tenantID, "count", len(rows))
	return rows, nil
}

// RecentCompletions returns the most recently completed items with mood context.
func (t *Tools) RecentCompletions(ctx context.Context, tenantID string, in RecentInput) ([]store.Row, error) {
	if in.Limit == 0 {
		in.Limit = DefaultRecentLimit
	}
	if err := t.check(in); err != nil {
		return nil, err
	}

	rows, err := t.db.FetchAll(ctx, recentCompletionsQuery, tenantID, in.Limit)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved recent completions", "tenant_id", tenantID, "count", len(rows))
	return rows, nil
}
