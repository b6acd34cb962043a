// ABOUTME: Retrieval tools used by the data agent
// ABOUTME: Today, week, category, tag, search, worries, and single-item lookups

package tools

import (
	"context"
	"strings"

	"github.com/2389/unwind-gateway/internal/store"
)

const todayItemsQuery = `
	SELECT
		id::text AS id,
		title,
		category,
		due_date::text AS due_date,
		due_time::text AS due_time,
		priority,
		final_priority_score::float8 AS final_priority_score,
		tags,
		status
	FROM user_today_view
	WHERE user_id = $1
	ORDER BY final_priority_score DESC
	LIMIT 50
`

const weekItemsQuery = `
	SELECT
		id::text AS id,
		title,
		category,
		due_date::text AS due_date,
		priority,
		tags,
		status
	FROM user_this_week_view
	WHERE user_id = $1
	ORDER BY
		due_date ASC,
		CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END
	LIMIT 100
`

const itemsByCategoryQuery = `
	SELECT
		i.id::text AS id,
		i.title,
		i.description,
		c.name AS category,
		i.due_date::text AS due_date,
		i.due_time::text AS due_time,
		i.priority,
		i.final_priority_score::float8 AS final_priority_score,
		COALESCE(ARRAY_AGG(it.tag ORDER BY it.tag) FILTER (WHERE it.tag IS NOT NULL), '{}') AS tags,
		i.status,
		i.created_at
	FROM items i
	JOIN categories c ON i.category_id = c.id
	LEFT JOIN item_tags it ON i.id = it.item_id
	WHERE i.user_id = $1
	  AND c.name = $2
	  AND i.status = 'pending'
	GROUP BY i.id, c.name
	ORDER BY i.final_priority_score DESC
	LIMIT 100
`

const itemsByTagsQuery = `
	SELECT
		i.id::text AS id,
		i.title,
		i.description,
		c.name AS category,
		i.due_date::text AS due_date,
		i.priority,
		i.final_priority_score::float8 AS final_priority_score,
		COALESCE(ARRAY_AGG(it.tag ORDER BY it.tag) FILTER (WHERE it.tag IS NOT NULL), '{}') AS tags,
		i.status
	FROM items i
	JOIN categories c ON i.category_id = c.id
	LEFT JOIN item_tags it ON i.id = it.item_id
	WHERE i.user_id = $1
	  AND i.id IN (
		SELECT item_id FROM item_tags WHERE tag = ANY($2::text[])
	  )
	  AND i.status = 'pending'
	GROUP BY i.id, c.name
	ORDER BY i.final_priority_score DESC
	LIMIT 100
`

const searchItemsQuery = `
	SELECT
		i.id::text AS id,
		i.title,
		i.description,
		c.name AS category,
		i.due_date::text AS due_date,
		i.priority,
		i.final_priority_score::float8 AS final_priority_score,
		COALESCE(ARRAY_AGG(it.tag ORDER BY it.tag) FILTER (WHERE it.tag IS NOT NULL), '{}') AS tags,
		i.status
	FROM items i
	JOIN categories c ON i.category_id = c.id
	LEFT JOIN item_tags it ON i.id = it.item_id
	WHERE i.user_id = $1
	  AND i.status = 'pending'
	  AND (i.title ILIKE $2 ESCAPE '\' OR i.description ILIKE $2 ESCAPE '\')
	GROUP BY i.id, c.name
	ORDER BY
		CASE WHEN i.title ILIKE $2 ESCAPE '\' THEN 1 ELSE 2 END,
		i.final_priority_score DESC
	LIMIT 50
`

const worriesQuery = `
	SELECT
		id::text AS id,
		title,
		is_worry_spiral,
		spiral_breakdown,
		priority,
		tags,
		created_at
	FROM user_worries_vault_view
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT 100
`

const itemDetailQuery = `
	SELECT
		i.id::text AS id,
		i.title,
		i.description,
		c.name AS category,
		i.due_date::text AS due_date,
		i.due_time::text AS due_time,
		i.is_all_day,
		i.deadline_confidence,
		i.priority,
		i.urgency_score::float8 AS urgency_score,
		i.importance_score::float8 AS importance_score,
		i.emotional_weight_score::float8 AS emotional_weight_score,
		i.final_priority_score::float8 AS final_priority_score,
		i.item_type,
		i.status,
		i.completed_at,
		i.is_worry_spiral,
		i.spiral_breakdown,
		i.worry_acknowledgment_text,
		i.user_notes,
		i.custom_tags,
		i.user_edited,
		COALESCE(ARRAY_AGG(it.tag ORDER BY it.tag) FILTER (WHERE it.tag IS NOT NULL), '{}') AS all_tags,
		i.blocked_by_item_id::text AS blocked_by_item_id,
		i.parent_task_id::text AS parent_task_id,
		i.created_at,
		i.updated_at
	FROM items i
	JOIN categories c ON i.category_id = c.id
	LEFT JOIN item_tags it ON i.id = it.item_id
	WHERE i.id = $1
	  AND i.user_id = $2
	GROUP BY i.id, c.name
`

// likeEscaper makes LIKE metacharacters match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// TodayItems returns pending items due today or earlier, highest priority score first.
func (t *Tools) TodayItems(ctx context.Context, tenantID string) ([]store.Row, error) {
	rows, err := t.db.FetchAll(ctx, todayItemsQuery, tenantID)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved today items", "tenant_id", tenantID, "count", len(rows))
	return rows, nil
}

// WeekItems returns pending items due within the next seven days.
func (t *Tools) WeekItems(ctx context.Context, tenantID string) ([]store.Row, error) {
	rows, err := t.db.FetchAll(ctx, weekItemsQuery, tenantID)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved week items", "tenant_id", tenantID, "count", len(rows))
	return rows, nil
}

// ItemsByCategory returns pending items in the named category.
func (t *Tools) ItemsByCategory(ctx context.Context, tenantID string, in ByCategoryInput) ([]store.Row, error) {
	if err := t.check(in); err != nil {
		return nil, err
	}
	rows, err := t.db.FetchAll(ctx, itemsByCategoryQuery, tenantID, in.Category)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved items by category",
		"tenant_id", tenantID,
		"category", in.Category,
		"count", len(rows),
	)
	return rows, nil
}

// ItemsByTags returns pending items that carry at least one of the tags.
func (t *Tools) ItemsByTags(ctx context.Context, tenantID string, in ByTagsInput) ([]store.Row, error) {
	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]bool, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	in.Tags = tags
	if err := t.check(in); err != nil {
		return nil, err
	}

	rows, err := t.db.FetchAll(ctx, itemsByTagsQuery, tenantID, in.Tags)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved items by tags",
		"tenant_id", tenantID,
		"tags", len(in.Tags),
		"count", len(rows),
	)
	return rows, nil
}

// SearchItems finds pending items whose title or description contains the
// query, ignoring case. Title matches sort before description-only matches.
func (t *Tools) SearchItems(ctx context.Context, tenantID string, in SearchInput) ([]store.Row, error) {
	in.Query = strings.TrimSpace(in.Query)
	if err := t.check(in); err != nil {
		return nil, err
	}

	pattern := "%" + likeEscaper.Replace(in.Query) + "%"
	rows, err := t.db.FetchAll(ctx, searchItemsQuery, tenantID, pattern)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("searched items", "tenant_id", tenantID, "count", len(rows))
	return rows, nil
}

// Worries returns pending items in the Worries Vault, newest first.
func (t *Tools) Worries(ctx context.Context, tenantID string) ([]store.Row, error) {
	rows, err := t.db.FetchAll(ctx, worriesQuery, tenantID)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved worries", "tenant_id", tenantID, "count", len(rows))
	return rows, nil
}

// ItemDetail returns every field of one item, or nil if the tenant has no such item.
func (t *Tools) ItemDetail(ctx context.Context, tenantID string, in ItemInput) (store.Row, error) {
	if err := t.check(in); err != nil {
		return nil, err
	}
	row, err := t.db.FetchOne(ctx, itemDetailQuery, canonicalID(in.ItemID), tenantID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		t.logger.Debug("item not found", "tenant_id", tenantID, "item_id", in.ItemID)
	}
	return row, nil
}
