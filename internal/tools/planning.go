// ABOUTME: Aggregation tools used by the planning agent
// ABOUTME: User stats, completion history by day, and pending counts by priority

package tools

import (
	"context"

	"github.com/2389/unwind-gateway/internal/store"
)

const userStatsQuery = `
	SELECT
		u.anxiety_type,
		u.max_reminders_per_day,
		u.total_items,
		u.total_dumps,
		COUNT(CASE WHEN i.status = 'completed' THEN 1 END)::int AS completed_count,
		COUNT(CASE WHEN i.status = 'pending' THEN 1 END)::int AS pending_count,
		COUNT(CASE WHEN i.status = 'archived' THEN 1 END)::int AS archived_count,
		COALESCE(ROUND(
			100.0 * COUNT(CASE WHEN i.status = 'completed' THEN 1 END) / NULLIF(COUNT(i.id), 0),
			2
		), 0)::float8 AS completion_rate_percent
	FROM users u
	LEFT JOIN items i ON u.id = i.user_id
	WHERE u.id = $1
	GROUP BY u.id
`

const completionHistoryQuery = `
	SELECT
		DATE(completed_at)::text AS date,
		COUNT(*)::int AS completed_count,
		ROUND(AVG(completion_time_minutes), 1)::float8 AS avg_time_minutes,
		COUNT(CASE WHEN user_mood_after = 'better' THEN 1 END)::int AS felt_better_count,
		COUNT(CASE WHEN user_mood_after = 'worse' THEN 1 END)::int AS felt_worse_count
	FROM completions_log
	WHERE user_id = $1
	  AND completed_at >= CURRENT_DATE - make_interval(days => $2::int)
	GROUP BY DATE(completed_at)
	ORDER BY DATE(completed_at) DESC
`

const pendingByPriorityQuery = `
	SELECT
		priority,
		COUNT(*)::int AS count
	FROM items
	WHERE user_id = $1
	  AND status = 'pending'
	GROUP BY priority
`

// UserStats returns the user's anxiety profile and item counts, or nil for an unknown user.
func (t *Tools) UserStats(ctx context.Context, tenantID string) (store.Row, error) {
	row, err := t.db.FetchOne(ctx, userStatsQuery, tenantID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		t.logger.Debug("user not found", "tenant_id", tenantID)
	}
	return row, nil
}

// CompletionHistory returns per-day completion counts for the last Days days, newest first.
func (t *Tools) CompletionHistory(ctx context.Context, tenantID string, in HistoryInput) ([]store.Row, error) {
	if in.Days == 0 {
		in.Days = DefaultHistoryDays
	}
	if err := t.check(in); err != nil {
		return nil, err
	}

	rows, err := t.db.FetchAll(ctx, completionHistoryQuery, tenantID, in.Days)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("retrieved completion history",
		"tenant_id", tenantID,
		"days", in.Days,
		"count", len(rows),
	)
	return rows, nil
}

// PendingCountByPriority counts pending items per priority. Priorities outside
// high, medium, and low are left out of every count including the total.
func (t *Tools) PendingCountByPriority(ctx context.Context, tenantID string) (PendingCounts, error) {
	rows, err := t.db.FetchAll(ctx, pendingByPriorityQuery, tenantID)
	if err != nil {
		return PendingCounts{}, err
	}

	var counts PendingCounts
	for _, row := range rows {
		priority, _ := row["priority"].(string)
		n := toInt64(row["count"])
		switch priority {
		case "high":
			counts.High = n
		case "medium":
			counts.Medium = n
		case "low":
			counts.Low = n
		default:
			continue
		}
		counts.Total += n
	}

	t.logger.Debug("counted pending items",
		"tenant_id", tenantID,
		"high", counts.High,
		"medium", counts.Medium,
		"low", counts.Low,
	)
	return counts, nil
}
