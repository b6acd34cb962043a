// ABOUTME: Relations and columns the tool statements depend on
// ABOUTME: Checked against the live database at startup and by check-schema

package tools

// ExpectedSchema maps each relation the tools read or write to the columns they use.
var ExpectedSchema = map[string][]string{
	"users": {
		"id", "anxiety_type", "max_reminders_per_day", "total_items", "total_dumps",
	},
	"categories": {
		"id", "name",
	},
	"items": {
		"id", "user_id", "category_id", "title", "description",
		"due_date", "due_time", "is_all_day", "deadline_confidence",
		"priority", "urgency_score", "importance_score", "emotional_weight_score", "final_priority_score",
		"item_type", "status", "completed_at", "completion_time_minutes", "user_mood_after_completion",
		"is_worry_spiral", "spiral_breakdown", "worry_acknowledgment_text",
		"user_notes", "custom_tags", "user_edited",
		"blocked_by_item_id", "parent_task_id", "created_at", "updated_at",
	},
	"item_tags": {
		"item_id", "tag",
	},
	"completions_log": {
		"user_id", "item_id", "completed_at", "completion_time_minutes",
		"user_mood_before", "user_mood_after", "was_procrastinated",
	},
	"user_today_view": {
		"id", "user_id", "title", "category", "due_date", "due_time",
		"priority", "final_priority_score", "tags", "status",
	},
	"user_this_week_view": {
		"id", "user_id", "title", "category", "due_date", "priority", "tags", "status",
	},
	"user_worries_vault_view": {
		"id", "user_id", "title", "is_worry_spiral", "spiral_breakdown", "priority", "tags", "created_at",
	},
}
