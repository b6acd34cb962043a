// ABOUTME: Mutation tools available to every agent
// ABOUTME: Mark complete, change priority, and append timestamped notes

package tools

import (
	"context"
	"strings"
)

const markCompleteStmt = `
	UPDATE items
	SET
		status = 'completed',
		completed_at = NOW(),
		updated_at = NOW()
	WHERE id = $1
	  AND user_id = $2
	  AND status = 'pending'
`

const updatePriorityStmt = `
	UPDATE items
	SET
		priority = $3,
		user_edited = true,
		updated_at = NOW()
	WHERE id = $1
	  AND user_id = $2
`

const appendNoteStmt = `
	UPDATE items
	SET
		user_notes = CASE
			WHEN user_notes IS NULL OR user_notes = '' THEN $3::text
			ELSE user_notes || E'\n' || $3::text
		END,
		user_edited = true,
		updated_at = NOW()
	WHERE id = $1
	  AND user_id = $2
`

// noteTimestampLayout prefixes each appended note.
const noteTimestampLayout = "2006-01-02 15:04"

// MarkComplete transitions a pending item to completed. It reports false when
// the item does not exist, belongs to another tenant, or is not pending.
func (t *Tools) MarkComplete(ctx context.Context, tenantID string, in ItemInput) (bool, error) {
	if err := t.check(in); err != nil {
		return false, err
	}
	affected, err := t.db.Execute(ctx, markCompleteStmt, canonicalID(in.ItemID), tenantID)
	if err != nil {
		return false, err
	}
	ok := affected == 1
	t.logger.Info("mark complete", "tenant_id", tenantID, "item_id", in.ItemID, "updated", ok)
	return ok, nil
}

// UpdatePriority sets an item's priority and marks it user-edited.
func (t *Tools) UpdatePriority(ctx context.Context, tenantID string, in PriorityInput) (bool, error) {
	if err := t.check(in); err != nil {
		return false, err
	}
	affected, err := t.db.Execute(ctx, updatePriorityStmt, canonicalID(in.ItemID), tenantID, in.Priority)
	if err != nil {
		return false, err
	}
	ok := affected == 1
	t.logger.Info("update priority",
		"tenant_id", tenantID,
		"item_id", in.ItemID,
		"priority", in.Priority,
		"updated", ok,
	)
	return ok, nil
}

// AppendNote adds a "[YYYY-MM-DD HH:MM] note" line (UTC) after any existing
// notes. Earlier notes are never rewritten.
func (t *Tools) AppendNote(ctx context.Context, tenantID string, in NoteInput) (bool, error) {
	in.Note = strings.TrimSpace(in.Note)
	if err := t.check(in); err != nil {
		return false, err
	}

	entry := "[" + t.now().UTC().Format(noteTimestampLayout) + "] " + in.Note
	affected, err := t.db.Execute(ctx, appendNoteStmt, canonicalID(in.ItemID), tenantID, entry)
	if err != nil {
		return false, err
	}
	ok := affected == 1
	t.logger.Info("append note", "tenant_id", tenantID, "item_id", in.ItemID, "updated", ok)
	return ok, nil
}
