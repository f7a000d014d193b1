package projection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bobisme/bones/internal/lattice"
)

// UpsertItems writes the given item states into the projection and
// advances the cursor, all inside a single transaction. A crash before
// commit leaves the previous cursor and rows intact; a crash after commit
// leaves both consistent with each other, which is the invariant Apply
// relies on to avoid ever re-deriving rows from an already-seen event.
func (s *Store) UpsertItems(ctx context.Context, states map[string]lattice.ItemState, cursor int, frontierHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("projection: begin upsert: %w", err)
	}
	defer tx.Rollback()

	for itemID, state := range states {
		if err := upsertItemTx(ctx, tx, itemID, state); err != nil {
			return fmt.Errorf("projection: upsert %q: %w", itemID, err)
		}
	}

	if err := writeCursorTx(ctx, tx, cursor, frontierHash); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("projection: commit upsert: %w", err)
	}
	return nil
}

func upsertItemTx(ctx context.Context, tx *sql.Tx, itemID string, state lattice.ItemState) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items (item_id, title, description, kind, size, urgency, parent_id, epoch, phase, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			kind = excluded.kind,
			size = excluded.size,
			urgency = excluded.urgency,
			parent_id = excluded.parent_id,
			epoch = excluded.epoch,
			phase = excluded.phase,
			deleted = excluded.deleted
	`,
		itemID,
		state.Title.Value,
		state.Description.Value,
		state.Kind.Value,
		nullableFloat(state.Size),
		nullableFloat(state.Urgency),
		state.Parent.Value,
		state.Status.Epoch,
		string(state.Status.Phase),
		boolToInt(state.IsDeleted()),
	)
	if err != nil {
		return fmt.Errorf("upsert item row: %w", err)
	}

	if err := replaceSet(ctx, tx, "item_labels", "label", itemID, state.Labels.Values()); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "item_assignees", "agent", itemID, state.Assignees.Values()); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "item_blocked_by", "blocker_id", itemID, state.BlockedBy.Values()); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "item_related_to", "related_id", itemID, state.RelatedTo.Values()); err != nil {
		return err
	}
	if err := replaceComments(ctx, tx, itemID, state.Comments.Ordered()); err != nil {
		return err
	}
	if err := replaceFTS(ctx, tx, itemID, state); err != nil {
		return err
	}
	return nil
}

// replaceSet rewrites a child table's rows for itemID wholesale. OR-sets
// carry their full current membership, so a delete-then-reinsert is
// simpler than diffing and costs nothing extra since the projection is
// derived data, never a source of truth.
func replaceSet(ctx context.Context, tx *sql.Tx, table, column, itemID string, values []string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE item_id = ?", table), itemID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (item_id, %s) VALUES (?, ?)", table, column)
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, stmt, itemID, v); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func replaceComments(ctx context.Context, tx *sql.Tx, itemID string, comments []lattice.Comment) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_comments WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clear comments: %w", err)
	}
	for _, c := range comments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO item_comments (event_hash, item_id, wall_ts_us, agent, body, redacted)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.EventHash, itemID, c.WallTSUs, c.Agent, c.Body, boolToInt(c.Redacted))
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
	}
	return nil
}

// replaceFTS rewrites the full-text row for itemID. Redacted comment
// bodies never appear here since the lattice already replaced them with
// "[redacted]" before this sees them.
func replaceFTS(ctx context.Context, tx *sql.Tx, itemID string, state lattice.ItemState) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM items_fts WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clear fts: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items_fts (item_id, title, description, labels)
		VALUES (?, ?, ?, ?)
	`, itemID, state.Title.Value, state.Description.Value, strings.Join(state.Labels.Values(), " "))
	if err != nil {
		return fmt.Errorf("insert fts: %w", err)
	}
	return nil
}

func nullableFloat(r lattice.Register[float64]) any {
	if !r.Set {
		return nil
	}
	return r.Value
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
