package projection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bobisme/bones/internal/dag"
)

// FrontierHash derives the staleness fingerprint stored alongside the
// cursor: the sorted frontier hashes joined with a separator no hash can
// contain. Two replayers at the same position over the same log always
// produce the same fingerprint; any divergence in the underlying shards
// changes it.
func FrontierHash(frontier []string) string {
	sorted := append([]string(nil), frontier...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// Rebuild wipes every derived table and repopulates the projection from
// scratch by reading every item state the replayer currently holds. It is
// the fallback path when the cursor is missing, corrupted, or stale
// relative to the log it is meant to describe.
func Rebuild(ctx context.Context, s *Store, r *dag.Replayer) error {
	if err := s.clearAll(ctx); err != nil {
		return fmt.Errorf("projection: rebuild clear: %w", err)
	}
	states := r.States()
	if err := s.UpsertItems(ctx, states, r.Cursor(), FrontierHash(r.Frontier())); err != nil {
		return fmt.Errorf("projection: rebuild upsert: %w", err)
	}
	return nil
}

func (s *Store) clearAll(ctx context.Context) error {
	tables := []string{
		"items_fts", "item_comments", "item_related_to",
		"item_blocked_by", "item_assignees", "item_labels", "items",
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE projection_cursor SET cursor = 0, frontier_hash = '' WHERE id = 0"); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return tx.Commit()
}
