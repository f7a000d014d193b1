package projection

import (
	"context"
	"database/sql"
	"fmt"
)

// Cursor records how much of the event stream the projection has
// consumed and the frontier hash that position corresponds to.
type Cursor struct {
	Position     int
	FrontierHash string
}

// ReadCursor returns the projection's current cursor.
func (s *Store) ReadCursor(ctx context.Context) (Cursor, error) {
	var c Cursor
	err := s.db.QueryRowContext(ctx, `
		SELECT cursor, frontier_hash FROM projection_cursor WHERE id = 0
	`).Scan(&c.Position, &c.FrontierHash)
	if err != nil {
		return Cursor{}, fmt.Errorf("projection: read cursor: %w", err)
	}
	return c, nil
}

func writeCursorTx(ctx context.Context, tx *sql.Tx, cursor int, frontierHash string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE projection_cursor SET cursor = ?, frontier_hash = ?, updated_at_us = 0 WHERE id = 0
	`, cursor, frontierHash)
	if err != nil {
		return fmt.Errorf("projection: write cursor: %w", err)
	}
	return nil
}

// IsStale reports whether want does not match the cursor's recorded
// frontier hash, which indicates the on-disk log has diverged from what
// this projection was built against (e.g. a shard was truncated and
// re-sealed, or the projection file is from an unrelated repo). A stale
// cursor cannot be trusted for incremental replay and must trigger a
// full Rebuild instead.
func (c Cursor) IsStale(want string) bool {
	return c.Position > 0 && c.FrontierHash != want
}
