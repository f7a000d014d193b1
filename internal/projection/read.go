package projection

import (
	"context"
	"database/sql"
	"fmt"
)

// Item is the flattened, read-only row view of an item as the projection
// currently materializes it. Unlike lattice.ItemState it carries no
// causality metadata — it is a snapshot for search/triage/CLI display.
type Item struct {
	ItemID      string
	Title       string
	Description string
	Kind        string
	Size        *float64
	Urgency     *float64
	ParentID    string
	Epoch       uint64
	Phase       string
	Deleted     bool

	Labels    []string
	Assignees []string
	BlockedBy []string
	RelatedTo []string
}

// ReadItem returns the projected row for id, or ok=false if no such item
// has been materialized (never created, or rebuild hasn't reached it
// yet).
func (s *Store) ReadItem(ctx context.Context, id string) (Item, bool, error) {
	item, err := scanItemRow(s.db.QueryRowContext(ctx, `
		SELECT item_id, title, description, kind, size, urgency, parent_id, epoch, phase, deleted
		FROM items WHERE item_id = ?
	`, id))
	if err == sql.ErrNoRows {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("projection: read item %q: %w", id, err)
	}
	if err := s.fillChildren(ctx, &item); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

func (s *Store) fillChildren(ctx context.Context, item *Item) error {
	var err error
	if item.Labels, err = s.stringColumn(ctx, "item_labels", "label", item.ItemID); err != nil {
		return err
	}
	if item.Assignees, err = s.stringColumn(ctx, "item_assignees", "agent", item.ItemID); err != nil {
		return err
	}
	if item.BlockedBy, err = s.stringColumn(ctx, "item_blocked_by", "blocker_id", item.ItemID); err != nil {
		return err
	}
	if item.RelatedTo, err = s.stringColumn(ctx, "item_related_to", "related_id", item.ItemID); err != nil {
		return err
	}
	return nil
}

func (s *Store) stringColumn(ctx context.Context, table, column, itemID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE item_id = ? ORDER BY %s ASC COLLATE BINARY", column, table, column), itemID)
	if err != nil {
		return nil, fmt.Errorf("projection: query %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("projection: scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanItemRow(row scannable) (Item, error) {
	var item Item
	var size, urgency sql.NullFloat64
	var deleted int
	if err := row.Scan(
		&item.ItemID, &item.Title, &item.Description, &item.Kind,
		&size, &urgency, &item.ParentID, &item.Epoch, &item.Phase, &deleted,
	); err != nil {
		return Item{}, err
	}
	if size.Valid {
		item.Size = &size.Float64
	}
	if urgency.Valid {
		item.Urgency = &urgency.Float64
	}
	item.Deleted = deleted != 0
	return item, nil
}

// ItemIterator is a lazy, restartable sequence over items matching a
// filter. Restarting means calling IterItems again with an After cursor
// set to the last ItemID seen — the iterator itself holds no state
// beyond the open rows handle.
type ItemIterator struct {
	rows *sql.Rows
	s    *Store
}

// IterItems returns an iterator over items matching filter (nil matches
// everything), starting strictly after the item ID "after" in ascending
// binary order. Callers must Close the iterator.
func (s *Store) IterItems(ctx context.Context, filter Predicate, after string) (*ItemIterator, error) {
	query, params, err := compileQuery(filter, after)
	if err != nil {
		return nil, fmt.Errorf("projection: compile filter: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("projection: iter items: %w", err)
	}
	return &ItemIterator{rows: rows, s: s}, nil
}

// Next advances the iterator. It returns ok=false once exhausted.
// Children (labels/assignees/links) are populated with a follow-up query
// per row, trading a few extra round trips for reusing the single-item
// read path rather than a second, parallel child-aggregation query.
func (it *ItemIterator) Next(ctx context.Context) (Item, bool, error) {
	if !it.rows.Next() {
		return Item{}, false, it.rows.Err()
	}
	item, err := scanItemRow(it.rows)
	if err != nil {
		return Item{}, false, fmt.Errorf("projection: scan item: %w", err)
	}
	if err := it.s.fillChildren(ctx, &item); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

// Close releases the iterator's underlying rows handle.
func (it *ItemIterator) Close() error {
	return it.rows.Close()
}
