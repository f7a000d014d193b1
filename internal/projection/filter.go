package projection

import (
	"fmt"
	"strings"
)

// Predicate is a filter condition for iter_items. It is a sealed
// interface — only types in this package implement it — so the compiler
// below can switch over them exhaustively.
//
// The portable fragment deliberately excludes OR and subqueries beyond
// the membership checks below: every predicate here compiles to a single
// parameterized SQL fragment, never string-interpolated values.
type Predicate interface {
	predicateNode()
}

// FieldEquals matches an items-table column against a literal value.
type FieldEquals struct {
	Field string
	Value any
}

func (FieldEquals) predicateNode() {}

// KindIs matches items.kind.
type KindIs struct{ Kind string }

func (KindIs) predicateNode() {}

// PhaseIs matches items.phase.
type PhaseIs struct{ Phase string }

func (PhaseIs) predicateNode() {}

// ParentIs matches items.parent_id.
type ParentIs struct{ ParentID string }

func (ParentIs) predicateNode() {}

// ExcludeDeleted filters out soft-deleted items. It has no fields since
// it is always the same check; most callers will include it.
type ExcludeDeleted struct{}

func (ExcludeDeleted) predicateNode() {}

// LabelIs matches items carrying a given label.
type LabelIs struct{ Label string }

func (LabelIs) predicateNode() {}

// AssigneeIs matches items assigned to a given agent.
type AssigneeIs struct{ Agent string }

func (AssigneeIs) predicateNode() {}

// TextMatch matches the full-text index over title/description/labels.
// Query uses FTS5 MATCH syntax.
type TextMatch struct{ Query string }

func (TextMatch) predicateNode() {}

// And requires every sub-predicate to hold. An empty And is vacuously
// true.
type And struct{ Predicates []Predicate }

func (And) predicateNode() {}

// compilePredicate renders p to a parameterized WHERE-clause fragment
// evaluated in the scope of the items table aliased "i".
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case FieldEquals:
		return fmt.Sprintf("i.%s = ?", pred.Field), []any{pred.Value}, nil
	case KindIs:
		return "i.kind = ?", []any{pred.Kind}, nil
	case PhaseIs:
		return "i.phase = ?", []any{pred.Phase}, nil
	case ParentIs:
		return "i.parent_id = ?", []any{pred.ParentID}, nil
	case ExcludeDeleted:
		return "i.deleted = 0", nil, nil
	case LabelIs:
		return "EXISTS (SELECT 1 FROM item_labels l WHERE l.item_id = i.item_id AND l.label = ?)", []any{pred.Label}, nil
	case AssigneeIs:
		return "EXISTS (SELECT 1 FROM item_assignees a WHERE a.item_id = i.item_id AND a.agent = ?)", []any{pred.Agent}, nil
	case TextMatch:
		return "i.item_id IN (SELECT item_id FROM items_fts WHERE items_fts MATCH ?)", []any{pred.Query}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		var parts []string
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("projection: unsupported predicate type %T", p)
	}
}

// compileQuery assembles a full SELECT against items, filtered by filter
// (nil means no filter) and ordered deterministically by item_id so
// iteration is restartable from any last-seen ID.
func compileQuery(filter Predicate, after string) (string, []any, error) {
	where := []string{}
	var params []any

	if filter != nil {
		sql, p, err := compilePredicate(filter)
		if err != nil {
			return "", nil, err
		}
		where = append(where, sql)
		params = append(params, p...)
	}
	if after != "" {
		where = append(where, "i.item_id COLLATE BINARY > ?")
		params = append(params, after)
	}

	query := "SELECT i.item_id, i.title, i.description, i.kind, i.size, i.urgency, i.parent_id, i.epoch, i.phase, i.deleted FROM items i"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.item_id ASC COLLATE BINARY"

	return query, params, nil
}
