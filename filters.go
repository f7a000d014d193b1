package bones

import "github.com/bobisme/bones/internal/projection"

// Predicate, Item, and ItemIterator are re-exported directly from
// internal/projection so callers of iter_items never need to import an
// internal package themselves.
type (
	Predicate      = projection.Predicate
	Item           = projection.Item
	ItemIterator   = projection.ItemIterator
	FieldEquals    = projection.FieldEquals
	KindIs         = projection.KindIs
	PhaseIs        = projection.PhaseIs
	ParentIs       = projection.ParentIs
	ExcludeDeleted = projection.ExcludeDeleted
	LabelIs        = projection.LabelIs
	AssigneeIs     = projection.AssigneeIs
	TextMatch      = projection.TextMatch
	And            = projection.And
)
