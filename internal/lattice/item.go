package lattice

// ItemState is the per-item record the lattice maintains: a product of
// LWW registers, an epoch-phase status, four OR-sets, a grow-only
// comment set, and an LWW soft-delete flag. The semilattice laws hold
// field-wise, so they hold for the product: ItemState.Merge is
// commutative, associative, and idempotent whenever every field's merge
// is.
type ItemState struct {
	Title       Register[string]
	Description Register[string]
	Kind        Register[string]
	Size        Register[float64]
	Urgency     Register[float64]
	Parent      Register[string]
	Status      EpochPhase

	Labels     *ORSet
	Assignees  *ORSet
	BlockedBy  *ORSet
	RelatedTo  *ORSet
	Comments   CommentSet
	Deleted    Register[bool]
}

// NewItemState returns the bottom element: every register unset, every
// set empty, status at epoch zero with no phase recorded yet.
func NewItemState() ItemState {
	return ItemState{
		Labels:    NewORSet(),
		Assignees: NewORSet(),
		BlockedBy: NewORSet(),
		RelatedTo: NewORSet(),
		Comments:  CommentSet{},
	}
}

// Merge joins s with other field-wise.
func (s ItemState) Merge(other ItemState) ItemState {
	return ItemState{
		Title:       s.Title.Merge(other.Title),
		Description: s.Description.Merge(other.Description),
		Kind:        s.Kind.Merge(other.Kind),
		Size:        s.Size.Merge(other.Size),
		Urgency:     s.Urgency.Merge(other.Urgency),
		Parent:      s.Parent.Merge(other.Parent),
		Status:      JoinEpochPhase(s.Status, other.Status),
		Labels:      s.Labels.Merge(other.Labels),
		Assignees:   s.Assignees.Merge(other.Assignees),
		BlockedBy:   s.BlockedBy.Merge(other.BlockedBy),
		RelatedTo:   s.RelatedTo.Merge(other.RelatedTo),
		Comments:    s.Comments.Merge(other.Comments),
		Deleted:     s.Deleted.Merge(other.Deleted),
	}
}

// IsDeleted reports the current value of the soft-delete flag. An
// item whose Deleted register was never written is not deleted.
func (s ItemState) IsDeleted() bool {
	return s.Deleted.Set && s.Deleted.Value
}

// BlockedByIDs returns the sorted, currently-active blocking item IDs.
func (s ItemState) BlockedByIDs() []string {
	return s.BlockedBy.Values()
}

// RelatedToIDs returns the sorted, currently-active related item IDs.
func (s ItemState) RelatedToIDs() []string {
	return s.RelatedTo.Values()
}
