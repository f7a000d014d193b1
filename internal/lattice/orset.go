package lattice

import (
	"sort"

	"github.com/bobisme/bones/internal/itc"
)

// ORSet is an observed-remove set materialized directly from the event
// DAG: membership carries no separate tombstone metadata, because causal
// dominance is already recoverable from the ITC stamp every add and
// remove event already carries. An element is present iff it has at
// least one add whose stamp is not causally dominated by any remove of
// the same element — a remove dominates an add when the remove's stamp
// is causally at-or-after the add's, i.e. add.Leq(remove).
//
// Concurrent add/remove resolve to add: a remove can only dominate the
// adds it causally observed, so an add a replica never saw the remove
// for survives untouched. This is the standard add-wins OR-set
// guarantee, expressed without tags by reading dominance straight off
// ITC instead of bookkeeping per-add unique markers.
type ORSet struct {
	adds    map[string][]itc.Stamp
	removes map[string][]itc.Stamp
}

// NewORSet returns an empty OR-set.
func NewORSet() *ORSet {
	return &ORSet{adds: make(map[string][]itc.Stamp), removes: make(map[string][]itc.Stamp)}
}

// Add returns a copy of s with an add of value at stamp recorded. s itself
// is left untouched, so a caller holding s as part of an already-published
// ItemState never observes the mutation.
func (s *ORSet) Add(value string, stamp itc.Stamp) *ORSet {
	out := s.clone()
	out.adds[value] = append(out.adds[value], stamp)
	return out
}

// Remove returns a copy of s with a remove of value at stamp recorded. s
// itself is left untouched.
func (s *ORSet) Remove(value string, stamp itc.Stamp) *ORSet {
	out := s.clone()
	out.removes[value] = append(out.removes[value], stamp)
	return out
}

func (s *ORSet) clone() *ORSet {
	out := NewORSet()
	for value, stamps := range s.adds {
		out.adds[value] = append([]itc.Stamp(nil), stamps...)
	}
	for value, stamps := range s.removes {
		out.removes[value] = append([]itc.Stamp(nil), stamps...)
	}
	return out
}

// Contains reports whether value is present: it has an add not causally
// dominated by any recorded remove of the same value.
func (s *ORSet) Contains(value string) bool {
	for _, add := range s.adds[value] {
		if !dominatedByAny(add, s.removes[value]) {
			return true
		}
	}
	return false
}

func dominatedByAny(add itc.Stamp, removes []itc.Stamp) bool {
	for _, rm := range removes {
		if add.Leq(rm) {
			return true
		}
	}
	return false
}

// Values returns the sorted, currently-present elements.
func (s *ORSet) Values() []string {
	var out []string
	for value := range s.adds {
		if s.Contains(value) {
			out = append(out, value)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct present values.
func (s *ORSet) Len() int {
	return len(s.Values())
}

// Merge folds other's adds and removes into s, returning a new ORSet.
// Because membership is derived purely from the union of recorded
// stamps, union is the join: commutative, associative, and idempotent.
func (s *ORSet) Merge(other *ORSet) *ORSet {
	merged := NewORSet()
	for value, stamps := range s.adds {
		merged.adds[value] = append(merged.adds[value], stamps...)
	}
	for value, stamps := range other.adds {
		merged.adds[value] = append(merged.adds[value], stamps...)
	}
	for value, stamps := range s.removes {
		merged.removes[value] = append(merged.removes[value], stamps...)
	}
	for value, stamps := range other.removes {
		merged.removes[value] = append(merged.removes[value], stamps...)
	}
	return merged
}
