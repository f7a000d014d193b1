package itc

import "fmt"

// Stamp pairs an ID (the interval this replica owns) with an Event (the
// causal history it has recorded). It is the unit of causality carried in
// every event's ITC field.
type Stamp struct {
	ID    ID
	Event Event
}

// Seed returns the initial stamp: owns the entire interval, records no
// events. The first agent in a repository starts from Seed.
func Seed() Stamp {
	return Stamp{ID: IDOne, Event: EventZero}
}

// Anonymous returns a stamp that owns nothing and has recorded nothing.
// An anonymous stamp can receive causality via Join but can never Record
// an event of its own.
func Anonymous() Stamp {
	return Stamp{ID: IDZero, Event: EventZero}
}

// IsAnonymous reports whether s owns no part of the interval.
func (s Stamp) IsAnonymous() bool {
	return IsIDZero(s.ID)
}

// normalize reduces both trees to their minimal representation.
func (s Stamp) normalize() Stamp {
	return Stamp{ID: normalizeID(s.ID), Event: normalizeEvent(s.Event)}
}

func normalizeID(id ID) ID {
	b, ok := id.(idBranch)
	if !ok {
		return id
	}
	return NewIDBranch(normalizeID(b.Left), normalizeID(b.Right))
}

// Fork splits s's owned interval into two halves that share s's event
// history. Used when a new agent joins the repository: the existing
// agent's stamp is replaced by one half, the new agent seeds from the
// other.
//
// Fork panics if s is anonymous, since there is nothing to split.
func (s Stamp) Fork() (Stamp, Stamp) {
	if IsIDZero(s.ID) {
		panic("itc: cannot fork an anonymous stamp")
	}
	l, r := splitID(s.ID)
	left := Stamp{ID: l, Event: s.Event}.normalize()
	right := Stamp{ID: r, Event: s.Event}.normalize()
	return left, right
}

// Join merges two stamps: their ID intervals reunite and their event
// trees combine by pointwise maximum. Used to donate a retiring agent's
// interval back, or to synchronize causality between two stamps that
// never need to record events of their own (e.g. a read replica).
func Join(a, b Stamp) Stamp {
	return Stamp{ID: sumID(a.ID, b.ID), Event: joinEvent(a.Event, b.Event)}.normalize()
}

// Record inflates the event tree at a position this stamp owns, using the
// fill-then-grow strategy from the ITC paper to keep tree growth minimal.
// Every event a replica appends calls Record first so the resulting stamp
// causally dominates everything the replica has seen.
//
// Record panics if s is anonymous.
func (s Stamp) Record() Stamp {
	if IsIDZero(s.ID) {
		panic("itc: cannot record an event on an anonymous stamp")
	}
	if filled, changed := fill(s.ID, s.Event); changed {
		return Stamp{ID: s.ID, Event: filled}.normalize()
	}
	g, ok := grow(s.ID, s.Event)
	if !ok {
		panic("itc: record: could not grow event tree (internal error)")
	}
	return Stamp{ID: s.ID, Event: g.event}.normalize()
}

// Leq reports whether s happened-before-or-concurrently-with other: every
// event s has recorded, other has also recorded. This is the causal
// ordering bones uses to validate that an event's parents precede it, and
// as the first tier of the last-writer-wins comparator.
func (s Stamp) Leq(other Stamp) bool {
	return leqEvent(s.Event, other.Event)
}

// Concurrent reports whether neither stamp's history dominates the
// other's: each has recorded something the other has not observed.
func (s Stamp) Concurrent(other Stamp) bool {
	return !s.Leq(other) && !other.Leq(s)
}

// String renders s as "(id,event)" using idText and eventText below.
func (s Stamp) String() string {
	return fmt.Sprintf("(%s,%s)", idText(s.ID), eventText(s.Event))
}
