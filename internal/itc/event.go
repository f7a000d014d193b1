package itc

// Event is a sealed causal-history tree: a binary tree of counters, one
// per position in the ID partition. Leaf(n) means every position under
// this node has recorded n events; Branch(base, left, right) means base
// events have been recorded everywhere under this node, plus whatever
// left and right record on top of that.
type Event interface {
	eventNode()
	// value returns the base counter at this node (the leaf count, or the
	// branch's base).
	value() uint32
	// minValue returns the smallest effective counter anywhere in the subtree.
	minValue() uint32
	// maxValue returns the largest effective counter anywhere in the subtree.
	maxValue() uint32
	// lift adds delta to this node's own base/leaf value.
	lift(delta uint32) Event
}

type eventLeaf uint32

func (eventLeaf) eventNode()          {}
func (e eventLeaf) value() uint32     { return uint32(e) }
func (e eventLeaf) minValue() uint32  { return uint32(e) }
func (e eventLeaf) maxValue() uint32  { return uint32(e) }
func (e eventLeaf) lift(d uint32) Event { return eventLeaf(uint32(e) + d) }

type eventBranch struct {
	Base        uint32
	Left, Right Event
}

func (eventBranch) eventNode()      {}
func (b eventBranch) value() uint32 { return b.Base }
func (b eventBranch) minValue() uint32 {
	return b.Base + minU32(b.Left.minValue(), b.Right.minValue())
}
func (b eventBranch) maxValue() uint32 {
	return b.Base + maxU32(b.Left.maxValue(), b.Right.maxValue())
}
func (b eventBranch) lift(d uint32) Event {
	return eventBranch{Base: b.Base + d, Left: b.Left, Right: b.Right}
}

// EventZero is an event tree with no recorded history anywhere.
var EventZero Event = eventLeaf(0)

// NewEventLeaf builds a flat event tree recording n events everywhere.
func NewEventLeaf(n uint32) Event {
	return eventLeaf(n)
}

// NewEventBranch builds a branch, normalizing by lifting the children's
// common minimum into the base and collapsing equal-leaf children into a
// single leaf.
func NewEventBranch(base uint32, left, right Event) Event {
	if ll, ok := left.(eventLeaf); ok {
		if rl, ok := right.(eventLeaf); ok && ll == rl {
			return eventLeaf(base + uint32(ll))
		}
	}
	m := minU32(left.minValue(), right.minValue())
	if m > 0 {
		return eventBranch{
			Base:  base + m,
			Left:  subtractBase(left, m),
			Right: subtractBase(right, m),
		}
	}
	return eventBranch{Base: base, Left: left, Right: right}
}

// subtractBase removes delta from e's own base/leaf value. delta must not
// exceed e.value(); callers only ever subtract the computed common minimum.
func subtractBase(e Event, delta uint32) Event {
	switch v := e.(type) {
	case eventLeaf:
		return eventLeaf(uint32(v) - delta)
	case eventBranch:
		return eventBranch{Base: v.Base - delta, Left: v.Left, Right: v.Right}
	default:
		panic("itc: unknown Event implementation")
	}
}

// normalizeEvent recursively normalizes a tree to its minimal form.
func normalizeEvent(e Event) Event {
	b, ok := e.(eventBranch)
	if !ok {
		return e
	}
	return NewEventBranch(b.Base, normalizeEvent(b.Left), normalizeEvent(b.Right))
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// joinEvent merges two event trees, taking the pointwise maximum.
func joinEvent(a, b Event) Event {
	al, aIsLeaf := a.(eventLeaf)
	bl, bIsLeaf := b.(eventLeaf)
	switch {
	case aIsLeaf && bIsLeaf:
		return eventLeaf(maxU32(uint32(al), uint32(bl)))
	case aIsLeaf && !bIsLeaf:
		bb := b.(eventBranch)
		if uint32(al) >= b.maxValue() {
			return eventLeaf(al)
		}
		lifted := eventLeaf(satSub(uint32(al), bb.Base))
		return NewEventBranch(bb.Base, joinEvent(lifted, bb.Left), joinEvent(lifted, bb.Right))
	case !aIsLeaf && bIsLeaf:
		ab := a.(eventBranch)
		if uint32(bl) >= a.maxValue() {
			return eventLeaf(bl)
		}
		lifted := eventLeaf(satSub(uint32(bl), ab.Base))
		return NewEventBranch(ab.Base, joinEvent(ab.Left, lifted), joinEvent(ab.Right, lifted))
	default:
		ab, bb := a.(eventBranch), b.(eventBranch)
		if ab.Base >= bb.Base {
			diff := ab.Base - bb.Base
			return NewEventBranch(bb.Base, joinEvent(ab.Left.lift(diff), bb.Left), joinEvent(ab.Right.lift(diff), bb.Right))
		}
		diff := bb.Base - ab.Base
		return NewEventBranch(ab.Base, joinEvent(ab.Left, bb.Left.lift(diff)), joinEvent(ab.Right, bb.Right.lift(diff)))
	}
}

func satSub(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

// leqEvent reports whether a <= b at every position: every counter in a
// is no greater than the corresponding counter in b.
func leqEvent(a, b Event) bool {
	al, aIsLeaf := a.(eventLeaf)
	bl, bIsLeaf := b.(eventLeaf)
	switch {
	case aIsLeaf && bIsLeaf:
		return al <= bl
	case aIsLeaf && !bIsLeaf:
		bb := b.(eventBranch)
		if uint32(al) <= bb.Base {
			return true
		}
		remainder := eventLeaf(uint32(al) - bb.Base)
		return leqEvent(remainder, bb.Left) && leqEvent(remainder, bb.Right)
	case !aIsLeaf && bIsLeaf:
		return a.maxValue() <= uint32(bl)
	default:
		ab, bb := a.(eventBranch), b.(eventBranch)
		if ab.Base <= bb.Base {
			diff := bb.Base - ab.Base
			return leqEvent(ab.Left, bb.Left.lift(diff)) && leqEvent(ab.Right, bb.Right.lift(diff))
		}
		diff := ab.Base - bb.Base
		return leqEvent(ab.Left.lift(diff), bb.Left) && leqEvent(ab.Right.lift(diff), bb.Right)
	}
}

// fill raises counters wherever id owns the interval, up to the maximum
// already recorded by a sibling. Reports whether it changed anything.
func fill(id ID, e Event) (Event, bool) {
	switch iv := id.(type) {
	case idLeaf:
		if !bool(iv) {
			return e, false
		}
		if eb, ok := e.(eventBranch); ok {
			m := maxU32(eb.Left.maxValue(), eb.Right.maxValue())
			return eventLeaf(eb.Base + m), true
		}
		return e, false
	case idBranch:
		switch ev := e.(type) {
		case eventLeaf:
			el, changedL := fill(iv.Left, eventLeaf(0))
			er, changedR := fill(iv.Right, eventLeaf(0))
			if changedL || changedR {
				return NewEventBranch(uint32(ev), el, er), true
			}
			return ev, false
		case eventBranch:
			newL, changedL := fill(iv.Left, ev.Left)
			newR, changedR := fill(iv.Right, ev.Right)
			if changedL || changedR {
				return NewEventBranch(ev.Base, newL, newR), true
			}
			return ev, false
		default:
			panic("itc: unknown Event implementation")
		}
	default:
		panic("itc: unknown ID implementation")
	}
}

type growResult struct {
	event Event
	cost  uint32
}

// grow inflates the event tree at a position owned by id, returning the
// lowest-cost growth found. Reports ok=false if id owns nothing.
func grow(id ID, e Event) (growResult, bool) {
	switch iv := id.(type) {
	case idLeaf:
		if !bool(iv) {
			return growResult{}, false
		}
		switch ev := e.(type) {
		case eventLeaf:
			return growResult{event: eventLeaf(uint32(ev) + 1), cost: 0}, true
		case eventBranch:
			gl, okL := grow(IDOne, ev.Left)
			gr, okR := grow(IDOne, ev.Right)
			switch {
			case okL && okR:
				if gl.cost <= gr.cost {
					return growResult{event: NewEventBranch(ev.Base, gl.event, ev.Right), cost: gl.cost}, true
				}
				return growResult{event: NewEventBranch(ev.Base, ev.Left, gr.event), cost: gr.cost}, true
			case okL:
				return growResult{event: NewEventBranch(ev.Base, gl.event, ev.Right), cost: gl.cost}, true
			case okR:
				return growResult{event: NewEventBranch(ev.Base, ev.Left, gr.event), cost: gr.cost}, true
			default:
				return growResult{}, false
			}
		default:
			panic("itc: unknown Event implementation")
		}
	case idBranch:
		switch ev := e.(type) {
		case eventLeaf:
			gl, okL := grow(iv.Left, eventLeaf(0))
			gr, okR := grow(iv.Right, eventLeaf(0))
			switch {
			case okL && okR:
				if gl.cost < gr.cost {
					return growResult{event: NewEventBranch(uint32(ev), gl.event, eventLeaf(0)), cost: gl.cost + 1000}, true
				}
				return growResult{event: NewEventBranch(uint32(ev), eventLeaf(0), gr.event), cost: gr.cost + 1000}, true
			case okL:
				return growResult{event: NewEventBranch(uint32(ev), gl.event, eventLeaf(0)), cost: gl.cost + 1000}, true
			case okR:
				return growResult{event: NewEventBranch(uint32(ev), eventLeaf(0), gr.event), cost: gr.cost + 1000}, true
			default:
				return growResult{}, false
			}
		case eventBranch:
			gl, okL := grow(iv.Left, ev.Left)
			gr, okR := grow(iv.Right, ev.Right)
			switch {
			case okL && okR:
				if gl.cost <= gr.cost {
					return growResult{event: NewEventBranch(ev.Base, gl.event, ev.Right), cost: gl.cost}, true
				}
				return growResult{event: NewEventBranch(ev.Base, ev.Left, gr.event), cost: gr.cost}, true
			case okL:
				return growResult{event: NewEventBranch(ev.Base, gl.event, ev.Right), cost: gl.cost}, true
			case okR:
				return growResult{event: NewEventBranch(ev.Base, ev.Left, gr.event), cost: gr.cost}, true
			default:
				return growResult{}, false
			}
		default:
			panic("itc: unknown Event implementation")
		}
	default:
		panic("itc: unknown ID implementation")
	}
}
