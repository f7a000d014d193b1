package dag

import (
	"fmt"
	"sort"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
)

// Replayer maintains the event graph and the per-item lattice states it
// materializes, advancing incrementally from a cursor. A cursor is the
// count of events the replayer has consumed from its input stream; it
// advances by exactly len(events) on every call, regardless of how many
// of those events were immediately appliable versus buffered for later
// (the event graph already persists the buffered ones, so nothing about
// cursor position depends on readiness).
type Replayer struct {
	graph   *EventGraph
	applied map[string]bool
	states  map[string]lattice.ItemState
	cursor  int
}

// NewReplayer returns an empty Replayer at cursor 0.
func NewReplayer() *Replayer {
	return &Replayer{
		graph:   NewEventGraph(),
		applied: make(map[string]bool),
		states:  make(map[string]lattice.ItemState),
	}
}

// Cursor returns the number of events consumed so far.
func (r *Replayer) Cursor() int { return r.cursor }

// Frontier returns the current frontier hashes: the parents new events
// should reference.
func (r *Replayer) Frontier() []string { return r.graph.Frontier() }

// ItemState returns the materialized state for itemID, or the bottom
// element if the item has never been touched.
func (r *Replayer) ItemState(itemID string) lattice.ItemState {
	if s, ok := r.states[itemID]; ok {
		return s
	}
	return lattice.NewItemState()
}

// States returns every materialized item state, keyed by item ID. The
// returned map is owned by the caller; mutating it does not affect the
// replayer.
func (r *Replayer) States() map[string]lattice.ItemState {
	out := make(map[string]lattice.ItemState, len(r.states))
	for id, s := range r.states {
		out[id] = s
	}
	return out
}

// Replay processes events from scratch, equivalent to calling
// ReplayFrom(0, events) on a fresh Replayer.
func (r *Replayer) Replay(events []codec.Event) []Warning {
	warnings, err := r.ReplayFrom(r.cursor, events)
	if err != nil {
		// r.cursor is always accurate for a Replayer driven only through
		// this API, so ReplayFrom cannot reject its own cursor.
		panic(err)
	}
	return warnings
}

// ReplayFrom processes exactly the events following cursor and commits
// the new cursor last, after every appliable event has been folded into
// its item's lattice state. Returns an error if cursor does not match
// the replayer's current position, which would mean some events were
// skipped or replayed twice.
func (r *Replayer) ReplayFrom(cursor int, events []codec.Event) ([]Warning, error) {
	if cursor != r.cursor {
		return nil, fmt.Errorf("dag: cursor mismatch: replayer at %d, asked to replay from %d", r.cursor, cursor)
	}

	for _, ev := range events {
		r.graph.Insert(ev)
	}

	warnings := r.drain()
	r.cursor = cursor + len(events)
	return warnings, nil
}

// drain repeatedly applies every newly-ready event — one whose parents
// are all already applied — in LWW order within each ready set, until
// no further progress is possible.
func (r *Replayer) drain() []Warning {
	var warnings []Warning
	for {
		ready := r.readyNodes()
		if len(ready) == 0 {
			return warnings
		}
		sort.Slice(ready, func(i, j int) bool {
			return lattice.Compare(entryOf(ready[i].Event), entryOf(ready[j].Event)) < 0
		})
		for _, node := range ready {
			if warn := applyEvent(r.states, node.Event); warn != nil {
				warnings = append(warnings, *warn)
			}
			r.applied[node.Event.EventHash] = true
		}
	}
}

func (r *Replayer) readyNodes() []*Node {
	var out []*Node
	for _, node := range r.graph.nodeList() {
		hash := node.Event.EventHash
		if r.applied[hash] {
			continue
		}
		ready := true
		for _, parent := range node.Parents {
			if !r.applied[parent] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, node)
		}
	}
	return out
}

func entryOf(ev codec.Event) lattice.Entry {
	stamp, err := itc.DecodeText(ev.ITC)
	if err != nil {
		// A malformed stamp already produced a Warning in applyEvent;
		// here it only needs a value that sorts deterministically —
		// the anonymous stamp is always causally incomparable, so ties
		// fall through to wall time, agent, and hash exactly as for any
		// other concurrent pair.
		stamp = itc.Anonymous()
	}
	return lattice.Entry{Stamp: stamp, WallTSUs: ev.WallTSUs, Agent: ev.Agent, EventHash: ev.EventHash}
}
