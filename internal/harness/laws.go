package harness

import (
	"fmt"
	"math/rand"
	"reflect"

	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
)

// lawGen produces randomized lattice.ItemState fixtures for the
// semilattice property checks below, grounded on
// original_source/crates/bones-core/tests/generators.rs's arbitrary-value
// generators for each CRDT primitive (LWW register, grow-only set,
// OR-set), translated to Go's math/rand instead of proptest's Arbitrary.
type lawGen struct {
	rng    *rand.Rand
	stamps []itc.Stamp
}

// newLawGen seeds a generator with a small pool of causally related and
// concurrent ITC stamps (a seed, its two forks, and their own forks) so
// generated registers exercise every branch of the comparator: causally
// ordered pairs and genuinely concurrent ones.
func newLawGen(seed int64) *lawGen {
	rng := rand.New(rand.NewSource(seed))
	root := itc.Seed()
	left, right := root.Fork()
	leftA, leftB := left.Fork()
	rightA, rightB := right.Fork()
	return &lawGen{
		rng: rng,
		stamps: []itc.Stamp{
			root.Record(), left.Record(), right.Record(),
			leftA.Record(), leftB.Record(), rightA.Record(), rightB.Record(),
		},
	}
}

func (g *lawGen) stamp() itc.Stamp {
	return g.stamps[g.rng.Intn(len(g.stamps))]
}

func (g *lawGen) agent() string {
	agents := []string{"alice", "bob", "carol"}
	return agents[g.rng.Intn(len(agents))]
}

func (g *lawGen) entry() lattice.Entry {
	return lattice.Entry{
		Stamp:     g.stamp(),
		WallTSUs:  g.rng.Int63n(1_000_000),
		Agent:     g.agent(),
		EventHash: fmt.Sprintf("h%d", g.rng.Intn(5)),
	}
}

func (g *lawGen) stringRegister() lattice.Register[string] {
	if g.rng.Intn(4) == 0 {
		return lattice.Register[string]{}
	}
	words := []string{"", "fix bug", "ship v2", "write docs"}
	return lattice.NewRegister(words[g.rng.Intn(len(words))], g.entry())
}

func (g *lawGen) orSet(values []string) *lattice.ORSet {
	s := lattice.NewORSet()
	for i := 0; i < g.rng.Intn(4); i++ {
		v := values[g.rng.Intn(len(values))]
		stamp := g.stamp()
		if g.rng.Intn(3) == 0 {
			s = s.Remove(v, stamp)
		} else {
			s = s.Add(v, stamp)
		}
	}
	return s
}

func (g *lawGen) epochPhase() lattice.EpochPhase {
	phases := []lattice.Phase{lattice.PhaseOpen, lattice.PhaseDoing, lattice.PhaseDone, lattice.PhaseArchived}
	return lattice.EpochPhase{
		Epoch: uint64(g.rng.Intn(3)),
		Phase: phases[g.rng.Intn(len(phases))],
	}
}

func (g *lawGen) itemState() lattice.ItemState {
	return lattice.ItemState{
		Title:       g.stringRegister(),
		Description: g.stringRegister(),
		Kind:        g.stringRegister(),
		Parent:      g.stringRegister(),
		Status:      g.epochPhase(),
		Labels:      g.orSet([]string{"backend", "frontend", "urgent"}),
		Assignees:   g.orSet([]string{"alice", "bob", "carol"}),
		BlockedBy:   g.orSet([]string{"bn-1", "bn-2"}),
		RelatedTo:   g.orSet([]string{"bn-3", "bn-4"}),
		Comments:    lattice.CommentSet{},
		Deleted:     lattice.Register[bool]{},
	}
}

// itemStatesEqual compares two states by their externally observable
// value (Ordered()/Values() output), not by struct identity — two
// merges that allocate distinct ORSet pointers but agree on membership
// must count as equal.
func itemStatesEqual(a, b lattice.ItemState) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Kind == b.Kind &&
		a.Parent == b.Parent &&
		a.Status == b.Status &&
		a.Deleted == b.Deleted &&
		reflect.DeepEqual(a.Labels.Values(), b.Labels.Values()) &&
		reflect.DeepEqual(a.Assignees.Values(), b.Assignees.Values()) &&
		reflect.DeepEqual(a.BlockedByIDs(), b.BlockedByIDs()) &&
		reflect.DeepEqual(a.RelatedToIDs(), b.RelatedToIDs()) &&
		reflect.DeepEqual(a.Comments.Ordered(), b.Comments.Ordered())
}
