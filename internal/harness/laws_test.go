package harness

import (
	"math/rand"
	"testing"

	"github.com/bobisme/bones/internal/lattice"
)

const lawCases = 500

func TestItemStateMergeCommutative(t *testing.T) {
	g := newLawGen(1)
	for i := 0; i < lawCases; i++ {
		a, b := g.itemState(), g.itemState()
		ab := a.Merge(b)
		ba := b.Merge(a)
		if !itemStatesEqual(ab, ba) {
			t.Fatalf("case %d: a.Merge(b) != b.Merge(a)\na=%+v\nb=%+v", i, a, b)
		}
	}
}

func TestItemStateMergeAssociative(t *testing.T) {
	g := newLawGen(2)
	for i := 0; i < lawCases; i++ {
		a, b, c := g.itemState(), g.itemState(), g.itemState()
		left := a.Merge(b).Merge(c)
		right := a.Merge(b.Merge(c))
		if !itemStatesEqual(left, right) {
			t.Fatalf("case %d: (a.Merge(b)).Merge(c) != a.Merge(b.Merge(c))", i)
		}
	}
}

func TestItemStateMergeIdempotent(t *testing.T) {
	g := newLawGen(3)
	for i := 0; i < lawCases; i++ {
		a := g.itemState()
		if !itemStatesEqual(a.Merge(a), a) {
			t.Fatalf("case %d: a.Merge(a) != a", i)
		}
	}
}

// TestConcurrentEventsConverge rebuilds the same set of events under
// every permutation of delivery order and checks the final per-item
// state is identical every time — spec's convergence property holds
// regardless of the comparator's own correctness, because it is driven
// end to end through the real dag.Replayer, the same path Repo uses.
func TestConcurrentEventsConverge(t *testing.T) {
	events := buildConvergenceFixture(t)

	rng := rand.New(rand.NewSource(42))
	var reference lattice.ItemState
	for trial := 0; trial < 30; trial++ {
		permuted := append([]int(nil), indices(len(events))...)
		rng.Shuffle(len(permuted), func(i, j int) { permuted[i], permuted[j] = permuted[j], permuted[i] })

		ordered := make([]eventFixture, len(events))
		for i, p := range permuted {
			ordered[i] = events[p]
		}

		state := replayFixture(ordered)
		if trial == 0 {
			reference = state
			continue
		}
		if !itemStatesEqual(state, reference) {
			t.Fatalf("trial %d: permuted replay diverged from reference state", trial)
		}
	}
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
