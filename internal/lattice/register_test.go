package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobisme/bones/internal/itc"
)

func TestRegisterMergeBottomIsIdentity(t *testing.T) {
	var bottom Register[string]
	written := NewRegister("hello", Entry{Stamp: itc.Seed(), WallTSUs: 1, Agent: "a", EventHash: "h"})

	assert.Equal(t, written, bottom.Merge(written))
	assert.Equal(t, written, written.Merge(bottom))
}

func TestRegisterMergeCommutativeAndAssociative(t *testing.T) {
	seed := itc.Seed()
	left, right := seed.Fork()
	sa, sb := left.Fork()
	sc, _ := right.Fork()
	sa = sa.Record()
	sb = sb.Record()
	sc = sc.Record()

	a := NewRegister("val-a", Entry{Stamp: sa, WallTSUs: 100, Agent: "alice", EventHash: "hash-a"})
	b := NewRegister("val-b", Entry{Stamp: sb, WallTSUs: 200, Agent: "bob", EventHash: "hash-b"})
	c := NewRegister("val-c", Entry{Stamp: sc, WallTSUs: 150, Agent: "carol", EventHash: "hash-c"})

	ab := a.Merge(b)
	ba := b.Merge(a)
	assert.Equal(t, ab, ba, "commutative")

	leftAssoc := a.Merge(b).Merge(c)
	rightAssoc := a.Merge(b.Merge(c))
	assert.Equal(t, leftAssoc, rightAssoc, "associative")
}

func TestRegisterMergeIdempotent(t *testing.T) {
	r := NewRegister(42, Entry{Stamp: itc.Seed(), WallTSUs: 1, Agent: "a", EventHash: "h"})
	assert.Equal(t, r, r.Merge(r))
}
