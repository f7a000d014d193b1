package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobisme/bones/internal/itc"
)

func stampAfter(s itc.Stamp, n int) itc.Stamp {
	for i := 0; i < n; i++ {
		s = s.Record()
	}
	return s
}

func TestCausalLaterWins(t *testing.T) {
	s1 := stampAfter(itc.Seed(), 1)
	s2 := stampAfter(itc.Seed(), 2)
	require.True(t, s1.Leq(s2))
	require.False(t, s2.Leq(s1))

	a := Entry{Stamp: s1, WallTSUs: 100, Agent: "alice", EventHash: "aaa"}
	b := Entry{Stamp: s2, WallTSUs: 100, Agent: "alice", EventHash: "aaa"}
	assert.True(t, Wins(b, a))
	assert.False(t, Wins(a, b))
}

func TestConcurrentHigherWallTSWins(t *testing.T) {
	seed := itc.Seed()
	sa, sb := seed.Fork()
	sa = sa.Record()
	sb = sb.Record()
	require.True(t, sa.Concurrent(sb))

	a := Entry{Stamp: sa, WallTSUs: 200, Agent: "alice", EventHash: "aaa"}
	b := Entry{Stamp: sb, WallTSUs: 300, Agent: "bob", EventHash: "bbb"}
	assert.True(t, Wins(b, a))
	assert.False(t, Wins(a, b))
}

func TestConcurrentSameTSHigherAgentWins(t *testing.T) {
	seed := itc.Seed()
	sa, sb := seed.Fork()
	sa = sa.Record()
	sb = sb.Record()

	a := Entry{Stamp: sa, WallTSUs: 100, Agent: "alice", EventHash: "aaa"}
	b := Entry{Stamp: sb, WallTSUs: 100, Agent: "bob", EventHash: "bbb"}
	assert.True(t, Wins(b, a))
}

func TestConcurrentSameAgentHigherHashWins(t *testing.T) {
	seed := itc.Seed()
	sa, sb := seed.Fork()
	sa = sa.Record()
	sb = sb.Record()

	a := Entry{Stamp: sa, WallTSUs: 100, Agent: "alice", EventHash: "hash-aaa"}
	b := Entry{Stamp: sb, WallTSUs: 100, Agent: "alice", EventHash: "hash-zzz"}
	assert.True(t, Wins(b, a))
	assert.False(t, Wins(a, b))
}

func TestComparatorCommutativeOnEquality(t *testing.T) {
	s := stampAfter(itc.Seed(), 2)
	a := Entry{Stamp: s, WallTSUs: 500, Agent: "agent", EventHash: "hash-123"}
	assert.True(t, Wins(a, a))
}
