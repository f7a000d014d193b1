package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentSetAddIsGrowOnly(t *testing.T) {
	set := CommentSet{}
	c := Comment{EventHash: "h1", WallTSUs: 100, Agent: "alice", Body: "first"}
	set = set.Add(c)

	// Re-adding the same hash (e.g. replayed event) is a no-op.
	dup := Comment{EventHash: "h1", WallTSUs: 100, Agent: "alice", Body: "should not replace"}
	set2 := set.Add(dup)

	assert.Equal(t, "first", set2["h1"].Body)
	assert.Len(t, set2, 1)
}

func TestCommentSetRedactReplacesBody(t *testing.T) {
	set := CommentSet{}
	set = set.Add(Comment{EventHash: "h1", WallTSUs: 100, Agent: "alice", Body: "secret"})
	set = set.Redact("h1")

	assert.Equal(t, "[redacted]", set["h1"].Body)
	assert.True(t, set["h1"].Redacted)
}

func TestCommentSetRedactOfUnknownHashIsNoop(t *testing.T) {
	set := CommentSet{}
	set2 := set.Redact("unknown")
	assert.Empty(t, set2)
}

func TestCommentSetMergePrefersRedacted(t *testing.T) {
	a := CommentSet{}
	a = a.Add(Comment{EventHash: "h1", WallTSUs: 100, Agent: "alice", Body: "secret"})

	b := CommentSet{}
	b = b.Add(Comment{EventHash: "h1", WallTSUs: 100, Agent: "alice", Body: "secret"})
	b = b.Redact("h1")

	merged := a.Merge(b)
	assert.Equal(t, "[redacted]", merged["h1"].Body)
	assert.True(t, merged["h1"].Redacted)

	// Commutative: redaction wins regardless of merge order.
	mergedOther := b.Merge(a)
	assert.Equal(t, merged, mergedOther)
}

func TestCommentSetOrderedIsDeterministic(t *testing.T) {
	set := CommentSet{}
	set = set.Add(Comment{EventHash: "zzz", WallTSUs: 100, Body: "late-hash"})
	set = set.Add(Comment{EventHash: "aaa", WallTSUs: 100, Body: "early-hash"})
	set = set.Add(Comment{EventHash: "mid", WallTSUs: 50, Body: "earliest-ts"})

	ordered := set.Ordered()
	assert.Equal(t, []string{"mid", "aaa", "zzz"}, []string{ordered[0].EventHash, ordered[1].EventHash, ordered[2].EventHash})
}
