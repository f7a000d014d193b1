package dag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/itc"
)

// buildEvent fills in ITC and EventHash for a minimal create/child event,
// mirroring how a real writer would finish an Event before appending it.
func buildEvent(t *testing.T, wallTS int64, agent string, stamp itc.Stamp, parents []string, itemID string, typ codec.EventType, data map[string]any) codec.Event {
	t.Helper()
	ev := &codec.Event{
		WallTSUs: wallTS,
		Agent:    agent,
		ITC:      itc.EncodeText(stamp),
		Parents:  parents,
		Type:     typ,
		ItemID:   itemID,
		Data:     data,
	}
	hash, err := codec.ComputeHash(ev)
	require.NoError(t, err)
	ev.EventHash = hash
	return *ev
}

func TestEventGraphInsertLinksParentAndChild(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	child := buildEvent(t, 2000, "a", itc.Seed().Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(child)

	require.Equal(t, 2, g.Len())
	require.Equal(t, []string{root.EventHash}, g.Roots())
	require.Equal(t, []string{child.EventHash}, g.Tips())

	node, ok := g.Get(root.EventHash)
	require.True(t, ok)
	require.Equal(t, []string{child.EventHash}, node.Children)
}

func TestEventGraphOutOfOrderInsertionStillLinks(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	child := buildEvent(t, 2000, "a", itc.Seed().Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})

	g := NewEventGraph()
	g.Insert(child)
	g.Insert(root)

	require.Equal(t, 2, g.Len())
	rootNode, _ := g.Get(root.EventHash)
	require.Contains(t, rootNode.Children, child.EventHash)
	childNode, _ := g.Get(child.EventHash)
	require.Contains(t, childNode.Parents, root.EventHash)
}

func TestEventGraphDuplicateInsertIsNoop(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(root)

	require.Equal(t, 1, g.Len())
}

func TestEventGraphFrontierExcludesReferencedParents(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	child := buildEvent(t, 2000, "a", itc.Seed().Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(child)

	require.Equal(t, []string{child.EventHash}, g.Frontier())
}

func TestEventGraphForkFrontierHasBothTips(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	left, right := itc.Seed().Fork()
	a := buildEvent(t, 2000, "agent-a", left.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})
	b := buildEvent(t, 2100, "agent-b", right.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "done"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(a)
	g.Insert(b)

	frontier := g.Frontier()
	require.ElementsMatch(t, []string{a.EventHash, b.EventHash}, frontier)
}

func TestEventGraphAncestryAndConcurrency(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	left, right := itc.Seed().Fork()
	a := buildEvent(t, 2000, "agent-a", left.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})
	b := buildEvent(t, 2100, "agent-b", right.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "done"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(a)
	g.Insert(b)

	require.True(t, g.IsAncestor(root.EventHash, a.EventHash))
	require.False(t, g.IsAncestor(a.EventHash, root.EventHash))
	require.True(t, g.Concurrent(a.EventHash, b.EventHash))
	require.False(t, g.Concurrent(root.EventHash, a.EventHash))
}

func TestFindLCALinearChain(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	child := buildEvent(t, 2000, "a", itc.Seed().Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})
	grandchild := buildEvent(t, 3000, "a", itc.Seed().Record().Record(), []string{child.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "done"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(child)
	g.Insert(grandchild)

	lca, ok, err := FindLCA(g, root.EventHash, grandchild.EventHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root.EventHash, lca)
}

func TestFindLCAForkedBranchesConvergeOnRoot(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	left, right := itc.Seed().Fork()
	a := buildEvent(t, 2000, "agent-a", left.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})
	b := buildEvent(t, 2100, "agent-b", right.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "done"})

	g := NewEventGraph()
	g.Insert(root)
	g.Insert(a)
	g.Insert(b)

	lca, ok, err := FindLCA(g, a.EventHash, b.EventHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root.EventHash, lca)
}

func TestFindLCASameTipIsTrivial(t *testing.T) {
	root := buildEvent(t, 1000, "a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	g := NewEventGraph()
	g.Insert(root)

	lca, ok, err := FindLCA(g, root.EventHash, root.EventHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root.EventHash, lca)
}

func TestFindLCADisjointRootsReturnsNotFound(t *testing.T) {
	a := buildEvent(t, 1000, "agent-a", itc.Seed(), nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "a"})
	b := buildEvent(t, 1100, "agent-b", itc.Seed(), nil, "bn-2", codec.TypeItemCreate, map[string]any{"title": "b"})

	g := NewEventGraph()
	g.Insert(a)
	g.Insert(b)

	_, ok, err := FindLCA(g, a.EventHash, b.EventHash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindLCAUnknownTipErrors(t *testing.T) {
	g := NewEventGraph()
	_, _, err := FindLCA(g, "blake3:missing", "blake3:also-missing")
	require.Error(t, err)
}
