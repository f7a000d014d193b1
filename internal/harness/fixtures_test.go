package harness

import (
	"testing"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/dag"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
)

// eventFixture is a hand-built, already-hashed event used to exercise
// the replayer directly, without going through a bones.Repo.
type eventFixture = codec.Event

func makeEvent(t *testing.T, itemID, agent string, stamp itc.Stamp, wallTS int64, evType codec.EventType, parents []string, data map[string]any) eventFixture {
	t.Helper()
	ev := codec.Event{
		WallTSUs: wallTS,
		Agent:    agent,
		ITC:      itc.EncodeText(stamp),
		Parents:  parents,
		Type:     evType,
		ItemID:   itemID,
		Data:     data,
	}
	hash, err := codec.ComputeHash(&ev)
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	ev.EventHash = hash
	return ev
}

func replayFixture(events []eventFixture) lattice.ItemState {
	r := dag.NewReplayer()
	r.Replay(events)
	return r.ItemState("bn-conv")
}

// buildConvergenceFixture builds the "concurrent label add" scenario
// (spec's end-to-end scenario 1): a create event, then two concurrent
// item.link events adding disjoint labels from independently forked ITC
// stamps.
func buildConvergenceFixture(t *testing.T) []eventFixture {
	t.Helper()
	root := itc.Seed()
	s1, s2 := root.Fork()

	create := makeEvent(t, "bn-conv", "alice", root.Record(), 1_000, codec.TypeItemCreate, nil,
		map[string]any{"title": "ship it"})

	labelA := makeEvent(t, "bn-conv", "alice", s1.Record(), 2_000, codec.TypeItemLink, []string{create.EventHash},
		map[string]any{"field": "labels", "target": "backend"})
	labelB := makeEvent(t, "bn-conv", "bob", s2.Record(), 2_001, codec.TypeItemLink, []string{create.EventHash},
		map[string]any{"field": "labels", "target": "frontend"})

	moveA := makeEvent(t, "bn-conv", "alice", s1.Record().Record(), 3_000, codec.TypeItemMove, []string{labelA.EventHash},
		map[string]any{"phase": "doing"})
	moveB := makeEvent(t, "bn-conv", "bob", s2.Record().Record(), 3_001, codec.TypeItemMove, []string{labelB.EventHash},
		map[string]any{"phase": "done"})

	return []eventFixture{create, labelA, labelB, moveA, moveB}
}
