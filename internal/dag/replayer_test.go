package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/itc"
)

func TestReplayerAppliesCreateThenMove(t *testing.T) {
	stamp := itc.Seed()
	root := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{
		"title": "fix the thing", "kind": "task",
	})
	stamp = stamp.Record()
	move := buildEvent(t, 2000, "agent-a", stamp, []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{
		"phase": "doing",
	})

	r := NewReplayer()
	warnings := r.Replay([]codec.Event{root, move})
	require.Empty(t, warnings)

	state := r.ItemState("bn-1")
	assert.Equal(t, "fix the thing", state.Title.Value)
	assert.Equal(t, "task", state.Kind.Value)
	assert.Equal(t, uint64(0), state.Status.Epoch)
	assert.EqualValues(t, "doing", state.Status.Phase)
	assert.Equal(t, 2, r.Cursor())
}

func TestReplayerBuffersEventWithMissingParent(t *testing.T) {
	stamp := itc.Seed()
	orphanParent := "blake3:never-arrives"
	move := buildEvent(t, 2000, "agent-a", stamp.Record(), []string{orphanParent}, "bn-1", codec.TypeItemMove, map[string]any{
		"phase": "doing",
	})

	r := NewReplayer()
	warnings := r.Replay([]codec.Event{move})
	assert.Empty(t, warnings)

	state := r.ItemState("bn-1")
	// Never applied: the item was never created, status stays at bottom.
	assert.False(t, state.Title.Set)
	assert.Equal(t, uint64(0), state.Status.Epoch)
	assert.Equal(t, 1, r.Cursor(), "cursor still advances past buffered events")
}

func TestReplayerReplayFromRejectsWrongCursor(t *testing.T) {
	r := NewReplayer()
	_, err := r.ReplayFrom(5, nil)
	assert.Error(t, err)
}

func TestReplayerIncrementalReplayMatchesFullReplay(t *testing.T) {
	stamp := itc.Seed()
	root := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	stamp = stamp.Record()
	move := buildEvent(t, 2000, "agent-a", stamp, []string{root.EventHash}, "bn-1", codec.TypeItemMove, map[string]any{"phase": "doing"})

	full := NewReplayer()
	full.Replay([]codec.Event{root, move})

	incremental := NewReplayer()
	_, err := incremental.ReplayFrom(0, []codec.Event{root})
	require.NoError(t, err)
	_, err = incremental.ReplayFrom(1, []codec.Event{move})
	require.NoError(t, err)

	assert.Equal(t, full.ItemState("bn-1"), incremental.ItemState("bn-1"))
	assert.Equal(t, full.Cursor(), incremental.Cursor())
}

func TestReplayerConcurrentLabelAddsConverge(t *testing.T) {
	// Scenario 1 from the spec, replayed end to end through the DAG: two
	// replicas add different labels concurrently; after both events are
	// known, both labels are present.
	stamp := itc.Seed()
	root := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	left, right := stamp.Fork()
	addBackend := buildEvent(t, 2000, "agent-a", left.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemLink, map[string]any{
		"field": "labels", "target": "backend",
	})
	addFrontend := buildEvent(t, 2100, "agent-b", right.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemLink, map[string]any{
		"field": "labels", "target": "frontend",
	})

	r := NewReplayer()
	warnings := r.Replay([]codec.Event{root, addBackend, addFrontend})
	require.Empty(t, warnings)

	labels := r.ItemState("bn-1").Labels.Values()
	assert.ElementsMatch(t, []string{"backend", "frontend"}, labels)
}

func TestReplayerUnknownEventTypeWarnsAndAdvancesCursor(t *testing.T) {
	ev := buildEvent(t, 1000, "agent-a", itc.Seed(), nil, "bn-1", codec.EventType("item.mystery"), map[string]any{"whatever": true})

	r := NewReplayer()
	warnings := r.Replay([]codec.Event{ev})
	require.Len(t, warnings, 1)
	assert.Equal(t, ev.EventHash, warnings[0].EventHash)
	assert.Equal(t, 1, r.Cursor())
}

func TestReplayerMalformedUpdateWarnsButAdvances(t *testing.T) {
	stamp := itc.Seed()
	root := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	badUpdate := buildEvent(t, 2000, "agent-a", stamp.Record(), []string{root.EventHash}, "bn-1", codec.TypeItemUpdate, map[string]any{
		"unrecognized_field": "value",
	})

	r := NewReplayer()
	warnings := r.Replay([]codec.Event{root, badUpdate})
	require.Len(t, warnings, 1)
	assert.Equal(t, badUpdate.EventHash, warnings[0].EventHash)

	state := r.ItemState("bn-1")
	assert.Equal(t, "root", state.Title.Value, "well-formed create is unaffected by a sibling malformed update")
}

func TestReplayerCommentThenRedact(t *testing.T) {
	stamp := itc.Seed()
	root := buildEvent(t, 1000, "agent-a", stamp, nil, "bn-1", codec.TypeItemCreate, map[string]any{"title": "root"})
	stamp = stamp.Record()
	comment := buildEvent(t, 2000, "agent-a", stamp, []string{root.EventHash}, "bn-1", codec.TypeItemComment, map[string]any{
		"body": "this needs more detail",
	})
	stamp = stamp.Record()
	redact := buildEvent(t, 3000, "agent-b", stamp, []string{comment.EventHash}, "bn-1", codec.TypeItemRedact, map[string]any{
		"comment_hash": comment.EventHash,
	})

	r := NewReplayer()
	warnings := r.Replay([]codec.Event{root, comment, redact})
	require.Empty(t, warnings)

	comments := r.ItemState("bn-1").Comments.Ordered()
	require.Len(t, comments, 1)
	assert.True(t, comments[0].Redacted)
	assert.Equal(t, "[redacted]", comments[0].Body)
}
