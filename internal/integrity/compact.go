package integrity

import (
	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/dag"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
)

// MinCompactionAgeUs is the default minimum time a done/archived item
// must sit untouched before it becomes eligible for snapshot
// compaction.
const MinCompactionAgeUs = int64(30 * 24 * 60 * 60 * 1_000_000) // 30 days

// IsEligibleForCompaction reports whether state may be folded into an
// item.snapshot event: it must have settled into done or archived, and
// its most recent observed activity must be at least minAgeUs before
// nowUs. Items still open or doing are never compacted — their state is
// expected to keep changing, and a snapshot buys nothing for a log that
// is still actively mutated.
func IsEligibleForCompaction(state lattice.ItemState, nowUs, minAgeUs int64) bool {
	switch state.Status.Phase {
	case lattice.PhaseDone, lattice.PhaseArchived:
	default:
		return false
	}
	return nowUs-LastActivityUs(state) >= minAgeUs
}

// LastActivityUs returns the most recent wall_ts_us carried by any
// register entry or comment in state, or zero if the item has never
// been touched.
func LastActivityUs(state lattice.ItemState) int64 {
	var last int64
	consider := func(ts int64) {
		if ts > last {
			last = ts
		}
	}
	if state.Title.Set {
		consider(state.Title.Entry.WallTSUs)
	}
	if state.Description.Set {
		consider(state.Description.Entry.WallTSUs)
	}
	if state.Kind.Set {
		consider(state.Kind.Entry.WallTSUs)
	}
	if state.Size.Set {
		consider(state.Size.Entry.WallTSUs)
	}
	if state.Urgency.Set {
		consider(state.Urgency.Entry.WallTSUs)
	}
	if state.Parent.Set {
		consider(state.Parent.Entry.WallTSUs)
	}
	if state.Deleted.Set {
		consider(state.Deleted.Entry.WallTSUs)
	}
	for _, c := range state.Comments.Ordered() {
		consider(c.WallTSUs)
	}
	return last
}

// BuildSnapshotPayload renders state as the Data payload of an
// item.snapshot event: every LWW field carries its full comparator
// tuple (stamp, wall_ts_us, agent, event_hash) alongside its value, so
// a replica that starts from the snapshot instead of full history
// reconstructs the exact same winner on any future concurrent write,
// not merely the same value.
func BuildSnapshotPayload(state lattice.ItemState) map[string]any {
	data := map[string]any{}

	putRegister(data, "title", state.Title)
	putRegister(data, "description", state.Description)
	putRegister(data, "kind", state.Kind)
	putFloatRegister(data, "size", state.Size)
	putFloatRegister(data, "urgency", state.Urgency)
	putRegister(data, "parent", state.Parent)
	putBoolRegister(data, "deleted", state.Deleted)

	data["status"] = map[string]any{
		"epoch": state.Status.Epoch,
		"phase": string(state.Status.Phase),
	}

	data["labels"] = state.Labels.Values()
	data["assignees"] = state.Assignees.Values()
	data["blocked_by"] = state.BlockedBy.Values()
	data["related_to"] = state.RelatedTo.Values()

	var comments []any
	for _, c := range state.Comments.Ordered() {
		comments = append(comments, map[string]any{
			"event_hash": c.EventHash,
			"wall_ts_us": c.WallTSUs,
			"agent":      c.Agent,
			"body":       c.Body,
			"redacted":   c.Redacted,
		})
	}
	data["comments"] = comments

	return data
}

func putRegister(data map[string]any, key string, r lattice.Register[string]) {
	if !r.Set {
		return
	}
	data[key] = entryObject(r.Entry, r.Value)
}

func putFloatRegister(data map[string]any, key string, r lattice.Register[float64]) {
	if !r.Set {
		return
	}
	data[key] = entryObject(r.Entry, r.Value)
}

func putBoolRegister(data map[string]any, key string, r lattice.Register[bool]) {
	if !r.Set {
		return
	}
	data[key] = entryObject(r.Entry, r.Value)
}

func entryObject(e lattice.Entry, value any) map[string]any {
	return map[string]any{
		"value":      value,
		"stamp":      itc.EncodeText(e.Stamp),
		"wall_ts_us": e.WallTSUs,
		"agent":      e.Agent,
		"event_hash": e.EventHash,
	}
}

// DecodeSnapshotPatch parses a snapshot event's Data payload back into an
// ItemState patch carrying the original comparator tuples, suitable for
// merging (via ItemState.Merge) into a replica's in-progress state the
// same way any other patch is. The decode itself lives in internal/dag
// alongside applyEvent's replay switch, since that is the only place the
// result is ever consumed in production; this just re-exports it under
// the name BuildSnapshotPayload's callers and this package's tests
// already expect.
func DecodeSnapshotPatch(data map[string]any) (lattice.ItemState, error) {
	return dag.DecodeSnapshotPatch(data)
}

// ApplySnapshot folds ev, an item.snapshot or item.compact event, into
// states[ev.ItemID]. It is the same join-based merge internal/dag's
// applyEvent switch uses when replaying a log that has been compacted
// down to a snapshot marker; kept here too since BuildSnapshotPayload's
// round-trip is exercised from this package's tests.
func ApplySnapshot(states map[string]lattice.ItemState, ev codec.Event) *dag.Warning {
	return dag.ApplySnapshot(states, ev)
}
