package dag

import (
	"fmt"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
)

// ApplySnapshot folds ev, an item.snapshot or item.compact event, into
// states[ev.ItemID]. Unlike every other event type, a snapshot patch already
// carries real comparator entries rather than being built fresh from ev's own
// stamp, so it is decoded and merged here rather than through applyEvent's
// per-type dispatch. This is the only path that lets a replica whose log was
// pruned down to just a compaction marker reconstruct the snapshotted state.
// Exported so internal/integrity (which implements the encode side via
// BuildSnapshotPayload) can drive the same decode path from its own tests
// and tooling without duplicating it.
func ApplySnapshot(states map[string]lattice.ItemState, ev codec.Event) *Warning {
	patch, err := DecodeSnapshotPatch(ev.Data)
	if err != nil {
		return &Warning{EventHash: ev.EventHash, Message: err.Error()}
	}
	current, ok := states[ev.ItemID]
	if !ok {
		current = lattice.NewItemState()
	}
	states[ev.ItemID] = current.Merge(patch)
	return nil
}

// DecodeSnapshotPatch parses a snapshot event's Data payload back into an
// ItemState patch carrying the original comparator tuples, suitable for
// merging via ItemState.Merge into a replica's in-progress state the same
// way any other patch is.
func DecodeSnapshotPatch(data map[string]any) (lattice.ItemState, error) {
	patch := lattice.NewItemState()

	if obj, ok := snapDataMap(data, "title"); ok {
		r, err := decodeStringRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot title: %w", err)
		}
		patch.Title = r
	}
	if obj, ok := snapDataMap(data, "description"); ok {
		r, err := decodeStringRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot description: %w", err)
		}
		patch.Description = r
	}
	if obj, ok := snapDataMap(data, "kind"); ok {
		r, err := decodeStringRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot kind: %w", err)
		}
		patch.Kind = r
	}
	if obj, ok := snapDataMap(data, "parent"); ok {
		r, err := decodeStringRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot parent: %w", err)
		}
		patch.Parent = r
	}
	if obj, ok := snapDataMap(data, "size"); ok {
		r, err := decodeFloatRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot size: %w", err)
		}
		patch.Size = r
	}
	if obj, ok := snapDataMap(data, "urgency"); ok {
		r, err := decodeFloatRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot urgency: %w", err)
		}
		patch.Urgency = r
	}
	if obj, ok := snapDataMap(data, "deleted"); ok {
		r, err := decodeBoolRegister(obj)
		if err != nil {
			return patch, fmt.Errorf("dag: snapshot deleted: %w", err)
		}
		patch.Deleted = r
	}

	if status, ok := snapDataMap(data, "status"); ok {
		epoch, _ := snapDataUint64(status, "epoch")
		phase, _ := snapDataString(status, "phase")
		patch.Status = lattice.EpochPhase{Epoch: epoch, Phase: lattice.Phase(phase)}
	}

	anonymous := itc.Anonymous()
	for _, label := range snapDataStringSlice(data, "labels") {
		patch.Labels = patch.Labels.Add(label, anonymous)
	}
	for _, agent := range snapDataStringSlice(data, "assignees") {
		patch.Assignees = patch.Assignees.Add(agent, anonymous)
	}
	for _, id := range snapDataStringSlice(data, "blocked_by") {
		patch.BlockedBy = patch.BlockedBy.Add(id, anonymous)
	}
	for _, id := range snapDataStringSlice(data, "related_to") {
		patch.RelatedTo = patch.RelatedTo.Add(id, anonymous)
	}

	for _, raw := range snapDataSlice(data, "comments") {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		hash, _ := snapDataString(obj, "event_hash")
		body, _ := snapDataString(obj, "body")
		agent, _ := snapDataString(obj, "agent")
		wallTS, _ := snapDataInt64(obj, "wall_ts_us")
		redacted, _ := snapDataBool(obj, "redacted")
		if hash == "" {
			continue
		}
		comment := lattice.Comment{EventHash: hash, WallTSUs: wallTS, Agent: agent, Body: body, Redacted: redacted}
		patch.Comments = patch.Comments.Add(comment)
		if redacted {
			patch.Comments = patch.Comments.Redact(hash)
		}
	}

	return patch, nil
}

func decodeStringRegister(obj map[string]any) (lattice.Register[string], error) {
	value, _ := snapDataString(obj, "value")
	entry, err := decodeSnapshotEntry(obj)
	if err != nil {
		return lattice.Register[string]{}, err
	}
	return lattice.NewRegister(value, entry), nil
}

func decodeFloatRegister(obj map[string]any) (lattice.Register[float64], error) {
	value, _ := snapDataFloat(obj, "value")
	entry, err := decodeSnapshotEntry(obj)
	if err != nil {
		return lattice.Register[float64]{}, err
	}
	return lattice.NewRegister(value, entry), nil
}

func decodeBoolRegister(obj map[string]any) (lattice.Register[bool], error) {
	value, _ := snapDataBool(obj, "value")
	entry, err := decodeSnapshotEntry(obj)
	if err != nil {
		return lattice.Register[bool]{}, err
	}
	return lattice.NewRegister(value, entry), nil
}

func decodeSnapshotEntry(obj map[string]any) (lattice.Entry, error) {
	stampText, _ := snapDataString(obj, "stamp")
	stamp, err := itc.DecodeText(stampText)
	if err != nil {
		return lattice.Entry{}, fmt.Errorf("decode stamp: %w", err)
	}
	wallTS, _ := snapDataInt64(obj, "wall_ts_us")
	agent, _ := snapDataString(obj, "agent")
	hash, _ := snapDataString(obj, "event_hash")
	return lattice.Entry{Stamp: stamp, WallTSUs: wallTS, Agent: agent, EventHash: hash}, nil
}

func snapDataMap(data map[string]any, key string) (map[string]any, bool) {
	v, ok := data[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func snapDataSlice(data map[string]any, key string) []any {
	v, ok := data[key]
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

func snapDataString(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func snapDataBool(data map[string]any, key string) (bool, bool) {
	v, ok := data[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func snapDataFloat(data map[string]any, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func snapDataInt64(data map[string]any, key string) (int64, bool) {
	f, ok := snapDataFloat(data, key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func snapDataUint64(data map[string]any, key string) (uint64, bool) {
	f, ok := snapDataFloat(data, key)
	if !ok {
		return 0, false
	}
	return uint64(f), true
}

func snapDataStringSlice(data map[string]any, key string) []string {
	raw := snapDataSlice(data, key)
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
