package dag

import (
	"fmt"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/itc"
	"github.com/bobisme/bones/internal/lattice"
)

// Warning reports an event that was applied to the lattice as a
// deterministic no-op, because its type was outside the known catalog
// or its Data payload did not carry the fields its type requires.
type Warning struct {
	EventHash string
	Message   string
}

// applyEvent folds ev into states[ev.ItemID], returning a Warning if ev
// could not be interpreted. Unknown types and malformed payloads are
// no-ops: the item's state is left unchanged (modulo the entry-less
// fields every event still touches via Merge's bottom identity), but
// the event is still considered "applied" by the caller so the replay
// cursor keeps advancing.
func applyEvent(states map[string]lattice.ItemState, ev codec.Event) *Warning {
	stamp, err := itc.DecodeText(ev.ITC)
	if err != nil {
		return &Warning{EventHash: ev.EventHash, Message: fmt.Sprintf("malformed itc stamp: %v", err)}
	}
	entry := lattice.Entry{Stamp: stamp, WallTSUs: ev.WallTSUs, Agent: ev.Agent, EventHash: ev.EventHash}

	item, ok := states[ev.ItemID]
	if !ok {
		item = lattice.NewItemState()
	}

	if !ev.Type.Known() {
		states[ev.ItemID] = item
		return &Warning{EventHash: ev.EventHash, Message: fmt.Sprintf("unknown event type %q", ev.Type)}
	}

	patch := lattice.NewItemState()
	var warn *Warning

	switch ev.Type {
	case codec.TypeItemCreate:
		warn = applyCreate(&patch, ev, entry)
	case codec.TypeItemUpdate:
		warn = applyUpdate(&patch, ev, entry)
	case codec.TypeItemMove:
		warn = applyMove(&patch, item, ev)
	case codec.TypeItemAssign:
		warn = applyAssign(&patch, ev, stamp)
	case codec.TypeItemLink:
		warn = applyLinkEvent(&patch, ev, stamp, true)
	case codec.TypeItemUnlink:
		warn = applyLinkEvent(&patch, ev, stamp, false)
	case codec.TypeItemComment:
		warn = applyComment(&item, ev)
	case codec.TypeItemRedact:
		warn = applyRedact(&item, ev)
	case codec.TypeItemDelete:
		deleted, ok := dataBool(ev.Data, "deleted")
		if !ok {
			deleted = true
		}
		patch.Deleted = lattice.NewRegister(deleted, entry)
	case codec.TypeItemCompact, codec.TypeItemSnapshot:
		// Carries real comparator entries rather than a fresh stamp, so it
		// merges straight into states and skips the patch dance below.
		return ApplySnapshot(states, ev)
	}

	states[ev.ItemID] = item.Merge(patch)
	return warn
}

func applyCreate(patch *lattice.ItemState, ev codec.Event, entry lattice.Entry) *Warning {
	title, ok := dataString(ev.Data, "title")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.create missing string field \"title\""}
	}
	patch.Title = lattice.NewRegister(title, entry)

	if kind, ok := dataString(ev.Data, "kind"); ok {
		patch.Kind = lattice.NewRegister(kind, entry)
	}
	if desc, ok := dataString(ev.Data, "description"); ok {
		patch.Description = lattice.NewRegister(desc, entry)
	}
	if parent, ok := dataString(ev.Data, "parent"); ok {
		patch.Parent = lattice.NewRegister(parent, entry)
	}
	if size, ok := dataFloat(ev.Data, "size"); ok {
		patch.Size = lattice.NewRegister(size, entry)
	}
	if urgency, ok := dataFloat(ev.Data, "urgency"); ok {
		patch.Urgency = lattice.NewRegister(urgency, entry)
	}
	patch.Status = lattice.EpochPhase{Epoch: 0, Phase: lattice.PhaseOpen}
	for _, label := range dataStringSlice(ev.Data, "labels") {
		patch.Labels = patch.Labels.Add(label, entry.Stamp)
	}
	return nil
}

func applyUpdate(patch *lattice.ItemState, ev codec.Event, entry lattice.Entry) *Warning {
	touched := false
	if title, ok := dataString(ev.Data, "title"); ok {
		patch.Title = lattice.NewRegister(title, entry)
		touched = true
	}
	if desc, ok := dataString(ev.Data, "description"); ok {
		patch.Description = lattice.NewRegister(desc, entry)
		touched = true
	}
	if kind, ok := dataString(ev.Data, "kind"); ok {
		patch.Kind = lattice.NewRegister(kind, entry)
		touched = true
	}
	if parent, ok := dataString(ev.Data, "parent"); ok {
		patch.Parent = lattice.NewRegister(parent, entry)
		touched = true
	}
	if size, ok := dataFloat(ev.Data, "size"); ok {
		patch.Size = lattice.NewRegister(size, entry)
		touched = true
	}
	if urgency, ok := dataFloat(ev.Data, "urgency"); ok {
		patch.Urgency = lattice.NewRegister(urgency, entry)
		touched = true
	}
	if !touched {
		return &Warning{EventHash: ev.EventHash, Message: "item.update touched no recognized field"}
	}
	return nil
}

func applyMove(patch *lattice.ItemState, current lattice.ItemState, ev codec.Event) *Warning {
	if reopen, _ := dataBool(ev.Data, "reopen"); reopen {
		patch.Status = lattice.Reopen(current.Status)
		return nil
	}
	phaseStr, ok := dataString(ev.Data, "phase")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.move missing string field \"phase\""}
	}
	phase := lattice.Phase(phaseStr)
	if !phase.Valid() {
		return &Warning{EventHash: ev.EventHash, Message: fmt.Sprintf("item.move unknown phase %q", phaseStr)}
	}
	patch.Status = lattice.EpochPhase{Epoch: current.Status.Epoch, Phase: phase}
	return nil
}

func applyAssign(patch *lattice.ItemState, ev codec.Event, stamp itc.Stamp) *Warning {
	value, ok := dataString(ev.Data, "agent")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.assign missing string field \"agent\""}
	}
	action, _ := dataString(ev.Data, "action")
	if action == "remove" {
		patch.Assignees = patch.Assignees.Remove(value, stamp)
	} else {
		patch.Assignees = patch.Assignees.Add(value, stamp)
	}
	return nil
}

func applyLinkEvent(patch *lattice.ItemState, ev codec.Event, stamp itc.Stamp, add bool) *Warning {
	field, ok := dataString(ev.Data, "field")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.link missing string field \"field\""}
	}
	target, ok := dataString(ev.Data, "target")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.link missing string field \"target\""}
	}

	switch field {
	case "blocked_by":
		if add {
			patch.BlockedBy = patch.BlockedBy.Add(target, stamp)
		} else {
			patch.BlockedBy = patch.BlockedBy.Remove(target, stamp)
		}
	case "related_to":
		if add {
			patch.RelatedTo = patch.RelatedTo.Add(target, stamp)
		} else {
			patch.RelatedTo = patch.RelatedTo.Remove(target, stamp)
		}
	case "labels":
		if add {
			patch.Labels = patch.Labels.Add(target, stamp)
		} else {
			patch.Labels = patch.Labels.Remove(target, stamp)
		}
	case "assignees":
		if add {
			patch.Assignees = patch.Assignees.Add(target, stamp)
		} else {
			patch.Assignees = patch.Assignees.Remove(target, stamp)
		}
	default:
		return &Warning{EventHash: ev.EventHash, Message: fmt.Sprintf("item.link unknown field %q", field)}
	}
	return nil
}

func applyComment(item *lattice.ItemState, ev codec.Event) *Warning {
	body, ok := dataString(ev.Data, "body")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.comment missing string field \"body\""}
	}
	item.Comments = item.Comments.Add(lattice.Comment{
		EventHash: ev.EventHash,
		WallTSUs:  ev.WallTSUs,
		Agent:     ev.Agent,
		Body:      body,
	})
	return nil
}

func applyRedact(item *lattice.ItemState, ev codec.Event) *Warning {
	hash, ok := dataString(ev.Data, "comment_hash")
	if !ok {
		return &Warning{EventHash: ev.EventHash, Message: "item.redact missing string field \"comment_hash\""}
	}
	item.Comments = item.Comments.Redact(hash)
	return nil
}

func dataString(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func dataBool(data map[string]any, key string) (bool, bool) {
	v, ok := data[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func dataFloat(data map[string]any, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func dataStringSlice(data map[string]any, key string) []string {
	v, ok := data[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
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
