package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/lattice"
)

// stateSnapshot is the canonical, deterministic rendering of an item's
// final lattice state used for golden-file comparison.
type stateSnapshot struct {
	ItemID        string   `json:"item_id"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	Kind          string   `json:"kind,omitempty"`
	Parent        string   `json:"parent,omitempty"`
	Epoch         uint64   `json:"epoch"`
	Phase         string   `json:"phase,omitempty"`
	Deleted       bool     `json:"deleted"`
	Labels        []string `json:"labels,omitempty"`
	Assignees     []string `json:"assignees,omitempty"`
	BlockedBy     []string `json:"blocked_by,omitempty"`
	RelatedTo     []string `json:"related_to,omitempty"`
	CommentBodies []string `json:"comment_bodies,omitempty"`
}

func newStateSnapshot(itemID string, state lattice.ItemState) stateSnapshot {
	var bodies []string
	for _, c := range state.Comments.Ordered() {
		bodies = append(bodies, c.Body)
	}
	return stateSnapshot{
		ItemID:        itemID,
		Title:         state.Title.Value,
		Description:   state.Description.Value,
		Kind:          state.Kind.Value,
		Parent:        state.Parent.Value,
		Epoch:         state.Status.Epoch,
		Phase:         string(state.Status.Phase),
		Deleted:       state.IsDeleted(),
		Labels:        state.Labels.Values(),
		Assignees:     state.Assignees.Values(),
		BlockedBy:     state.BlockedByIDs(),
		RelatedTo:     state.RelatedToIDs(),
		CommentBodies: bodies,
	}
}

// AssertGoldenItemState compares itemID's current state on a replica
// (or the merged state across replicas, for convergence scenarios)
// against a golden file at testdata/golden/<name>.golden, canonically
// serialized the same way an event's Data payload is hashed. Run with
// `go test ./internal/harness -update` to (re)write the golden file.
func AssertGoldenItemState(t *testing.T, name, itemID string, state lattice.ItemState) {
	t.Helper()

	snap := newStateSnapshot(itemID, state)
	out, err := codec.MarshalCanonicalJSON(toAnyMap(snap))
	if err != nil {
		t.Fatalf("harness: marshal golden snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, out)
}

// toAnyMap converts a stateSnapshot into the map[string]any shape
// MarshalCanonicalJSON expects, mirroring how codec.EncodeLine flattens
// an event's Data field before hashing.
func toAnyMap(s stateSnapshot) map[string]any {
	m := map[string]any{
		"item_id": s.ItemID,
		"epoch":   float64(s.Epoch),
		"deleted": s.Deleted,
	}
	if s.Title != "" {
		m["title"] = s.Title
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Kind != "" {
		m["kind"] = s.Kind
	}
	if s.Parent != "" {
		m["parent"] = s.Parent
	}
	if s.Phase != "" {
		m["phase"] = s.Phase
	}
	if len(s.Labels) > 0 {
		m["labels"] = stringsToAny(s.Labels)
	}
	if len(s.Assignees) > 0 {
		m["assignees"] = stringsToAny(s.Assignees)
	}
	if len(s.BlockedBy) > 0 {
		m["blocked_by"] = stringsToAny(s.BlockedBy)
	}
	if len(s.RelatedTo) > 0 {
		m["related_to"] = stringsToAny(s.RelatedTo)
	}
	if len(s.CommentBodies) > 0 {
		m["comment_bodies"] = stringsToAny(s.CommentBodies)
	}
	return m
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
