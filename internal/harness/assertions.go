package harness

import (
	"fmt"
	"sort"

	"github.com/bobisme/bones/internal/lattice"
)

// evaluateAssertion checks one scenario assertion, returning a non-nil
// error describing the mismatch (never a Go runtime error — an unknown
// replica or item is reported as an assertion failure too, since that's
// itself a scenario-authoring mistake worth surfacing the same way).
func evaluateAssertion(index int, a Assertion, replicas map[string]*replica, defaultReplica string) error {
	switch a.Type {
	case AssertItemField:
		name := a.Replica
		if name == "" {
			name = defaultReplica
		}
		rep, ok := replicas[name]
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown replica %q", index, name)
		}
		state, ok := rep.repo.ReadItem(a.ItemID)
		if !ok {
			return fmt.Errorf("assertions[%d]: item %q not found on replica %q", index, a.ItemID, name)
		}
		return compareField(index, a, state)

	case AssertMergedItemField:
		state, err := mergedItemState(replicas, a.ItemID)
		if err != nil {
			return fmt.Errorf("assertions[%d]: merge failed: %w", index, err)
		}
		return compareField(index, a, state)

	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}

func compareField(index int, a Assertion, state lattice.ItemState) error {
	got, err := fieldValue(state, a.Field)
	if err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}
	if !valuesEqual(got, a.Equals) {
		return fmt.Errorf("assertions[%d]: item %q field %q: expected %v, got %v", index, a.ItemID, a.Field, a.Equals, got)
	}
	return nil
}

// fieldValue extracts a comparable value for the named field out of an
// item's lattice state. Set-valued fields return []string so
// valuesEqual can compare them order-independently.
func fieldValue(state lattice.ItemState, field string) (any, error) {
	switch field {
	case "title":
		return state.Title.Value, nil
	case "description":
		return state.Description.Value, nil
	case "kind":
		return state.Kind.Value, nil
	case "parent":
		return state.Parent.Value, nil
	case "phase":
		return string(state.Status.Phase), nil
	case "epoch":
		return float64(state.Status.Epoch), nil
	case "deleted":
		return state.IsDeleted(), nil
	case "labels":
		return state.Labels.Values(), nil
	case "assignees":
		return state.Assignees.Values(), nil
	case "blocked_by":
		return state.BlockedByIDs(), nil
	case "related_to":
		return state.RelatedToIDs(), nil
	case "comment_count":
		return float64(len(state.Comments.Ordered())), nil
	case "comment_bodies":
		var bodies []string
		for _, c := range state.Comments.Ordered() {
			bodies = append(bodies, c.Body)
		}
		return bodies, nil
	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}

// valuesEqual compares a fieldValue result against an expected YAML
// value. Expected set values decode as []any of strings; got values for
// set fields are []string. Both sides are treated as unordered sets of
// strings when either is slice-shaped.
func valuesEqual(got, want any) bool {
	gotSet, gotIsSet := toStringSet(got)
	wantSet, wantIsSet := toStringSet(want)
	if gotIsSet || wantIsSet {
		return stringSetsEqual(gotSet, wantSet)
	}

	switch w := want.(type) {
	case int:
		if g, ok := got.(float64); ok {
			return g == float64(w)
		}
	case float64:
		if g, ok := got.(float64); ok {
			return g == w
		}
	}
	return got == want
}

func toStringSet(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func stringSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
