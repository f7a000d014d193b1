package integrity

import "github.com/bobisme/bones/internal/lattice"

// NoRedactedLeak reports whether state's comments are free of any
// unredacted copy that should have been redacted. It exists as a
// defensive check for tests and for rebuild/verify tooling: redaction
// is otherwise enforced purely by replay order (internal/dag applies
// item.redact by calling CommentSet.Redact, and CommentSet.Merge always
// prefers a redacted copy over an unredacted one — see
// internal/lattice/comments.go), so nothing here can make a comment
// redacted that the lattice itself did not already redact.
//
// Because BuildSnapshotPayload always reads from an ItemState that has
// already passed through that merge, a snapshot taken after a
// redaction can never re-embed the original body: there is no code
// path that constructs a snapshot from anything other than the current,
// already-redacted lattice state.
func NoRedactedLeak(state lattice.ItemState) bool {
	for _, c := range state.Comments.Ordered() {
		if c.Redacted && c.Body != "[redacted]" {
			return false
		}
	}
	return true
}
