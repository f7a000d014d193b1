package lattice

import "sort"

// Comment is one entry in an item's grow-only comment set, keyed by the
// hash of the item.comment event that created it.
type Comment struct {
	EventHash string
	WallTSUs  int64
	Agent     string
	Body      string
	Redacted  bool
}

// CommentSet is a grow-only set of comments keyed by event hash: once a
// comment is observed it is never removed, only (optionally) redacted in
// place. Merge is plain map union plus per-key redaction-wins, which
// keeps it commutative, associative, and idempotent.
type CommentSet map[string]Comment

// Add records comment if its hash has not already been observed. A
// duplicate Add (the same event replayed twice) is a no-op, which is
// what idempotence requires.
func (c CommentSet) Add(comment Comment) CommentSet {
	if _, ok := c[comment.EventHash]; ok {
		return c
	}
	out := c.clone()
	out[comment.EventHash] = comment
	return out
}

// Redact replaces the body of the comment created by hash with the
// redaction marker. Redacting a hash that has not been observed yet is a
// no-op; the real redact event that named it should have listed a
// parent, so the comment is expected to already be present.
func (c CommentSet) Redact(hash string) CommentSet {
	existing, ok := c[hash]
	if !ok || existing.Redacted {
		return c
	}
	existing.Body = "[redacted]"
	existing.Redacted = true
	out := c.clone()
	out[hash] = existing
	return out
}

// Merge unions two comment sets, preferring the redacted copy of any
// comment both sides know about (redaction must not be reversible by a
// replica that replays the original, unredacted event after the fact).
func (c CommentSet) Merge(other CommentSet) CommentSet {
	out := c.clone()
	for hash, comment := range other {
		existing, ok := out[hash]
		switch {
		case !ok:
			out[hash] = comment
		case comment.Redacted && !existing.Redacted:
			out[hash] = comment
		}
	}
	return out
}

// Ordered returns the comments in deterministic (wall_ts_us, event_hash)
// order.
func (c CommentSet) Ordered() []Comment {
	out := make([]Comment, 0, len(c))
	for _, comment := range c {
		out = append(out, comment)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WallTSUs != out[j].WallTSUs {
			return out[i].WallTSUs < out[j].WallTSUs
		}
		return out[i].EventHash < out[j].EventHash
	})
	return out
}

func (c CommentSet) clone() CommentSet {
	out := make(CommentSet, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}
