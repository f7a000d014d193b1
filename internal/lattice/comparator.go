package lattice

import (
	"strings"

	"github.com/bobisme/bones/internal/itc"
)

// Entry carries the four-tuple every LWW comparison resolves over: the
// producer's causal stamp, its wall-clock timestamp, the writing agent,
// and the event hash. It is the metadata half of a Register[T] value.
type Entry struct {
	Stamp     itc.Stamp
	WallTSUs  int64
	Agent     string
	EventHash string
}

// Compare implements the normative total order: ITC causal dominance,
// then wall_ts_us, then agent, then event_hash. It returns a negative
// number if a is strictly before b, a positive number if a is strictly
// after b, and zero only when every field of the tie-break chain ties
// (in practice, when a and b describe the same write).
//
// Reordering these steps is non-conformant: two replicas applying the
// same concurrent writes in different comparator orders would diverge.
func Compare(a, b Entry) int {
	if c := compareCausal(a.Stamp, b.Stamp); c != 0 {
		return c
	}
	if a.WallTSUs != b.WallTSUs {
		if a.WallTSUs < b.WallTSUs {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Agent, b.Agent); c != 0 {
		return c
	}
	return strings.Compare(a.EventHash, b.EventHash)
}

// compareCausal returns -1 if a causally precedes b (and not vice versa),
// 1 if b causally precedes a, and 0 if the pair is concurrent or equal —
// in either of those cases the remaining comparator steps decide.
func compareCausal(a, b itc.Stamp) int {
	aLeqB := a.Leq(b)
	bLeqA := b.Leq(a)
	switch {
	case aLeqB && !bLeqA:
		return -1
	case bLeqA && !aLeqB:
		return 1
	default:
		return 0
	}
}

// Wins reports whether a is kept over b when merging two writes to the
// same LWW field: a wins if it is not strictly before b in the
// comparator order. Ties (identical writes, or causally equal stamps)
// favor a, which makes repeated self-merge idempotent.
func Wins(a, b Entry) bool {
	return Compare(a, b) >= 0
}
