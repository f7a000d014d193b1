package lattice

// Phase is an item's lifecycle stage within an epoch. The zero value ""
// is not a valid phase on its own — it only appears as part of the zero
// EpochPhase, the bottom element of the join.
type Phase string

const (
	PhaseOpen     Phase = "open"
	PhaseDoing    Phase = "doing"
	PhaseDone     Phase = "done"
	PhaseArchived Phase = "archived"
)

var phaseRank = map[Phase]int{
	"":            -1,
	PhaseOpen:     0,
	PhaseDoing:    1,
	PhaseDone:     2,
	PhaseArchived: 3,
}

// Valid reports whether p is one of the catalog phases.
func (p Phase) Valid() bool {
	_, ok := phaseRank[p]
	return ok && p != ""
}

// Rank returns p's position in the open < doing < done < archived order.
// The zero phase ranks below every real phase so it never wins a join.
func (p Phase) Rank() int {
	if r, ok := phaseRank[p]; ok {
		return r
	}
	return -1
}

// EpochPhase is the item-state lattice: a monotone pair that avoids the
// reject/accept asymmetry of validating raw phase transitions. Reopening
// an item bumps Epoch and resets Phase to open, so a concurrent "move
// done" from one replica and "reopen" from another converge on the
// reopened epoch rather than racing over whether "done" or "open" wins.
type EpochPhase struct {
	Epoch uint64
	Phase Phase
}

// JoinEpochPhase returns the join of a and b: the higher epoch wins
// outright, and within a tied epoch the higher-ranked phase wins.
func JoinEpochPhase(a, b EpochPhase) EpochPhase {
	switch {
	case a.Epoch > b.Epoch:
		return a
	case b.Epoch > a.Epoch:
		return b
	}
	if a.Phase.Rank() >= b.Phase.Rank() {
		return a
	}
	return b
}

// Reopen advances current into the next epoch at phase open.
func Reopen(current EpochPhase) EpochPhase {
	return EpochPhase{Epoch: current.Epoch + 1, Phase: PhaseOpen}
}
