package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobisme/bones/internal/lattice"
)

func itemState(title, kind, parent string, phase lattice.Phase) lattice.ItemState {
	s := lattice.NewItemState()
	entry := lattice.Entry{}
	s.Title = lattice.NewRegister(title, entry)
	s.Kind = lattice.NewRegister(kind, entry)
	if parent != "" {
		s.Parent = lattice.NewRegister(parent, entry)
	}
	s.Status = lattice.EpochPhase{Epoch: 0, Phase: phase}
	return s
}

// seedTree builds:
//
//	goal-a (goal)
//	  task-x (task, done)
//	  goal-b (goal)
//	    task-y (task, done)
//	    task-z (task, open)
//	  task-w (task, doing)
func seedTree(t *testing.T, s *Store) {
	t.Helper()
	states := map[string]lattice.ItemState{
		"goal-a": itemState("Goal A", "goal", "", lattice.PhaseOpen),
		"task-x": itemState("Task X", "task", "goal-a", lattice.PhaseDone),
		"goal-b": itemState("Goal B", "goal", "goal-a", lattice.PhaseOpen),
		"task-y": itemState("Task Y", "task", "goal-b", lattice.PhaseDone),
		"task-z": itemState("Task Z", "task", "goal-b", lattice.PhaseOpen),
		"task-w": itemState("Task W", "task", "goal-a", lattice.PhaseDoing),
	}
	require.NoError(t, s.UpsertItems(context.Background(), states, 0, ""))
}

func TestComputeDirectProgressCountsImmediateChildrenOnly(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	p, err := s.ComputeDirectProgress(context.Background(), "goal-a")
	require.NoError(t, err)
	require.Equal(t, GoalProgress{Done: 1, InProgress: 1, Total: 3}, p)
}

func TestComputeDirectProgressRejectsNonGoal(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	_, err := s.ComputeDirectProgress(context.Background(), "task-x")
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, ErrNotAGoal, herr.Kind)
}

func TestComputeNestedProgressRollsUpLeavesOnly(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	p, err := s.ComputeNestedProgress(context.Background(), "goal-a")
	require.NoError(t, err)
	require.Equal(t, GoalProgress{Done: 2, InProgress: 1, Total: 4}, p)
	require.InDelta(t, 50.0, p.PercentComplete(), 0.001)
	require.False(t, p.IsComplete())
}

func TestGetSubtreeIDsIncludesRootAndDescendants(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	ids, err := s.GetSubtreeIDs(context.Background(), "goal-a")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"goal-a", "task-x", "goal-b", "task-y", "task-z", "task-w"}, ids)
}

func TestGetAncestorsWalksToRoot(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	ancestors, err := s.GetAncestors(context.Background(), "task-y")
	require.NoError(t, err)
	require.Equal(t, []string{"goal-b", "goal-a"}, ancestors)
}

func TestValidateReparentRejectsCycle(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	err := s.ValidateReparent(context.Background(), "goal-a", "goal-b")
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, ErrCycleDetected, herr.Kind)
}

func TestValidateReparentAcceptsValidMove(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	err := s.ValidateReparent(context.Background(), "task-w", "goal-b")
	require.NoError(t, err)
}

func TestValidateReparentRejectsNonGoalTarget(t *testing.T) {
	s := openTestStore(t)
	seedTree(t, s)

	err := s.ValidateReparent(context.Background(), "task-w", "task-x")
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, ErrNotAGoal, herr.Kind)
}
