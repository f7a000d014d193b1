package projection

import (
	"context"
	"fmt"
)

// GoalProgress reports how many of a goal's children have reached done
// (or archived) versus the total non-deleted children.
type GoalProgress struct {
	Done       int
	InProgress int
	Total      int
}

// PercentComplete is in the range 0..100. A goal with no children is
// vacuously 100% complete.
func (p GoalProgress) PercentComplete() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// IsComplete reports whether every child has reached done/archived.
func (p GoalProgress) IsComplete() bool {
	return p.Total == 0 || p.Done == p.Total
}

// HierarchyError distinguishes the domain failures ComputeDirectProgress,
// ComputeNestedProgress, and ValidateReparent can report from plain
// database errors.
type HierarchyError struct {
	Kind           HierarchyErrorKind
	ItemID         string
	ActualKind     string
	ProposedParent string
}

type HierarchyErrorKind int

const (
	ErrItemNotFound HierarchyErrorKind = iota
	ErrNotAGoal
	ErrCycleDetected
)

func (e *HierarchyError) Error() string {
	switch e.Kind {
	case ErrNotAGoal:
		return fmt.Sprintf("item %q is not a goal (kind=%q): only goals may be parents", e.ItemID, e.ActualKind)
	case ErrCycleDetected:
		return fmt.Sprintf("reparenting %q under %q would create a cycle", e.ItemID, e.ProposedParent)
	default:
		return fmt.Sprintf("item not found: %q", e.ItemID)
	}
}

// childRow is the minimal shape hierarchy queries need per child.
type childRow struct {
	ItemID string
	Kind   string
	Phase  string
}

// ComputeDirectProgress tallies goalID's immediate non-deleted children.
func (s *Store) ComputeDirectProgress(ctx context.Context, goalID string) (GoalProgress, error) {
	if err := s.requireGoal(ctx, goalID); err != nil {
		return GoalProgress{}, err
	}
	children, err := s.children(ctx, goalID)
	if err != nil {
		return GoalProgress{}, err
	}
	return tally(children), nil
}

// ComputeNestedProgress rolls progress up through the entire subtree:
// only leaf items (non-goal items, or goal items with no children)
// contribute to the total, matching the direct-progress semantics a goal
// with nested goals underneath it should report.
func (s *Store) ComputeNestedProgress(ctx context.Context, goalID string) (GoalProgress, error) {
	if err := s.requireGoal(ctx, goalID); err != nil {
		return GoalProgress{}, err
	}
	var acc GoalProgress
	visited := map[string]bool{}
	if err := s.accumulateProgress(ctx, goalID, &acc, visited); err != nil {
		return GoalProgress{}, err
	}
	return acc, nil
}

func (s *Store) accumulateProgress(ctx context.Context, currentID string, acc *GoalProgress, visited map[string]bool) error {
	if visited[currentID] {
		return nil
	}
	visited[currentID] = true

	children, err := s.children(ctx, currentID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.Kind == "goal" {
			if err := s.accumulateProgress(ctx, child.ItemID, acc, visited); err != nil {
				return err
			}
			continue
		}
		acc.Total++
		switch child.Phase {
		case "done", "archived":
			acc.Done++
		case "doing":
			acc.InProgress++
		}
	}
	return nil
}

// GetSubtreeIDs returns every item ID in the subtree rooted at rootID,
// rootID included, in breadth-first order. Cycles (which a validated tree
// should never have) are broken by the visited guard rather than looping
// forever.
func (s *Store) GetSubtreeIDs(ctx context.Context, rootID string) ([]string, error) {
	visited := map[string]bool{}
	queue := []string{rootID}
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		result = append(result, current)

		children, err := s.children(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if !visited[c.ItemID] {
				queue = append(queue, c.ItemID)
			}
		}
	}
	return result, nil
}

// GetAncestors returns the ancestor chain from item's immediate parent up
// to the root, empty if item has no parent.
func (s *Store) GetAncestors(ctx context.Context, itemID string) ([]string, error) {
	current, ok, err := s.ReadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &HierarchyError{Kind: ErrItemNotFound, ItemID: itemID}
	}

	var ancestors []string
	visited := map[string]bool{itemID: true}
	parentID := current.ParentID

	for parentID != "" {
		if visited[parentID] {
			break
		}
		visited[parentID] = true
		parent, ok, err := s.ReadItem(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &HierarchyError{Kind: ErrItemNotFound, ItemID: parentID}
		}
		ancestors = append(ancestors, parentID)
		parentID = parent.ParentID
	}
	return ancestors, nil
}

// ValidateReparent checks that moving itemID under newParentID is
// allowed: both items must exist, newParentID must be a goal, and
// newParentID must not already be in itemID's subtree (which would
// create a cycle).
func (s *Store) ValidateReparent(ctx context.Context, itemID, newParentID string) error {
	if _, ok, err := s.ReadItem(ctx, itemID); err != nil {
		return err
	} else if !ok {
		return &HierarchyError{Kind: ErrItemNotFound, ItemID: itemID}
	}

	if err := s.requireGoal(ctx, newParentID); err != nil {
		return err
	}

	subtree, err := s.GetSubtreeIDs(ctx, itemID)
	if err != nil {
		return err
	}
	for _, id := range subtree {
		if id == newParentID {
			return &HierarchyError{Kind: ErrCycleDetected, ItemID: itemID, ProposedParent: newParentID}
		}
	}
	return nil
}

func (s *Store) requireGoal(ctx context.Context, itemID string) error {
	item, ok, err := s.ReadItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return &HierarchyError{Kind: ErrItemNotFound, ItemID: itemID}
	}
	if item.Kind != "goal" {
		return &HierarchyError{Kind: ErrNotAGoal, ItemID: itemID, ActualKind: item.Kind}
	}
	return nil
}

func (s *Store) children(ctx context.Context, parentID string) ([]childRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, kind, phase FROM items WHERE parent_id = ? AND deleted = 0
		ORDER BY item_id ASC COLLATE BINARY
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("projection: query children: %w", err)
	}
	defer rows.Close()

	var out []childRow
	for rows.Next() {
		var c childRow
		if err := rows.Scan(&c.ItemID, &c.Kind, &c.Phase); err != nil {
			return nil, fmt.Errorf("projection: scan child: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func tally(children []childRow) GoalProgress {
	var p GoalProgress
	for _, c := range children {
		p.Total++
		switch c.Phase {
		case "done", "archived":
			p.Done++
		case "doing":
			p.InProgress++
		}
	}
	return p
}
