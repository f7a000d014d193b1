package dag

import "fmt"

// ErrEventNotFound is returned by FindLCA when a tip hash is not in the
// graph.
type ErrEventNotFound struct{ Hash string }

func (e *ErrEventNotFound) Error() string {
	return fmt.Sprintf("dag: event not found: %s", e.Hash)
}

// FindLCA finds the lowest common ancestor of two events: the most
// recent event that causally precedes both tips. It identifies the
// point two branches diverged from, which verify() uses to report
// ancestry depth between frontier tips.
//
// If tipA equals tipB, that event is its own LCA. If one tip is an
// ancestor of the other, the ancestor is the LCA. Returns ("", false)
// if the tips share no common ancestor (disjoint roots).
func FindLCA(g *EventGraph, tipA, tipB string) (string, bool, error) {
	if !g.Contains(tipA) {
		return "", false, &ErrEventNotFound{Hash: tipA}
	}
	if !g.Contains(tipB) {
		return "", false, &ErrEventNotFound{Hash: tipB}
	}
	if tipA == tipB {
		return tipA, true, nil
	}

	visitedA := map[string]bool{tipA: true}
	visitedB := map[string]bool{tipB: true}
	if visitedB[tipA] {
		return tipA, true, nil
	}
	if visitedA[tipB] {
		return tipB, true, nil
	}

	queueA := []string{tipA}
	queueB := []string{tipB}

	for len(queueA) > 0 || len(queueB) > 0 {
		if lca, ok := lcaBFSStep(g, &queueA, visitedA, visitedB); ok {
			return lca, true, nil
		}
		if lca, ok := lcaBFSStep(g, &queueB, visitedB, visitedA); ok {
			return lca, true, nil
		}
	}
	return "", false, nil
}

// lcaBFSStep dequeues one node from queue, enqueues its parents, and
// reports the first parent also present in otherVisited.
func lcaBFSStep(g *EventGraph, queue *[]string, visited, otherVisited map[string]bool) (string, bool) {
	if len(*queue) == 0 {
		return "", false
	}
	cur := (*queue)[0]
	*queue = (*queue)[1:]

	for _, parent := range g.parentsOf(cur) {
		if visited[parent] {
			continue
		}
		visited[parent] = true
		if otherVisited[parent] {
			return parent, true
		}
		*queue = append(*queue, parent)
	}
	return "", false
}
