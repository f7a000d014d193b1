package lattice

import "sort"

// BlockingGraph is a scheduling dependency graph materialized from a
// snapshot of ItemState values keyed by item ID. It is immutable once
// built; call BuildBlockingGraph again if the underlying states change.
//
// An item is blocked if its BlockedBy OR-set is non-empty; blocked items
// are excluded from "ready" work. RelatedTo links are informational only
// and never affect scheduling. Blocking is evaluated uniformly across
// items regardless of which goal they belong to — a blocker need not
// even appear in the states map for the block to count.
type BlockingGraph struct {
	blockedBy map[string]map[string]bool
	relatedTo map[string]map[string]bool
	allItems  map[string]bool
}

// BuildBlockingGraph extracts the BlockedBy/RelatedTo OR-sets from every
// item state. Deleted items are included; callers wanting to exclude
// them should filter states before calling this.
func BuildBlockingGraph(states map[string]ItemState) *BlockingGraph {
	g := &BlockingGraph{
		blockedBy: make(map[string]map[string]bool),
		relatedTo: make(map[string]map[string]bool),
		allItems:  make(map[string]bool, len(states)),
	}
	for id, state := range states {
		g.allItems[id] = true
		if blockers := state.BlockedByIDs(); len(blockers) > 0 {
			g.blockedBy[id] = toSet(blockers)
		}
		if related := state.RelatedToIDs(); len(related) > 0 {
			g.relatedTo[id] = toSet(related)
		}
	}
	return g
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

// IsBlocked reports whether itemID has at least one active blocker.
func (g *BlockingGraph) IsBlocked(itemID string) bool {
	return len(g.blockedBy[itemID]) > 0
}

// Blockers returns the sorted item IDs blocking itemID.
func (g *BlockingGraph) Blockers(itemID string) []string {
	return sortedKeys(g.blockedBy[itemID])
}

// Related returns the sorted item IDs related to itemID.
func (g *BlockingGraph) Related(itemID string) []string {
	return sortedKeys(g.relatedTo[itemID])
}

// ReadyItems returns the sorted subset of known items with no active
// blocker.
func (g *BlockingGraph) ReadyItems() []string {
	var out []string
	for id := range g.allItems {
		if !g.IsBlocked(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// BlockedItems returns the sorted subset of known items with at least
// one active blocker.
func (g *BlockingGraph) BlockedItems() []string {
	var out []string
	for id := range g.allItems {
		if g.IsBlocked(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// AllItemIDs returns every item ID the graph was built from, sorted.
func (g *BlockingGraph) AllItemIDs() []string {
	return sortedKeys(g.allItems)
}

// Len returns the number of known items.
func (g *BlockingGraph) Len() int { return len(g.allItems) }

// Empty reports whether the graph has no known items.
func (g *BlockingGraph) Empty() bool { return len(g.allItems) == 0 }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
