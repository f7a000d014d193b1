package dag

import (
	"sort"

	"github.com/bobisme/bones/internal/codec"
)

// Node is a single event indexed in an EventGraph, with resolved
// bidirectional links to its parents and children by hash.
type Node struct {
	Event    codec.Event
	Parents  []string
	Children []string
}

// EventGraph is an in-memory DAG of events keyed by content-addressed
// hash. It supports insertion in any order: parent/child links are
// resolved as events arrive, so an event inserted before its parent
// still ends up correctly linked once the parent shows up.
//
// Duplicate inserts (same EventHash) are silently skipped, which is
// the expected behavior for content-addressed data — the same event
// may be observed twice during sync without special-casing.
type EventGraph struct {
	nodes map[string]*Node
}

// NewEventGraph returns an empty graph.
func NewEventGraph() *EventGraph {
	return &EventGraph{nodes: make(map[string]*Node)}
}

// Insert adds ev to the graph, linking it to any parents or children
// already present. Skips silently if ev's hash is already known.
func (g *EventGraph) Insert(ev codec.Event) {
	hash := ev.EventHash
	if _, ok := g.nodes[hash]; ok {
		return
	}

	node := &Node{Event: ev, Parents: append([]string(nil), ev.Parents...)}
	g.nodes[hash] = node

	for _, parentHash := range node.Parents {
		if parent, ok := g.nodes[parentHash]; ok {
			parent.Children = append(parent.Children, hash)
		}
	}

	// Out-of-order insertion: a previously-inserted event may already
	// declare this hash as a parent; link it as a child now.
	for childHash, child := range g.nodes {
		if childHash == hash {
			continue
		}
		for _, p := range child.Parents {
			if p == hash {
				node.Children = append(node.Children, childHash)
				break
			}
		}
	}
}

// Get returns the node for hash, if known.
func (g *EventGraph) Get(hash string) (*Node, bool) {
	n, ok := g.nodes[hash]
	return n, ok
}

// Contains reports whether hash is a known event.
func (g *EventGraph) Contains(hash string) bool {
	_, ok := g.nodes[hash]
	return ok
}

// Len returns the number of events in the graph.
func (g *EventGraph) Len() int { return len(g.nodes) }

// Roots returns the sorted hashes of events with no parents in the graph.
func (g *EventGraph) Roots() []string {
	var out []string
	for hash, node := range g.nodes {
		if len(node.Parents) == 0 {
			out = append(out, hash)
		}
	}
	sort.Strings(out)
	return out
}

// Tips returns the sorted hashes of events with no children — the
// "current heads" of the graph.
func (g *EventGraph) Tips() []string {
	var out []string
	for hash, node := range g.nodes {
		if len(node.Children) == 0 {
			out = append(out, hash)
		}
	}
	sort.Strings(out)
	return out
}

// Frontier returns the set of stored event hashes minus the union of
// all declared parents — the set of hashes a new event should reference
// as its own parents. Unlike Tips, Frontier counts a hash even when
// some of its declared parents are absent from the graph, since a
// parent hash that is merely referenced (not necessarily present) does
// not disqualify an event from being a head.
func (g *EventGraph) Frontier() []string {
	referenced := make(map[string]bool)
	for _, node := range g.nodes {
		for _, p := range node.Parents {
			referenced[p] = true
		}
	}
	var out []string
	for hash := range g.nodes {
		if !referenced[hash] {
			out = append(out, hash)
		}
	}
	sort.Strings(out)
	return out
}

// Ancestors returns the transitive parent hashes of hash, not including
// hash itself.
func (g *EventGraph) Ancestors(hash string) map[string]bool {
	visited := make(map[string]bool)
	queue := g.parentsOf(hash)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		queue = append(queue, g.parentsOf(cur)...)
	}
	return visited
}

func (g *EventGraph) parentsOf(hash string) []string {
	node, ok := g.nodes[hash]
	if !ok {
		return nil
	}
	return node.Parents
}

// Descendants returns the transitive child hashes of hash, not
// including hash itself.
func (g *EventGraph) Descendants(hash string) map[string]bool {
	visited := make(map[string]bool)
	queue := g.childrenOf(hash)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		queue = append(queue, g.childrenOf(cur)...)
	}
	return visited
}

func (g *EventGraph) childrenOf(hash string) []string {
	node, ok := g.nodes[hash]
	if !ok {
		return nil
	}
	return node.Children
}

// IsAncestor reports whether a causally precedes b.
func (g *EventGraph) IsAncestor(a, b string) bool {
	if a == b {
		return false
	}
	return g.Ancestors(b)[a]
}

// Concurrent reports whether neither a nor b is an ancestor of the other.
func (g *EventGraph) Concurrent(a, b string) bool {
	if a == b {
		return false
	}
	return !g.IsAncestor(a, b) && !g.IsAncestor(b, a)
}

// nodeList returns every node in the graph, order unspecified.
func (g *EventGraph) nodeList() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}
