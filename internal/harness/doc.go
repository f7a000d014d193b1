// Package harness is the conformance test harness for the event engine.
//
// It loads YAML scenario files and drives them against one or more real
// bones.Repo instances — not a mock engine, so there is no tautology
// risk: every step goes through the same AppendEvent/ReadItem path
// production callers use. A scenario may name more than one replica; the
// harness opens one bones.Repo per replica directory and, when an
// assertion asks for it, merges replicas by replaying the union of their
// on-disk event logs through a fresh internal/dag.Replayer.
//
// # Scenario format
//
//	name: concurrent_label_add
//	description: "two replicas add disjoint labels to the same item"
//	replicas: [a, b]
//	steps:
//	  - replica: a
//	    agent: alice
//	    op: create_item
//	    args: {item_id: bn-1, title: ship it}
//	  - replica: b
//	    op: sync_from
//	    args: {from: a}
//	  - replica: a
//	    agent: alice
//	    op: link_item
//	    args: {item_id: bn-1, field: labels, target: backend}
//	  - replica: b
//	    agent: bob
//	    op: link_item
//	    args: {item_id: bn-1, field: labels, target: frontend}
//	assertions:
//	  - type: merged_item_field
//	    item_id: bn-1
//	    field: labels
//	    equals: [backend, frontend]
//
// # Assertion types
//
//   - item_field: reads one replica's current item state and compares a field
//   - merged_item_field: replays the union of every replica's event log and
//     compares a field against the merged state
//   - error: asserts the named step failed with a given error kind
//
// Golden snapshots (golden.go) and semilattice law properties (laws.go)
// are driven directly from Go tests, not from scenario YAML.
package harness
