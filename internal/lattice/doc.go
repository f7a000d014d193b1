// Package lattice implements the per-item join-semilattice: the LWW
// comparator shared by every scalar field, the epoch-phase item-state
// lattice, observed-remove set membership derived from the event DAG
// (no per-element tombstone metadata — causal dominance is read straight
// off the ITC stamps already carried by each event), the grow-only
// comment set, and the blocking/relates dependency graph built from the
// resulting item states.
//
// Every join implemented here is commutative, associative, and
// idempotent: replaying the same events in any order, any number of
// times, converges to the same state.
package lattice
