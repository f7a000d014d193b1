// Package dag topologically orders the content-addressed event log into
// the lattice states defined by internal/lattice.
//
// Events arrive in any order. The DAG indexes them by hash and resolves
// parent/child links lazily, so out-of-order delivery costs nothing. An
// event becomes appliable once every hash in its Parents field has itself
// been applied; until then it stays in the DAG unapplied — the log is
// the buffer, so a restart loses nothing. Within a single ready set,
// events are applied in the order given by the lattice LWW comparator,
// making replay deterministic even when the DAG admits more than one
// valid linearization.
//
// Replay runs in two modes: Replay processes a full event set from
// scratch; ReplayFrom processes only the events past a previously
// committed cursor, for incremental projection maintenance.
package dag
