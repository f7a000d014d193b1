// Package projection materializes the lattice into a queryable relational
// index: one SQLite database with tables for items, labels, assignees,
// blocking/relates links, comments, and a full-text index over
// titles/descriptions/labels.
//
// The projection is fully disposable. It is rebuilt by replaying the event
// graph through internal/dag and writing the resulting per-item lattice
// states into rows; a crash between flushing the log and advancing the
// cursor simply means the next open catches up from the cursor, and a
// cursor that no longer matches what it should (stale or corrupted) falls
// back to a full rebuild rather than trusting partial state.
package projection
