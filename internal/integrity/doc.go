// Package integrity implements the repository's self-check and
// lattice-compaction operations: verify() walks every shard and reports
// hash, manifest, parent-presence, and acyclicity problems; snapshot
// compaction materializes an item's current join as a single replayable
// event; and the redaction guarantee (no derived surface ever exposes a
// redacted comment's original body) falls out of always building
// snapshots from already-replayed, already-redacted lattice state.
package integrity
