// Package shard implements the time-sharded append-only event log:
// events/YYYY-MM.events files, the current.events pointer to the active
// shard, torn-write recovery on open, and sealed-shard manifests recording
// event count, byte length, and a whole-file BLAKE3 hash.
package shard
