// Package cache implements the columnar read-cache under cache/events.bin:
// a derived, disposable binary rendering of the event log laid out for
// fast sequential scan rather than append. It is never authoritative —
// any read error, version mismatch, or checksum failure is handled by
// falling back to reparsing shards directly, never by returning partial
// or best-effort data.
package cache
