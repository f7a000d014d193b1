package integrity

import "fmt"

// MissingParent records an event whose declared parent hash was never
// observed anywhere in the shard directory.
type MissingParent struct {
	EventHash  string
	ParentHash string
}

// ManifestMismatch records a sealed shard whose on-disk content no
// longer matches its committed manifest.
type ManifestMismatch struct {
	ShardName string
	Reason    string
}

// Report is the machine-readable result of Verify. A repository with an
// empty Report is sound: every line hashes correctly, every sealed
// shard matches its manifest, every parent reference resolves, and
// neither the event DAG nor the blocking graph contains a cycle.
type Report struct {
	ShardsScanned      int
	EventsScanned      int
	HashMismatches     []string
	ParseErrors        []string
	ManifestMismatches []ManifestMismatch
	MissingParents     []MissingParent
	UnresolvedCycle    []string
	BlockingCycles     []string

	// BufferedUnresolved is the count of events excluded from cycle
	// analysis because at least one declared parent is missing. A large
	// value alongside MissingParents suggests corruption rather than a
	// replica that is merely mid-sync; see Quota.
	BufferedUnresolved int
	QuotaExceeded      bool
}

// OK reports whether the repository passed every check.
func (r *Report) OK() bool {
	return len(r.HashMismatches) == 0 &&
		len(r.ParseErrors) == 0 &&
		len(r.ManifestMismatches) == 0 &&
		len(r.MissingParents) == 0 &&
		len(r.UnresolvedCycle) == 0 &&
		len(r.BlockingCycles) == 0 &&
		!r.QuotaExceeded
}

// Summary renders a short human-readable line, useful for CLI output.
func (r *Report) Summary() string {
	if r.OK() {
		return fmt.Sprintf("ok: %d shards, %d events", r.ShardsScanned, r.EventsScanned)
	}
	return fmt.Sprintf("FAILED: %d shards, %d events, %d hash mismatches, %d manifest mismatches, %d missing parents, %d dag-cycle events, %d blocking cycles",
		r.ShardsScanned, r.EventsScanned, len(r.HashMismatches), len(r.ManifestMismatches), len(r.MissingParents), len(r.UnresolvedCycle), len(r.BlockingCycles))
}
