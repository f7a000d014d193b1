package integrity

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/dag"
	"github.com/bobisme/bones/internal/lattice"
	"github.com/bobisme/bones/internal/shard"
)

// Verify walks every shard file in dir and checks the four invariants
// the repository must hold: every line hashes to its own event_hash,
// every sealed shard matches its manifest, every parent hash resolves
// to some event in the log, and neither the event DAG nor the blocking
// graph closes a cycle. Verify never mutates anything under dir.
func Verify(dir string, quota BufferedQuota) (*Report, error) {
	report := &Report{}

	names, err := shardFileNames(dir)
	if err != nil {
		return nil, err
	}

	var events []codec.Event
	for _, name := range names {
		report.ShardsScanned++
		path := filepath.Join(dir, name)

		parsed, parseErrs, hashErrs, err := scanShard(path)
		if err != nil {
			return nil, fmt.Errorf("integrity: scan %s: %w", name, err)
		}
		events = append(events, parsed...)
		report.ParseErrors = append(report.ParseErrors, parseErrs...)
		report.HashMismatches = append(report.HashMismatches, hashErrs...)
		report.EventsScanned += len(parsed)

		manifestPath := shard.ManifestPath(path)
		if _, statErr := os.Stat(manifestPath); statErr == nil {
			if mismatch := checkManifest(name, path, manifestPath); mismatch != nil {
				report.ManifestMismatches = append(report.ManifestMismatches, *mismatch)
			}
		}
	}

	known := make(map[string]bool, len(events))
	for _, ev := range events {
		known[ev.EventHash] = true
	}

	buffered := make(map[string]bool)
	for _, ev := range events {
		for _, p := range ev.Parents {
			if !known[p] {
				report.MissingParents = append(report.MissingParents, MissingParent{EventHash: ev.EventHash, ParentHash: p})
				buffered[ev.EventHash] = true
			}
		}
	}
	report.BufferedUnresolved = len(buffered)
	if quota.Exceeded(report.BufferedUnresolved) {
		report.QuotaExceeded = true
	}

	report.UnresolvedCycle = findUnresolvedDAGCycle(events, known, buffered)

	r := dag.NewReplayer()
	r.Replay(events)
	graph := lattice.BuildBlockingGraph(r.States())
	for _, cycle := range lattice.FindAllCycles(graph) {
		report.BlockingCycles = append(report.BlockingCycles, cycle.String())
	}

	return report, nil
}

// shardFileNames returns the *.events file names in dir, sorted so
// scanning proceeds in the same order shards were created.
func shardFileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("integrity: read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".events") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// scanShard reads path line by line, skipping the header/comment lines,
// parsing and hash-verifying every record line.
func scanShard(path string) (events []codec.Event, parseErrs, hashErrs []string, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", path, openErr)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || codec.IsComment(line) {
			continue
		}
		ev, parseErr := codec.ParseLine(line)
		if parseErr != nil {
			parseErrs = append(parseErrs, fmt.Sprintf("%s: %v", filepath.Base(path), parseErr))
			continue
		}
		ok, hashErr := codec.VerifyHash(ev)
		if hashErr != nil {
			parseErrs = append(parseErrs, fmt.Sprintf("%s: %v", filepath.Base(path), hashErr))
			continue
		}
		if !ok {
			hashErrs = append(hashErrs, ev.EventHash)
		}
		events = append(events, *ev)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, nil, nil, fmt.Errorf("scan %s: %w", path, scanErr)
	}
	return events, parseErrs, hashErrs, nil
}

func checkManifest(shardName, shardPath, manifestPath string) *ManifestMismatch {
	recorded, err := shard.ReadManifest(manifestPath)
	if err != nil {
		return &ManifestMismatch{ShardName: shardName, Reason: fmt.Sprintf("read manifest: %v", err)}
	}
	actual, err := shard.BuildManifest(shardPath)
	if err != nil {
		return &ManifestMismatch{ShardName: shardName, Reason: fmt.Sprintf("rebuild manifest: %v", err)}
	}
	switch {
	case recorded.EventCount != actual.EventCount:
		return &ManifestMismatch{ShardName: shardName, Reason: fmt.Sprintf("event_count %d != %d", recorded.EventCount, actual.EventCount)}
	case recorded.ByteLen != actual.ByteLen:
		return &ManifestMismatch{ShardName: shardName, Reason: fmt.Sprintf("byte_len %d != %d", recorded.ByteLen, actual.ByteLen)}
	case recorded.FileHash != actual.FileHash:
		return &ManifestMismatch{ShardName: shardName, Reason: fmt.Sprintf("file_hash %s != %s", recorded.FileHash, actual.FileHash)}
	}
	return nil
}

// findUnresolvedDAGCycle runs Kahn's algorithm over every event that has
// no directly missing parent, restricted to edges within that same
// subset. Anything left unsorted once the algorithm stalls can only be
// stuck because its own ancestry loops back on itself — events stuck
// because a parent genuinely never arrived were already excluded via
// buffered, so this isolates the second, distinct failure mode.
func findUnresolvedDAGCycle(events []codec.Event, known, buffered map[string]bool) []string {
	byHash := make(map[string]codec.Event, len(events))
	for _, ev := range events {
		byHash[ev.EventHash] = ev
	}

	indegree := make(map[string]int)
	children := make(map[string][]string)
	var candidates []string
	for _, ev := range events {
		if buffered[ev.EventHash] {
			continue
		}
		candidates = append(candidates, ev.EventHash)
		deg := 0
		for _, p := range ev.Parents {
			if known[p] && !buffered[p] {
				deg++
				children[p] = append(children[p], ev.EventHash)
			}
		}
		indegree[ev.EventHash] = deg
	}

	var queue []string
	for _, hash := range candidates {
		if indegree[hash] == 0 {
			queue = append(queue, hash)
		}
	}
	sort.Strings(queue)

	sorted := make(map[string]bool, len(candidates))
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if sorted[hash] {
			continue
		}
		sorted[hash] = true
		var next []string
		for _, child := range children[hash] {
			indegree[child]--
			if indegree[child] == 0 {
				next = append(next, child)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	var leftover []string
	for _, hash := range candidates {
		if !sorted[hash] {
			leftover = append(leftover, hash)
		}
	}
	sort.Strings(leftover)
	return leftover
}
