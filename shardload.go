package bones

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobisme/bones/internal/cache"
	"github.com/bobisme/bones/internal/codec"
	"github.com/bobisme/bones/internal/shard"
)

// loadShardEvents reads every *.events file in dir, sorted by name (so
// shards are consumed in the chronological order their names encode),
// parsing and hash-verifying each record line the same way
// internal/integrity.Verify does. A line that fails to parse or whose
// hash does not match is logged and skipped rather than failing the
// whole load: spec §7 treats both as non-fatal, since a rejected event
// never joins the lattice and a later corrected or duplicate delivery
// converges to the same state regardless.
func loadShardEvents(dir string, logger *slog.Logger) ([]codec.Event, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bones: read events dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".events") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var events []codec.Event
	for _, name := range names {
		path := filepath.Join(dir, name)
		shardEvents, err := loadShardFile(path, logger)
		if err != nil {
			return nil, err
		}
		events = append(events, shardEvents...)
	}
	return events, nil
}

// loadShardEventsCached implements spec §4.10's cold-start path: read the
// columnar cache to cover every sealed shard, then tail only the active
// shard by reparsing it directly. The cache is trusted only when its row
// count matches the sum of every sealed shard's committed manifest event
// count; any mismatch, a missing manifest, or a cache read failure falls
// back to loadShardEvents's full reparse. The cache is derived and never
// authoritative, so this fallback is always safe, just slower.
func loadShardEventsCached(dir, cachePath, activeShardName string, logger *slog.Logger) ([]codec.Event, error) {
	if activeShardName == "" {
		return loadShardEvents(dir, logger)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bones: read events dir %s: %w", dir, err)
	}

	var sealedNames []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".events") || e.Name() == activeShardName {
			continue
		}
		sealedNames = append(sealedNames, e.Name())
	}
	sort.Strings(sealedNames)

	expected := 0
	manifestsFresh := true
	for _, name := range sealedNames {
		m, err := shard.ReadManifest(shard.ManifestPath(filepath.Join(dir, name)))
		if err != nil {
			manifestsFresh = false
			break
		}
		expected += m.EventCount
	}

	if manifestsFresh {
		if cached, err := cache.Read(cachePath); err == nil && len(cached) == expected {
			activePath := filepath.Join(dir, activeShardName)
			if tail, err := loadShardFile(activePath, logger); err == nil {
				events := make([]codec.Event, 0, len(cached)+len(tail))
				events = append(events, cached...)
				events = append(events, tail...)
				return events, nil
			}
		}
	}

	return loadShardEvents(dir, logger)
}

func loadShardFile(path string, logger *slog.Logger) ([]codec.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bones: open shard %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var events []codec.Event
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if lineNo == 1 {
			version, err := codec.ParseHeader(string(line))
			if err != nil {
				return nil, fmt.Errorf("bones: %s: %w", filepath.Base(path), err)
			}
			if err := codec.CheckVersion(version); err != nil {
				return nil, err
			}
			continue
		}
		if len(line) == 0 || codec.IsComment(line) {
			continue
		}
		ev, err := codec.ParseLine(line)
		if err != nil {
			logger.Warn("skipping unparsable event line", "shard", filepath.Base(path), "line", lineNo, "error", err)
			continue
		}
		ok, err := codec.VerifyHash(ev)
		if err != nil {
			logger.Warn("skipping event with unhashable payload", "shard", filepath.Base(path), "event_hash", ev.EventHash, "error", err)
			continue
		}
		if !ok {
			logger.Warn("hash mismatch, excluding event from lattice application", "shard", filepath.Base(path), "event_hash", ev.EventHash)
			continue
		}
		events = append(events, *ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bones: scan shard %s: %w", path, err)
	}
	return events, nil
}
