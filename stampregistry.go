package bones

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bobisme/bones/internal/itc"
)

// stampRegistry persists the interval each known agent owns of the
// repository's ITC interval, across process restarts.
//
// Neither spec.md nor original_source names a mechanism for this: ITC's
// own Fork/Join only describe how two stamps divide or reunite an
// interval, never how a repository decides which agent gets which half
// the first time it is seen. Two agents independently calling
// itc.Seed() would both claim the full [0,1) interval and silently
// corrupt every future Leq/Concurrent comparison between them. This
// registry is the missing piece: the first agent in an empty repository
// seeds; every agent after that forks its half off the
// lexicographically smallest agent already on record (a deterministic
// "founder" so concurrent first-writes by two new agents converge on
// the same split once they observe each other's registry file, the same
// way wallclock.Clock makes the monotonic counter converge across
// processes by always reading the persisted value before advancing it).
type stampRegistry struct {
	path string

	mu     sync.Mutex
	stamps map[string]itc.Stamp
}

// openStampRegistry reads path, treating a missing file as an empty
// registry (a brand-new repository).
func openStampRegistry(path string) (*stampRegistry, error) {
	stamps, err := readStampFile(path)
	if err != nil {
		return nil, err
	}
	return &stampRegistry{path: path, stamps: stamps}, nil
}

// StampFor returns agent's current owned stamp, allocating one (seed or
// fork) and persisting the result if agent has never been seen.
func (r *stampRegistry) StampFor(agent string) (itc.Stamp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stamps[agent]; ok {
		return s, nil
	}

	if len(r.stamps) == 0 {
		seed := itc.Seed()
		r.stamps[agent] = seed
		if err := r.persistLocked(); err != nil {
			return itc.Stamp{}, err
		}
		return seed, nil
	}

	founder := r.founderLocked()
	founderStamp := r.stamps[founder]
	founderHalf, agentHalf := founderStamp.Fork()
	r.stamps[founder] = founderHalf
	r.stamps[agent] = agentHalf
	if err := r.persistLocked(); err != nil {
		return itc.Stamp{}, err
	}
	return agentHalf, nil
}

// Update records agent's stamp after it has Record()ed a new event,
// persisting the change so the next process picks up where this one
// left off.
func (r *stampRegistry) Update(agent string, stamp itc.Stamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stamps[agent] = stamp
	return r.persistLocked()
}

// founderLocked returns the lexicographically smallest known agent
// name, the deterministic anchor new agents fork their interval from.
func (r *stampRegistry) founderLocked() string {
	names := make([]string, 0, len(r.stamps))
	for name := range r.stamps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

func (r *stampRegistry) persistLocked() error {
	names := make([]string, 0, len(r.stamps))
	for name := range r.stamps {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf strings.Builder
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte('\t')
		buf.WriteString(itc.EncodeText(r.stamps[name]))
		buf.WriteByte('\n')
	}
	return writeFileAtomic(r.path, []byte(buf.String()))
}

func readStampFile(path string) (map[string]itc.Stamp, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]itc.Stamp), nil
	}
	if err != nil {
		return nil, fmt.Errorf("bones: read stamp registry %s: %w", path, err)
	}

	stamps := make(map[string]itc.Stamp)
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		agent, text, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("bones: malformed stamp registry line %q", line)
		}
		stamp, err := itc.DecodeText(text)
		if err != nil {
			return nil, fmt.Errorf("bones: stamp registry %s: %w", agent, err)
		}
		stamps[agent] = stamp
	}
	return stamps, nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by rename, the same crash-safety pattern
// internal/wallclock.Clock.persist and internal/shard use.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bones: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".itc-stamps-*")
	if err != nil {
		return fmt.Errorf("bones: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("bones: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("bones: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("bones: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("bones: rename temp file into place: %w", err)
	}
	return nil
}
