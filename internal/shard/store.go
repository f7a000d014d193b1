package shard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bobisme/bones/internal/codec"
)

const pointerFile = "current.events"

// ShardNameForTime returns the "YYYY-MM.events" shard file name a wall
// timestamp belongs to.
func ShardNameForTime(t time.Time) string {
	return t.UTC().Format("2006-01") + ".events"
}

// Store owns the active shard file and the current.events pointer.
// Callers are expected to hold the repository write lock around Append
// and Seal; Store does no locking of its own.
type Store struct {
	dir string

	mu         sync.Mutex
	activeName string
	activeFile *os.File

	// Recovered is set if Open truncated a torn write on the active
	// shard.
	Recovered bool
}

// Open prepares the events directory: recovers any torn write on the
// active shard, creating a fresh header-only shard if the directory is
// new.
func Open(dir string, now time.Time) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shard: mkdir %s: %w", dir, err)
	}

	pointerPath := filepath.Join(dir, pointerFile)
	name, err := readPointer(pointerPath)
	recovered := false
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		name = ShardNameForTime(now)
		if err := writePointer(pointerPath, name); err != nil {
			return nil, err
		}
	}

	shardPath := filepath.Join(dir, name)
	if _, statErr := os.Stat(shardPath); statErr == nil {
		truncated, recErr := recoverTornWrite(shardPath)
		if recErr != nil {
			return nil, recErr
		}
		recovered = truncated
	} else if os.IsNotExist(statErr) {
		if err := writeFileAtomic(shardPath, []byte(codec.HeaderV1+"\n")); err != nil {
			return nil, fmt.Errorf("shard: create %s: %w", shardPath, err)
		}
	} else {
		return nil, fmt.Errorf("shard: stat %s: %w", shardPath, statErr)
	}

	f, err := os.OpenFile(shardPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shard: open %s for append: %w", shardPath, err)
	}

	return &Store{dir: dir, activeName: name, activeFile: f, Recovered: recovered}, nil
}

// Close closes the active shard file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFile.Close()
}

// ActiveShardName returns the shard file name events are currently
// appended to.
func (s *Store) ActiveShardName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeName
}

// Append writes line (including its terminating newline) to the active
// shard with a single contiguous write, flushing and, if durable is set,
// fsyncing before returning.
func (s *Store) Append(line []byte, durable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.activeFile.Write(line); err != nil {
		return fmt.Errorf("shard: append to %s: %w", s.activeName, err)
	}
	if durable {
		if err := s.activeFile.Sync(); err != nil {
			return fmt.Errorf("shard: fsync %s: %w", s.activeName, err)
		}
	}
	return nil
}

// SealResult reports the outcome of sealing the active shard.
type SealResult struct {
	SealedName     string
	SealedManifest *Manifest
	NewActiveName  string
}

// Seal closes out the active shard: writes its manifest, creates a fresh
// active shard named for now, and atomically repoints current.events at
// it. Sealed shards are never reopened for writes.
func (s *Store) Seal(now time.Time) (*SealResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealedName := s.activeName
	sealedPath := filepath.Join(s.dir, sealedName)

	if err := s.activeFile.Close(); err != nil {
		return nil, fmt.Errorf("shard: close %s before sealing: %w", sealedName, err)
	}

	manifest, err := BuildManifest(sealedPath)
	if err != nil {
		return nil, err
	}
	if err := manifest.Write(ManifestPath(sealedPath)); err != nil {
		return nil, err
	}

	newName := ShardNameForTime(now)
	if newName == sealedName {
		// Explicit-seal request within the same month: disambiguate by
		// appending a counter so the new active shard never aliases the
		// shard that was just sealed.
		newName = disambiguate(s.dir, newName)
	}
	newPath := filepath.Join(s.dir, newName)
	if err := writeFileAtomic(newPath, []byte(codec.HeaderV1+"\n")); err != nil {
		return nil, fmt.Errorf("shard: create new active shard %s: %w", newName, err)
	}

	if err := writePointer(filepath.Join(s.dir, pointerFile), newName); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(newPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shard: open new active shard %s: %w", newName, err)
	}

	s.activeName = newName
	s.activeFile = f

	return &SealResult{SealedName: sealedName, SealedManifest: manifest, NewActiveName: newName}, nil
}

func disambiguate(dir, name string) string {
	base := strings.TrimSuffix(name, ".events")
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d.events", base, i)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}

func readPointer(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writePointer(path, name string) error {
	return writeFileAtomic(path, []byte(name))
}
