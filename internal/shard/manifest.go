package shard

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/bobisme/bones/internal/codec"
)

// Manifest is the committed record written once a shard is sealed.
// Sealed shards are never reopened for writes; Manifest is the sole
// source of truth for their size and integrity thereafter.
type Manifest struct {
	EventCount int    `json:"event_count"`
	ByteLen    int64  `json:"byte_len"`
	FileHash   string `json:"file_hash"`
}

// ManifestPath returns the manifest path for a sealed shard file path.
func ManifestPath(shardPath string) string {
	return trimExt(shardPath) + ".manifest"
}

func trimExt(path string) string {
	const ext = ".events"
	if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
		return path[:len(path)-len(ext)]
	}
	return path
}

// BuildManifest reads a sealed shard file in full to count its events and
// hash its bytes.
func BuildManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shard: open %s for manifest: %w", path, err)
	}
	defer f.Close()

	hasher := blake3.New(32, nil)
	count := 0
	byteLen := int64(0)

	buf := make([]byte, 64*1024)
	var pending []byte
	for {
		n, err := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			byteLen += int64(n)
			pending = append(pending, buf[:n]...)
			for {
				idx := indexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]
				if len(line) > 0 && !codec.IsComment(line) {
					count++
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("shard: read %s for manifest: %w", path, err)
		}
	}

	sum := hasher.Sum(nil)
	return &Manifest{
		EventCount: count,
		ByteLen:    byteLen,
		FileHash:   codec.HashPrefix + hex.EncodeToString(sum),
	}, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Write persists m as JSON to path.
func (m *Manifest) Write(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("shard: marshal manifest: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("shard: write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest previously written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shard: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("shard: parse manifest %s: %w", path, err)
	}
	return &m, nil
}
