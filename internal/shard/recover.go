package shard

import (
	"fmt"
	"os"

	"github.com/bobisme/bones/internal/codec"
)

// recoverTornWrite scans backward from EOF and truncates path to the last
// complete, syntactically valid line. A crash mid-write (process killed
// between the write syscall and the following fsync/close) can leave a
// partial final line; this keeps the shard usable instead of refusing to
// open it.
func recoverTornWrite(path string) (truncated bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return false, fmt.Errorf("shard: open %s for recovery: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("shard: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return false, nil
	}

	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return false, fmt.Errorf("shard: read %s for recovery: %w", path, err)
	}

	validEnd := size
	if data[size-1] != '\n' {
		validEnd = lastNewlineBefore(data, size)
	} else if !lastLineValid(data, size) {
		validEnd = lastNewlineBefore(data, size-1)
	}

	if validEnd == size {
		return false, nil
	}
	if err := f.Truncate(validEnd); err != nil {
		return false, fmt.Errorf("shard: truncate %s during recovery: %w", path, err)
	}
	return true, nil
}

// lastNewlineBefore returns the byte offset just past the last '\n' found
// strictly before position end, or 0 if none exists.
func lastNewlineBefore(data []byte, end int64) int64 {
	for i := end - 1; i >= 0; i-- {
		if data[i] == '\n' {
			return int64(i + 1)
		}
	}
	return 0
}

// lastLineValid reports whether the final newline-terminated line in data
// (which must end in '\n' at position size) parses as a header/comment or
// a syntactically valid record.
func lastLineValid(data []byte, size int64) bool {
	start := lastNewlineBefore(data, size-1)
	line := data[start : size-1]
	if len(line) == 0 {
		return true
	}
	if codec.IsComment(line) {
		return true
	}
	_, err := codec.ParseLine(line)
	return err == nil
}
