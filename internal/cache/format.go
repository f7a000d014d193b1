package cache

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic tags the file as a bones columnar cache.
const Magic uint32 = 0x424e4353 // "BNCS"

// Version is the on-disk format version this package reads and writes.
const Version uint32 = 1

// headerSize is the fixed byte length of the header: magic, version,
// column_count, row_count, created_at_us, data_crc.
const headerSize = 4 + 4 + 4 + 4 + 8 + 4

// columnCount is the number of logical columns this format version lays
// out: wall_ts_us, event_hash+parents, agent, type, item_id, itc, data.
const columnCount = 7

// header is the fixed-size preamble of a cache file.
type header struct {
	Magic       uint32
	Version     uint32
	ColumnCount uint32
	RowCount    uint32
	CreatedAtUs int64
	DataCRC     uint32
}

func writeHeader(w io.Writer, h header) error {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.ColumnCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.RowCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.CreatedAtUs))
	binary.LittleEndian.PutUint32(buf[24:28], h.DataCRC)
	_, err := w.Write(buf)
	return err
}

func readHeader(r io.Reader) (header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return header{}, fmt.Errorf("cache: read header: %w", err)
	}
	h := header{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint32(buf[4:8]),
		ColumnCount: binary.LittleEndian.Uint32(buf[8:12]),
		RowCount:    binary.LittleEndian.Uint32(buf[12:16]),
		CreatedAtUs: int64(binary.LittleEndian.Uint64(buf[16:24])),
		DataCRC:     binary.LittleEndian.Uint32(buf[24:28]),
	}
	if h.Magic != Magic {
		return header{}, fmt.Errorf("cache: bad magic %#x", h.Magic)
	}
	if h.Version != Version {
		return header{}, fmt.Errorf("cache: unsupported version %d", h.Version)
	}
	if h.ColumnCount != columnCount {
		return header{}, fmt.Errorf("cache: unexpected column count %d", h.ColumnCount)
	}
	return h, nil
}

// zigzag maps a signed delta to an unsigned value so small magnitudes in
// either direction encode as few varint bytes.
func zigzagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
