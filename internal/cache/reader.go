package cache

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/bobisme/bones/internal/codec"
)

// Read loads the cache file at path and reconstructs the event sequence
// it was built from. Any structural problem — bad magic, unsupported
// version, truncated column, checksum mismatch — is returned as an
// error; callers are expected to fall back to reparsing shards rather
// than trust a partially decoded result, so Read never returns a
// partial event slice alongside an error.
func Read(path string) ([]codec.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", path, err)
	}
	if len(raw) < headerSize {
		return nil, fmt.Errorf("cache: %s shorter than header", path)
	}

	h, err := readHeader(bytes.NewReader(raw[:headerSize]))
	if err != nil {
		return nil, err
	}

	body := raw[headerSize:]
	if crc32.ChecksumIEEE(body) != h.DataCRC {
		return nil, fmt.Errorf("cache: %s failed checksum", path)
	}

	return decodeBody(body, int(h.RowCount))
}

func decodeBody(body []byte, rowCount int) ([]codec.Event, error) {
	r := &byteReader{r: bufio.NewReader(bytes.NewReader(body))}

	timestamps, err := readTimestampColumn(r, rowCount)
	if err != nil {
		return nil, err
	}
	hashes, err := readHashColumn(r, rowCount)
	if err != nil {
		return nil, err
	}
	agents, err := readDictColumn(r, rowCount)
	if err != nil {
		return nil, err
	}
	types, err := readDictColumn(r, rowCount)
	if err != nil {
		return nil, err
	}
	itemIDs, err := readDictColumn(r, rowCount)
	if err != nil {
		return nil, err
	}
	itcStamps, err := readRawStringColumn(r, rowCount)
	if err != nil {
		return nil, err
	}
	data, err := readDataColumn(r, rowCount)
	if err != nil {
		return nil, err
	}

	events := make([]codec.Event, rowCount)
	for i := 0; i < rowCount; i++ {
		events[i] = codec.Event{
			WallTSUs:  timestamps[i],
			Agent:     agents[i],
			ITC:       itcStamps[i],
			Parents:   hashes[i].parents,
			Type:      codec.EventType(types[i]),
			ItemID:    itemIDs[i],
			Data:      data[i],
			EventHash: hashes[i].ownHash,
		}
	}
	return events, nil
}

// byteReader wraps a bufio.Reader with the varint and length-prefixed
// read helpers every column decoder shares.
type byteReader struct {
	r *bufio.Reader
}

func (b *byteReader) readUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(b.r)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (b *byteReader) readLengthPrefixed() ([]byte, error) {
	n, err := b.readUvarint()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
