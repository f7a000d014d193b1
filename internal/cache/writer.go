package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/bobisme/bones/internal/codec"
)

// Write renders events as a columnar cache file at path, overwriting any
// existing file atomically. events must be in the order they should be
// replayed in; the cache preserves that order exactly.
func Write(path string, events []codec.Event, createdAtUs int64) error {
	body, err := encodeBody(events)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}

	h := header{
		Magic:       Magic,
		Version:     Version,
		ColumnCount: columnCount,
		RowCount:    uint32(len(events)),
		CreatedAtUs: createdAtUs,
		DataCRC:     crc32.ChecksumIEEE(body),
	}

	var out bytes.Buffer
	if err := writeHeader(&out, h); err != nil {
		return err
	}
	out.Write(body)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cache: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

func encodeBody(events []codec.Event) ([]byte, error) {
	var buf bytes.Buffer

	writeTimestampColumn(&buf, events)
	if err := writeHashColumn(&buf, events); err != nil {
		return nil, err
	}
	writeDictColumn(&buf, events, func(e codec.Event) string { return e.Agent })
	writeDictColumn(&buf, events, func(e codec.Event) string { return string(e.Type) })
	writeDictColumn(&buf, events, func(e codec.Event) string { return e.ItemID })
	writeRawStringColumn(&buf, events, func(e codec.Event) string { return e.ITC })
	if err := writeDataColumn(&buf, events); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeTimestampColumn stores wall_ts_us as a zigzag-delta varint stream:
// the first row is the raw value, each subsequent row the delta from its
// predecessor.
func writeTimestampColumn(buf *bytes.Buffer, events []codec.Event) {
	var prev int64
	for i, ev := range events {
		var delta int64
		if i == 0 {
			delta = ev.WallTSUs
		} else {
			delta = ev.WallTSUs - prev
		}
		writeUvarint(buf, zigzagEncode(delta))
		prev = ev.WallTSUs
	}
}

func readTimestampColumn(r *byteReader, rowCount int) ([]int64, error) {
	out := make([]int64, rowCount)
	var prev int64
	for i := 0; i < rowCount; i++ {
		u, err := r.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("timestamp column row %d: %w", i, err)
		}
		delta := zigzagDecode(u)
		if i == 0 {
			prev = delta
		} else {
			prev += delta
		}
		out[i] = prev
	}
	return out, nil
}

// writeHashColumn interns every event_hash and parent hash into a single
// ordered pool (built in row order, hashes deduplicated on first sight),
// then stores each row's own-hash pool index followed by its parent pool
// indices.
func writeHashColumn(buf *bytes.Buffer, events []codec.Event) error {
	pool := newHashPool()
	ownIdx := make([]uint32, len(events))
	parentIdx := make([][]uint32, len(events))

	for i, ev := range events {
		if ev.EventHash == "" {
			return fmt.Errorf("event at row %d has empty event_hash", i)
		}
		ownIdx[i] = pool.intern(ev.EventHash)
		ids := make([]uint32, len(ev.Parents))
		for j, p := range ev.Parents {
			ids[j] = pool.intern(p)
		}
		parentIdx[i] = ids
	}

	writeUvarint(buf, uint64(len(pool.strings)))
	for _, s := range pool.strings {
		writeLengthPrefixed(buf, []byte(s))
	}
	for i := range events {
		writeUvarint(buf, uint64(ownIdx[i]))
		writeUvarint(buf, uint64(len(parentIdx[i])))
		for _, idx := range parentIdx[i] {
			writeUvarint(buf, uint64(idx))
		}
	}
	return nil
}

type hashRow struct {
	ownHash string
	parents []string
}

func readHashColumn(r *byteReader, rowCount int) ([]hashRow, error) {
	poolLen, err := r.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("hash pool length: %w", err)
	}
	pool := make([]string, poolLen)
	for i := range pool {
		b, err := r.readLengthPrefixed()
		if err != nil {
			return nil, fmt.Errorf("hash pool entry %d: %w", i, err)
		}
		pool[i] = string(b)
	}

	out := make([]hashRow, rowCount)
	for i := 0; i < rowCount; i++ {
		ownIdx, err := r.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("row %d own hash index: %w", i, err)
		}
		if int(ownIdx) >= len(pool) {
			return nil, fmt.Errorf("row %d own hash index %d out of range", i, ownIdx)
		}
		count, err := r.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("row %d parent count: %w", i, err)
		}
		var parents []string
		if count > 0 {
			parents = make([]string, count)
		}
		for j := range parents {
			idx, err := r.readUvarint()
			if err != nil {
				return nil, fmt.Errorf("row %d parent %d: %w", i, j, err)
			}
			if int(idx) >= len(pool) {
				return nil, fmt.Errorf("row %d parent %d index %d out of range", i, j, idx)
			}
			parents[j] = pool[idx]
		}
		out[i] = hashRow{ownHash: pool[ownIdx], parents: parents}
	}
	return out, nil
}

// writeDictColumn dictionary-encodes a per-row string field, then
// run-length-encodes the resulting index sequence: consecutive rows
// sharing the same value collapse to one (index, run length) pair,
// which is cheap for agent/type/item_id columns where the same value
// often repeats across adjacent events.
func writeDictColumn(buf *bytes.Buffer, events []codec.Event, field func(codec.Event) string) {
	dict := newStringDict()
	indices := make([]uint32, len(events))
	for i, ev := range events {
		indices[i] = dict.intern(field(ev))
	}

	writeUvarint(buf, uint64(len(dict.strings)))
	for _, s := range dict.strings {
		writeLengthPrefixed(buf, []byte(s))
	}

	runs := runLengthEncode(indices)
	writeUvarint(buf, uint64(len(runs)))
	for _, run := range runs {
		writeUvarint(buf, uint64(run.value))
		writeUvarint(buf, uint64(run.length))
	}
}

func readDictColumn(r *byteReader, rowCount int) ([]string, error) {
	dictLen, err := r.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("dict length: %w", err)
	}
	dict := make([]string, dictLen)
	for i := range dict {
		b, err := r.readLengthPrefixed()
		if err != nil {
			return nil, fmt.Errorf("dict entry %d: %w", i, err)
		}
		dict[i] = string(b)
	}

	runCount, err := r.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("run count: %w", err)
	}
	out := make([]string, 0, rowCount)
	for i := uint64(0); i < runCount; i++ {
		value, err := r.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("run %d value: %w", i, err)
		}
		length, err := r.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("run %d length: %w", i, err)
		}
		if int(value) >= len(dict) {
			return nil, fmt.Errorf("run %d dict index %d out of range", i, value)
		}
		for j := uint64(0); j < length; j++ {
			out = append(out, dict[value])
		}
	}
	if len(out) != rowCount {
		return nil, fmt.Errorf("dict column decoded %d rows, expected %d", len(out), rowCount)
	}
	return out, nil
}

// writeRawStringColumn stores one length-prefixed string per row,
// undictionaried: ITC stamps are nearly always unique, so interning them
// would only add a layer of indirection with no repetition to exploit.
func writeRawStringColumn(buf *bytes.Buffer, events []codec.Event, field func(codec.Event) string) {
	for _, ev := range events {
		writeLengthPrefixed(buf, []byte(field(ev)))
	}
}

func readRawStringColumn(r *byteReader, rowCount int) ([]string, error) {
	out := make([]string, rowCount)
	for i := range out {
		b, err := r.readLengthPrefixed()
		if err != nil {
			return nil, fmt.Errorf("raw string row %d: %w", i, err)
		}
		out[i] = string(b)
	}
	return out, nil
}

func writeDataColumn(buf *bytes.Buffer, events []codec.Event) error {
	for i, ev := range events {
		data := ev.Data
		if data == nil {
			data = map[string]any{}
		}
		encoded, err := codec.MarshalCanonicalJSON(data)
		if err != nil {
			return fmt.Errorf("row %d: marshal data: %w", i, err)
		}
		writeLengthPrefixed(buf, encoded)
	}
	return nil
}

func readDataColumn(r *byteReader, rowCount int) ([]map[string]any, error) {
	out := make([]map[string]any, rowCount)
	for i := range out {
		b, err := r.readLengthPrefixed()
		if err != nil {
			return nil, fmt.Errorf("data row %d: %w", i, err)
		}
		obj, err := codec.DecodeCanonicalObject(b)
		if err != nil {
			return nil, fmt.Errorf("data row %d: decode: %w", i, err)
		}
		out[i] = obj
	}
	return out, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeLengthPrefixed(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}
