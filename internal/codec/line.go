package codec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const fieldCount = 8

// HeaderV1 is the first line every shard file must carry.
const HeaderV1 = "# bones event log v1"

// CurrentVersion is the format version this codec implements.
const CurrentVersion = 1

// EncodeLine renders e as the exact bytes to append to a shard, including
// the terminating newline. e.EventHash is computed if empty.
func EncodeLine(e *Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.EventHash == "" {
		h, err := ComputeHash(e)
		if err != nil {
			return nil, err
		}
		e.EventHash = h
	}
	dataBytes, err := MarshalCanonicalJSON(toAny(e.Data))
	if err != nil {
		return nil, fmt.Errorf("codec: marshal data: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(strconv.FormatInt(e.WallTSUs, 10))
	buf.WriteByte('\t')
	buf.WriteString(e.Agent)
	buf.WriteByte('\t')
	buf.WriteString(e.ITC)
	buf.WriteByte('\t')
	buf.WriteString(joinParents(sortParents(e.Parents)))
	buf.WriteByte('\t')
	buf.WriteString(string(e.Type))
	buf.WriteByte('\t')
	buf.WriteString(e.ItemID)
	buf.WriteByte('\t')
	buf.Write(dataBytes)
	buf.WriteByte('\t')
	buf.WriteString(e.EventHash)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ParseLine parses one shard line (without its trailing newline) into an
// Event. Comment lines (starting with "#") and blank lines are rejected by
// the caller before reaching ParseLine; this function only handles record
// lines.
//
// A line's last field's JSON object must not contain a raw newline — any
// newline inside a string value must already be escaped as \n by the
// writer, which json.Marshal guarantees.
func ParseLine(line []byte) (*Event, error) {
	fields := splitFields(line)
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("codec: expected %d tab-separated fields, got %d", fieldCount, len(fields))
	}

	wallTS, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid wall_ts_us %q: %w", fields[0], err)
	}

	var parents []string
	if fields[3] != "" {
		parents = strings.Split(fields[3], ",")
	}

	data, err := DecodeCanonicalObject([]byte(fields[6]))
	if err != nil {
		return nil, fmt.Errorf("codec: invalid data field: %w", err)
	}

	e := &Event{
		WallTSUs:  wallTS,
		Agent:     fields[1],
		ITC:       fields[2],
		Parents:   parents,
		Type:      EventType(fields[4]),
		ItemID:    fields[5],
		Data:      data,
		EventHash: fields[7],
	}
	return e, nil
}

// splitFields splits on exactly fieldCount-1 tabs, keeping any further tabs
// inside the last field (the JSON payload is guaranteed tab-free by
// canonical encoding, but this keeps the parser robust against a payload
// that somehow contains a literal tab byte inside a string value — JSON
// escapes tabs as \t, so a raw tab byte never legitimately appears there,
// but we still don't want to silently truncate the hash field if one did).
func splitFields(line []byte) []string {
	fields := make([]string, 0, fieldCount)
	start := 0
	for i := 0; i < len(line) && len(fields) < fieldCount-1; i++ {
		if line[i] == '\t' {
			fields = append(fields, string(line[start:i]))
			start = i + 1
		}
	}
	fields = append(fields, string(line[start:]))
	return fields
}

// IsComment reports whether line is a header/comment line to be skipped
// during parsing rather than treated as a record.
func IsComment(line []byte) bool {
	return len(line) > 0 && line[0] == '#'
}

// ParseHeader extracts the declared format version from a header line of
// the form "# bones event log v<N>".
func ParseHeader(line string) (int, error) {
	const prefix = "# bones event log v"
	if !strings.HasPrefix(line, prefix) {
		return 0, fmt.Errorf("codec: malformed header line %q", line)
	}
	v, err := strconv.Atoi(strings.TrimSpace(line[len(prefix):]))
	if err != nil {
		return 0, fmt.Errorf("codec: malformed header version in %q: %w", line, err)
	}
	return v, nil
}

// ErrVersionTooNew is returned by ParseHeader callers when a shard declares
// a format version this codec does not implement. Callers must refuse to
// open the repository rather than partially parse it.
type ErrVersionTooNew struct {
	Found int
}

func (e *ErrVersionTooNew) Error() string {
	return fmt.Sprintf("codec: shard declares format version %d, this build implements v%d; upgrade bones before opening this repository", e.Found, CurrentVersion)
}

// CheckVersion returns ErrVersionTooNew if found exceeds what this build
// implements.
func CheckVersion(found int) error {
	if found > CurrentVersion {
		return &ErrVersionTooNew{Found: found}
	}
	return nil
}
