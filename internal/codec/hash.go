package codec

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// HashPrefix is prepended to every stored event hash.
const HashPrefix = "blake3:"

// ComputeHash hashes the canonical byte layout of e (minus its own
// event_hash field) and returns it in "blake3:<hex>" form.
func ComputeHash(e *Event) (string, error) {
	input, err := hashInput(e)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(input)
	return HashPrefix + hex.EncodeToString(sum[:]), nil
}

// VerifyHash reports whether e.EventHash matches the hash of its own
// content. A mismatch is the HashMismatch error kind at higher layers.
func VerifyHash(e *Event) (bool, error) {
	want, err := ComputeHash(e)
	if err != nil {
		return false, err
	}
	return want == e.EventHash, nil
}

// hashInput builds the byte layout the hash is computed over: the same
// tab-delimited fields as the line format, but with the event_hash field
// (and its preceding tab) omitted, terminated by a single newline.
func hashInput(e *Event) ([]byte, error) {
	dataBytes, err := MarshalCanonicalJSON(toAny(e.Data))
	if err != nil {
		return nil, fmt.Errorf("codec: marshal data for hashing: %w", err)
	}
	var buf []byte
	buf = appendField(buf, fmt.Sprintf("%d", e.WallTSUs))
	buf = appendField(buf, e.Agent)
	buf = appendField(buf, e.ITC)
	buf = appendField(buf, joinParents(sortParents(e.Parents)))
	buf = appendField(buf, string(e.Type))
	buf = appendField(buf, e.ItemID)
	buf = append(buf, dataBytes...)
	buf = append(buf, '\n')
	return buf, nil
}

func appendField(buf []byte, field string) []byte {
	buf = append(buf, []byte(field)...)
	buf = append(buf, '\t')
	return buf
}

func joinParents(parents []string) string {
	out := ""
	for i, p := range parents {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// toAny converts the decoded map[string]any payload back to a plain `any`
// for MarshalCanonicalJSON, which operates on the decode-shaped value set.
func toAny(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
