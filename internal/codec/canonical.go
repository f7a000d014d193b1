package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonicalJSON produces the deterministic byte encoding used for
// hashing and for the `data` field of an event line: keys sorted
// recursively (by UTF-16 code unit, per RFC 8785), compact separators, UTF-8,
// no insignificant whitespace, NFC-normalized strings.
//
// Accepted value shapes are the ones encoding/json produces when decoding
// into `any`: map[string]any, []any, string, json.Number, float64, bool,
// and nil. Passing a Go struct or any other type is an error — callers
// should decode through DecodeCanonicalObject first.
func MarshalCanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCanonicalObject parses raw JSON bytes into the canonical value
// shapes MarshalCanonicalJSON expects, preserving integer/float distinction
// via json.Number instead of collapsing everything to float64.
func DecodeCanonicalObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("codec: decode canonical object: %w", err)
	}
	return obj, nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case map[string]any:
		return encodeCanonicalObject(buf, val)
	case []any:
		return encodeCanonicalArray(buf, val)
	case string:
		return encodeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return encodeCanonicalNumber(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float64:
		return encodeCanonicalFloat(buf, val)
	default:
		return fmt.Errorf("codec: unsupported canonical JSON value type %T", v)
	}
}

// encodeCanonicalNumber formats a json.Number without an exponent when it
// is integral, and with Go's shortest round-trip decimal otherwise. This
// resolves the spec's open question on number serialization: the teacher's
// domain forbids floats outright (determinism via exclusion); this domain
// allows them but pins a single deterministic textual form.
func encodeCanonicalNumber(buf *bytes.Buffer, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("codec: invalid number %q: %w", n.String(), err)
	}
	return encodeCanonicalFloat(buf, f)
}

func encodeCanonicalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("codec: NaN/Inf forbidden in canonical JSON")
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// encodeCanonicalString writes a JSON string literal: NFC-normalized, no
// HTML escaping, with U+2028/U+2029 left unescaped per RFC 8785.
func encodeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var inner bytes.Buffer
	enc := json.NewEncoder(&inner)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return fmt.Errorf("codec: encode string: %w", err)
	}

	out := inner.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators converts   /   escapes back to literal
// UTF-8 bytes, unless they are themselves preceded by an odd number of
// backslashes (i.e. are part of an escaped backslash, not a real escape).
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	var out []byte
	i := 0
	for i < len(data) {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if out == nil {
					out = make([]byte, 0, len(data))
					out = append(out, data[:i]...)
				}
				if data[i+5] == '8' {
					out = append(out, " "...)
				} else {
					out = append(out, " "...)
				}
				i += 6
				continue
			}
		}
		if out != nil {
			out = append(out, data[i])
		}
		i++
	}
	if out == nil {
		return data
	}
	return out
}

func encodeCanonicalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeCanonical(buf, elem); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	buf.WriteByte('{')
	keys := sortedKeysRFC8785(obj)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := encodeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func sortedKeysRFC8785(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by UTF-16 code unit, as RFC 8785 requires.
// Go's native string comparison is UTF-8 byte order, which disagrees with
// UTF-16 order once surrogate-pair code points are involved.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := len(a16)
	if len(b16) < n {
		n = len(b16)
	}
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// sortParents returns parents in ASCII (byte) sort order, as the `parents`
// field of a line requires.
func sortParents(parents []string) []string {
	out := slices.Clone(parents)
	sort.Strings(out)
	return out
}
