package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	e := sampleEvent()
	line, err := EncodeLine(e)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), line[len(line)-1])

	parsed, err := ParseLine(line[:len(line)-1])
	require.NoError(t, err)

	assert.Equal(t, e.WallTSUs, parsed.WallTSUs)
	assert.Equal(t, e.Agent, parsed.Agent)
	assert.Equal(t, e.ITC, parsed.ITC)
	assert.Equal(t, e.Type, parsed.Type)
	assert.Equal(t, e.ItemID, parsed.ItemID)
	assert.Equal(t, e.EventHash, parsed.EventHash)
	assert.ElementsMatch(t, sortParents(e.Parents), parsed.Parents)
	assert.Equal(t, e.Data["title"], parsed.Data["title"])

	ok, err := VerifyHash(parsed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseLineRejectsWrongFieldCount(t *testing.T) {
	_, err := ParseLine([]byte("1\t2\t3"))
	assert.Error(t, err)
}

func TestParseHeaderVersion(t *testing.T) {
	v, err := ParseHeader(HeaderV1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = ParseHeader("not a header")
	assert.Error(t, err)
}

func TestCheckVersionRefusesNewer(t *testing.T) {
	require.NoError(t, CheckVersion(CurrentVersion))
	err := CheckVersion(CurrentVersion + 1)
	require.Error(t, err)
	var tooNew *ErrVersionTooNew
	assert.ErrorAs(t, err, &tooNew)
}

func TestIsComment(t *testing.T) {
	assert.True(t, IsComment([]byte("# a comment")))
	assert.False(t, IsComment([]byte("not a comment")))
	assert.False(t, IsComment(nil))
}
