package idgen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noneExist(string) bool { return false }

func TestGenerateIsDeterministic(t *testing.T) {
	r1, err := Generate("fix the bug", "details", 10, noneExist, nil)
	require.NoError(t, err)
	r2, err := Generate("fix the bug", "details", 10, noneExist, nil)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, r2.ID)
	assert.False(t, r1.Recovered)
}

func TestGenerateMatchesGrammar(t *testing.T) {
	r, err := Generate("fix the bug", "details", 10, noneExist, nil)
	require.NoError(t, err)
	assert.True(t, Valid(r.ID))
}

func TestGenerateLengthScalesWithItemCount(t *testing.T) {
	small, err := Generate("t", "d", 10, noneExist, nil)
	require.NoError(t, err)
	large, err := Generate("t", "d", 100000, noneExist, nil)
	require.NoError(t, err)
	assert.Less(t, len(small.ID), len(large.ID))
}

func TestGenerateDifferentInputsDifferentIDs(t *testing.T) {
	a, err := Generate("title a", "desc", 10, noneExist, nil)
	require.NoError(t, err)
	b, err := Generate("title b", "desc", 10, noneExist, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerateEscalatesNonceOnCollision(t *testing.T) {
	var seen []string
	exists := func(id string) bool {
		for _, s := range seen {
			if s == id {
				return true
			}
		}
		return false
	}

	first, err := Generate("dup", "dup", 10, exists, nil)
	require.NoError(t, err)
	seen = append(seen, first.ID)

	second, err := Generate("dup", "dup", 10, exists, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.Recovered)
}

func TestGenerateEscalatesToTier4WhenExhausted(t *testing.T) {
	gen := NewFixedSuffixGenerator(
		"aaaaaaaa-0000-0000-0000-000000000000",
		"aaaaaaaa-0000-0000-0000-000000000001",
		"aaaaaaaa-0000-0000-0000-000000000002",
		"aaaaaaaa-0000-0000-0000-000000000003",
		"aaaaaaaa-0000-0000-0000-000000000004",
		"aaaaaaaa-0000-0000-0000-000000000005",
		"aaaaaaaa-0000-0000-0000-000000000006",
		"aaaaaaaa-0000-0000-0000-000000000007",
	)
	alwaysExists := func(string) bool { return true }

	_, err := Generate("t", "d", 10, alwaysExists, gen)
	assert.Error(t, err, "every candidate including every fixed suffix collides")
}

func TestGenerateTier4UsesRecoverySuffix(t *testing.T) {
	gen := NewFixedSuffixGenerator("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	// Every candidate up to and including the tier-3 full-body candidate
	// collides; only a tier-4 suffixed ID (strictly longer) is accepted.
	exists := func(id string) bool {
		return len(id) <= len(Prefix)+32
	}
	r, err := Generate("t", "d", 10, exists, gen)
	require.NoError(t, err)
	assert.True(t, r.Recovered)
	assert.True(t, Valid(r.ID))
}

func TestValidRejectsBadGrammar(t *testing.T) {
	assert.False(t, Valid("bn-"))
	assert.False(t, Valid("bn-ABC"))
	assert.False(t, Valid("not-bn-abc"))
	assert.True(t, Valid("bn-a7x"))
	assert.True(t, Valid("bn-a7x.1"))
	assert.True(t, Valid("bn-a7x.1.2"))
	assert.False(t, Valid("bn-a7x.0"))
	assert.False(t, Valid("bn-a7x.01"))
}

func TestChildID(t *testing.T) {
	assert.Equal(t, "bn-a7x.1", ChildID("bn-a7x", 1))
}

func TestResolveExactMatchWinsOverPrefix(t *testing.T) {
	ids := []string{"bn-a7x", "bn-a7x4"}
	got, err := Resolve("a7x", ids)
	require.NoError(t, err)
	assert.Equal(t, "bn-a7x", got)
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	ids := []string{"bn-a7x", "bn-a7x4"}
	_, err := Resolve("a7", ids)
	require.Error(t, err)
	var ambiguous *AmbiguousError
	assert.ErrorAs(t, err, &ambiguous)
	assert.ElementsMatch(t, ids, ambiguous.Matches)
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve("zzz", []string{"bn-a7x"})
	require.Error(t, err)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResolveAcceptsFullID(t *testing.T) {
	got, err := Resolve("bn-a7x", []string{"bn-a7x", "bn-b2y"})
	require.NoError(t, err)
	assert.Equal(t, "bn-a7x", got)
}

func TestLengthForCountTiers(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{1, 3}, {100, 3},
		{101, 4}, {1000, 4},
		{1001, 5}, {7000, 5},
		{7001, 6}, {46000, 6},
		{46001, 7}, {287000, 7},
		{287001, 8},
		{3000000, 9},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("count=%d", c.count), func(t *testing.T) {
			assert.Equal(t, c.want, lengthForCount(c.count))
		})
	}
}
