package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Prefix is prepended to every generated body.
const Prefix = "bn-"

// Recovered reports whether Generate had to fall back to tier 4 (a random
// suffix rather than a deterministic candidate). Callers surface this so
// an operator knows the ID carries no relationship to the title/description
// it was generated from.
type Result struct {
	ID        string
	Recovered bool
}

// ExistsFunc reports whether a candidate ID is already in use.
type ExistsFunc func(id string) bool

// Generate derives an ID for an item from its title and description.
// itemCount is the repository's current item count, used to size the
// body so birthday-bound collision probability stays below a fixed
// target. exists is consulted after every candidate; on collision,
// Generate escalates through nonce increment, length extension, a full
// 32-character body, and finally a random suffix (tier 4, flips
// Recovered).
func Generate(title, description string, itemCount int, exists ExistsFunc, suffixes SuffixGenerator) (Result, error) {
	length := lengthForCount(itemCount)

	// Tier 1: nonce increments, same length, up to a bounded number of
	// attempts before escalating further — an unbounded retry loop would
	// never terminate if exists always returns true.
	const maxNonceAttempts = 8
	for nonce := 0; nonce < maxNonceAttempts; nonce++ {
		body := candidateBody(title, description, nonce, length)
		id := Prefix + body
		if !exists(id) {
			return Result{ID: id}, nil
		}
	}

	// Tier 2: extend the body by one character at a time, reusing nonce 0.
	const maxExtension = 8
	for extra := 1; extra <= maxExtension; extra++ {
		body := candidateBody(title, description, 0, length+extra)
		id := Prefix + body
		if !exists(id) {
			return Result{ID: id}, nil
		}
	}

	// Tier 3: use the full 32-character body of the hash.
	full := fullBody(title, description, 0)
	if id := Prefix + full; !exists(id) {
		return Result{ID: id}, nil
	}

	// Tier 4: append a random suffix and flag recovery.
	if suffixes == nil {
		suffixes = UUIDSuffixGenerator{}
	}
	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		suffix := normalizeSuffix(suffixes.Generate())
		id := Prefix + full + suffix
		if !exists(id) {
			return Result{ID: id, Recovered: true}, nil
		}
	}
	return Result{}, fmt.Errorf("idgen: exhausted tier-4 recovery attempts for %q", title)
}

// candidateBody hashes the seed and truncates to length base36 characters.
func candidateBody(title, description string, nonce, length int) string {
	sum := hashSeed(title, description, nonce)
	encoded := encodeBase36(sum[:8])
	return padTruncate(encoded, length)
}

// fullBody uses the entire 32-byte hash, truncated to 32 characters of
// base36 output (the encoding of 32 bytes comfortably exceeds 32 base36
// digits, so this never needs padding).
func fullBody(title, description string, nonce int) string {
	sum := hashSeed(title, description, nonce)
	encoded := encodeBase36(sum[:])
	return padTruncate(encoded, 32)
}

func hashSeed(title, description string, nonce int) [32]byte {
	seed := title + "|" + description + "|" + strconv.Itoa(nonce)
	return sha256.Sum256([]byte(seed))
}

func encodeBase36(b []byte) string {
	n := new(big.Int).SetBytes(b)
	return strings.ToLower(n.Text(36))
}

// padTruncate truncates s to length, left-padding with '0' if it is
// shorter (big.Int.Text drops leading zero digits, which a short hash
// prefix can trigger).
func padTruncate(s string, length int) string {
	if len(s) >= length {
		return s[:length]
	}
	return strings.Repeat("0", length-len(s)) + s
}

func normalizeSuffix(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	return s
}
