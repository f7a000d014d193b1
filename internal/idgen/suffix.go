package idgen

import (
	"sync"

	"github.com/google/uuid"
)

// SuffixGenerator supplies the random suffix appended in tier 4, when
// every deterministic candidate has collided. Generalizes
// internal/engine/flow.go's FlowTokenGenerator interface from flow tokens
// to recovery suffixes.
type SuffixGenerator interface {
	Generate() string
}

// UUIDSuffixGenerator produces a UUIDv7 body, time-sortable like the
// candidates it replaces.
type UUIDSuffixGenerator struct{}

// Generate returns a fresh UUIDv7 string.
func (UUIDSuffixGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedSuffixGenerator returns predetermined suffixes for deterministic
// tests.
type FixedSuffixGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedSuffixGenerator returns a generator that yields tokens in order.
func NewFixedSuffixGenerator(tokens ...string) *FixedSuffixGenerator {
	return &FixedSuffixGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed.
func (g *FixedSuffixGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("idgen: FixedSuffixGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
