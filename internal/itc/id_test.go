package itc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDZero(t *testing.T) {
	assert.True(t, IsIDZero(IDZero))
	assert.False(t, IsIDOne(IDZero))
	assert.True(t, isIDLeaf(IDZero))
	assert.Equal(t, 0, idDepth(IDZero))
	assert.Equal(t, 1, idNodeCount(IDZero))
}

func TestIDOne(t *testing.T) {
	assert.False(t, IsIDZero(IDOne))
	assert.True(t, IsIDOne(IDOne))
	assert.True(t, isIDLeaf(IDOne))
	assert.Equal(t, 0, idDepth(IDOne))
	assert.Equal(t, 1, idNodeCount(IDOne))
}

func TestIDBranchDistinctChildren(t *testing.T) {
	id := NewIDBranch(IDOne, IDZero)
	assert.False(t, IsIDZero(id))
	assert.False(t, IsIDOne(id))
	assert.False(t, isIDLeaf(id))
	assert.Equal(t, 1, idDepth(id))
	assert.Equal(t, 3, idNodeCount(id))
}

func TestIDBranchBothZeroNormalizes(t *testing.T) {
	assert.Equal(t, IDZero, NewIDBranch(IDZero, IDZero))
}

func TestIDBranchBothOneNormalizes(t *testing.T) {
	assert.Equal(t, IDOne, NewIDBranch(IDOne, IDOne))
}

func TestSplitIDZeroYieldsTwoZeros(t *testing.T) {
	l, r := splitID(IDZero)
	assert.Equal(t, IDZero, l)
	assert.Equal(t, IDZero, r)
}

func TestSplitIDOneYieldsComplementaryHalves(t *testing.T) {
	l, r := splitID(IDOne)
	assert.Equal(t, sumID(l, r), IDOne)
	assert.NotEqual(t, l, r)
}

func TestSumIDRecoversOriginal(t *testing.T) {
	l, r := splitID(IDOne)
	assert.Equal(t, IDOne, sumID(l, r))
}

func TestSumIDWithZeroIsIdentity(t *testing.T) {
	id := NewIDBranch(IDOne, IDZero)
	assert.Equal(t, id, sumID(id, IDZero))
	assert.Equal(t, id, sumID(IDZero, id))
}
