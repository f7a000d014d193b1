package itc

// ID is a sealed interval-ownership tree partitioning [0, 1) among
// replicas. Leaves are either unowned (Zero) or fully owned (One);
// branches split the interval into a left and right half. Branch
// normalizes degenerate cases away: Branch(Zero, Zero) collapses to
// Zero, Branch(One, One) collapses to One.
type ID interface {
	idNode()
}

type idLeaf bool

func (idLeaf) idNode() {}

type idBranch struct {
	Left, Right ID
}

func (idBranch) idNode() {}

// IDZero is the anonymous identity: owns no part of the interval.
var IDZero ID = idLeaf(false)

// IDOne is the seed identity: owns the entire interval.
var IDOne ID = idLeaf(true)

// NewIDBranch builds a branch, normalizing Branch(Zero,Zero) to Zero and
// Branch(One,One) to One.
func NewIDBranch(left, right ID) ID {
	if left == IDZero && right == IDZero {
		return IDZero
	}
	if left == IDOne && right == IDOne {
		return IDOne
	}
	return idBranch{Left: left, Right: right}
}

// IsIDZero reports whether id owns no part of the interval.
func IsIDZero(id ID) bool {
	return id == IDZero
}

// IsIDOne reports whether id owns the entire interval.
func IsIDOne(id ID) bool {
	return id == IDOne
}

func isIDLeaf(id ID) bool {
	_, ok := id.(idLeaf)
	return ok
}

// idDepth returns the tree depth (0 for leaves).
func idDepth(id ID) int {
	b, ok := id.(idBranch)
	if !ok {
		return 0
	}
	l, r := idDepth(b.Left), idDepth(b.Right)
	if l > r {
		return 1 + l
	}
	return 1 + r
}

// idNodeCount returns the number of nodes (leaves and branches) in id.
func idNodeCount(id ID) int {
	b, ok := id.(idBranch)
	if !ok {
		return 1
	}
	return 1 + idNodeCount(b.Left) + idNodeCount(b.Right)
}

// splitID partitions id into two halves whose union recovers id and whose
// intersection is empty. Used when a replica forks off a new agent.
func splitID(id ID) (ID, ID) {
	switch v := id.(type) {
	case idLeaf:
		if !bool(v) {
			return IDZero, IDZero
		}
		return NewIDBranch(IDOne, IDZero), NewIDBranch(IDZero, IDOne)
	case idBranch:
		lZero, rZero := IsIDZero(v.Left), IsIDZero(v.Right)
		switch {
		case !lZero && rZero:
			ll, lr := splitID(v.Left)
			return NewIDBranch(ll, IDZero), NewIDBranch(lr, IDZero)
		case lZero && !rZero:
			rl, rr := splitID(v.Right)
			return NewIDBranch(IDZero, rl), NewIDBranch(IDZero, rr)
		default:
			return NewIDBranch(v.Left, IDZero), NewIDBranch(IDZero, v.Right)
		}
	default:
		panic("itc: unknown ID implementation")
	}
}

// sumID merges two disjoint ID trees into their union.
func sumID(a, b ID) ID {
	if IsIDZero(a) {
		return b
	}
	if IsIDZero(b) {
		return a
	}
	ab, aOK := a.(idBranch)
	bb, bOK := b.(idBranch)
	if aOK && bOK {
		return NewIDBranch(sumID(ab.Left, bb.Left), sumID(ab.Right, bb.Right))
	}
	// One of the two is One (or both): the ITC invariant guarantees
	// disjoint ownership, so merging any non-zero pair where at least one
	// side is a full leaf yields full ownership.
	return IDOne
}
