package idgen

// lengthForCount returns the base36 body length whose birthday-bound
// collision probability stays below a fixed target at the given item
// count. Beyond the table's last tier, length keeps growing by one per
// order of magnitude rather than capping, since a repository that large
// still needs the same collision guarantee.
func lengthForCount(itemCount int) int {
	tiers := []struct {
		maxCount int
		length   int
	}{
		{100, 3},
		{1000, 4},
		{7000, 5},
		{46000, 6},
		{287000, 7},
	}
	for _, tier := range tiers {
		if itemCount <= tier.maxCount {
			return tier.length
		}
	}
	length := tiers[len(tiers)-1].length
	bound := tiers[len(tiers)-1].maxCount
	for itemCount > bound {
		bound *= 10
		length++
	}
	return length
}
