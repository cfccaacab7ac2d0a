// Package cycle implements the cycle controller (spec.md §4.6): the
// per-balance-call sequence of prebalance, max-size constraint, widening
// rank-group cycles, and connector fixup.
package cycle

import (
	"sort"

	"github.com/notargets/gocfd/utils"
)

// RankGroup is the set of ranks eligible to receive load for one balance
// call. It need not be contiguous — a caller can restrict balancing to an
// arbitrary subset of the full communicator (spec.md §4.6 step 1).
type RankGroup struct {
	Ranks []int
}

// NewRankGroup builds a RankGroup from an arbitrary rank list, normalizing
// it to a sorted, duplicate-free slice so every process computes the same
// membership regardless of input order.
func NewRankGroup(ranks []int) RankGroup {
	seen := make(map[int]bool, len(ranks))
	out := make([]int, 0, len(ranks))
	for _, r := range ranks {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Ints(out)
	return RankGroup{Ranks: out}
}

// Full returns the RankGroup containing every rank in [0, size).
func Full(size int) RankGroup {
	ranks := make([]int, size)
	for i := range ranks {
		ranks[i] = i
	}
	return RankGroup{Ranks: ranks}
}

// Len returns the number of ranks in the group.
func (g RankGroup) Len() int { return len(g.Ranks) }

// Contains reports whether rank is a member of g.
func (g RankGroup) Contains(rank int) bool {
	i := sort.SearchInts(g.Ranks, rank)
	return i < len(g.Ranks) && g.Ranks[i] == rank
}

// Nearest returns the member of g closest to rank (ties broken toward the
// lower rank) — used by prebalance to pick a destination for boxes held
// on an excluded rank.
func (g RankGroup) Nearest(rank int) int {
	best := g.Ranks[0]
	bestDist := abs(rank - best)
	for _, r := range g.Ranks[1:] {
		if d := abs(rank - r); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// NumberOfCycles computes ⌈log_spread(groupSize)⌉ (spec.md §4.6 step 3).
// Below MinCycleCollapseSize processes, cycles collapse to a single pass
// (spec.md §6 Constants).
func NumberOfCycles(groupSize, spread int) int {
	if groupSize < MinCycleCollapseSize || spread <= 1 {
		return 1
	}
	n := 0
	size := 1
	for size < groupSize {
		size *= spread
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// MinCycleCollapseSize is the process count below which the widening-group
// schedule collapses to a single pass over the whole group (spec.md §6).
const MinCycleCollapseSize = 65

// CycleWidths returns the widening sequence of sub-group sizes, one per
// cycle: cycle k's width is spread^k, saturating at groupSize. The final
// entry is always exactly groupSize, guaranteeing the last cycle runs
// over the full group (spec.md §4.6 step 3).
func CycleWidths(groupSize, spread, numCycles int) []int {
	widths := make([]int, numCycles)
	size := 1
	for k := 0; k < numCycles; k++ {
		size *= spread
		if size > groupSize || size <= 0 {
			size = groupSize
		}
		widths[k] = size
	}
	widths[numCycles-1] = groupSize
	return widths
}

// SubgroupBounds partitions g into contiguous buckets of approximately
// width ranks each (remainder spread over the first buckets), using
// gocfd's PartitionMap.Split1D, and returns the [lo, hi) index range
// (into g.Ranks) of rank's bucket. Equal-width buckets directly reuse
// PartitionMap's 1-D remainder-spreading split — the same algorithm the
// teacher uses to divide a mesh dimension into per-worker chunks, applied
// here to divide a rank group into per-cycle sub-groups.
func (g RankGroup) SubgroupBounds(rank, width int) (lo, hi int) {
	n := g.Len()
	if width >= n {
		return 0, n
	}
	pos := sort.SearchInts(g.Ranks, rank)
	numBuckets := (n + width - 1) / width
	pm := utils.NewPartitionMap(numBuckets, n)
	bucket, min, max := pm.GetBucket(pos)
	_ = bucket
	return min, max
}

// Subgroup returns the RankGroup of rank's cycle-local sub-group of
// approximately width ranks.
func (g RankGroup) Subgroup(rank, width int) RankGroup {
	lo, hi := g.SubgroupBounds(rank, width)
	return RankGroup{Ranks: append([]int(nil), g.Ranks[lo:hi]...)}
}
