// Package ranktree provides the polymorphic rank-tree strategy spec.md §9
// calls for: "delegated to an injected capability {children(rank),
// parent(rank), root()}." The default, Centered, embeds a contiguous rank
// range as a balanced binary tree via arithmetic on (lo, hi) bounds rather
// than an allocated node graph — the same "compute relationships by
// arithmetic" idea as other_examples/cisco-go-mls__tree_math.go's flat
// binary-tree index calculus, adapted from a fixed array of leaf slots to a
// contiguous range of live ranks (every rank here is simultaneously a leaf,
// via its own load, and an interior aggregator, so there is no separate
// leaf/internal bit encoding to carry over).
package ranktree

// Strategy is the injected rank-tree capability. Implementations must
// partition the group consistently: every process in the group must
// compute the same tree (spec.md §9 "alternatives are valid so long as
// they partition the group and agree across processes").
type Strategy interface {
	// Children returns rank's children within the group.
	Children(rank int) []int
	// Parent returns rank's parent, or rank itself if rank is the root.
	Parent(rank int) int
	// Root returns the group's root rank.
	Root() int
}

// Centered is the default strategy: a balanced binary embedding of the
// contiguous rank range [Lo, Hi). The root is the range's structural
// midpoint, so it depends only on (Lo, Hi) and is therefore identical on
// every process holding the same group — the agreement property Strategy
// requires.
type Centered struct {
	Lo, Hi int // half-open range of ranks in this group
}

// NewCentered constructs a Centered strategy over the contiguous range
// [lo, hi).
func NewCentered(lo, hi int) Centered {
	return Centered{Lo: lo, Hi: hi}
}

// Root returns the midpoint of [Lo, Hi).
func (c Centered) Root() int {
	return c.Lo + (c.Hi-c.Lo)/2
}

// Parent returns rank's parent by recursively bisecting [Lo, Hi) toward
// rank, stopping one level before reaching it. The root is its own parent.
func (c Centered) Parent(rank int) int {
	lo, hi := c.Lo, c.Hi
	parent := c.Root()
	for {
		mid := lo + (hi-lo)/2
		if mid == rank {
			return parent
		}
		parent = mid
		if rank < mid {
			hi = mid
		} else {
			lo = mid + 1
		}
		if lo >= hi {
			return parent
		}
	}
}

// Children returns rank's children: the midpoints of the left and right
// sub-ranges produced by bisecting [Lo, Hi) down to rank.
func (c Centered) Children(rank int) []int {
	lo, hi := c.Lo, c.Hi
	for {
		mid := lo + (hi-lo)/2
		if mid == rank {
			var kids []int
			if leftLo, leftHi := lo, mid; leftLo < leftHi {
				kids = append(kids, leftLo+(leftHi-leftLo)/2)
			}
			if rightLo, rightHi := mid+1, hi; rightLo < rightHi {
				kids = append(kids, rightLo+(rightHi-rightLo)/2)
			}
			return kids
		}
		if rank < mid {
			hi = mid
		} else {
			lo = mid + 1
		}
		if lo >= hi {
			return nil
		}
	}
}
