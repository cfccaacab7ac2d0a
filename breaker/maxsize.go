package breaker

import "github.com/notargets/amrbalance/box"

// ConstrainMaxSize enforces the cycle controller's pre-cycle shape bound
// (spec.md §4.6 step 2): any axis of b exceeding maxSize[axis] is cut by
// repeated planar splits — ignoring load entirely — until every piece
// fits. Pieces produced by a cut carry b's BlockID and a zero BoxID; the
// caller assigns fresh local ids (mirrors the box breaker's own
// convention, see splitAlongAxis). A b that already fits is returned
// unchanged, BoxID included.
func ConstrainMaxSize(b box.Box, maxSize box.IntVector) []box.Box {
	pieces := []box.Box{b}
	for axis := 0; axis < b.Dim(); axis++ {
		limit := maxSize[axis]
		if limit <= 0 {
			continue
		}
		var next []box.Box
		for _, p := range pieces {
			next = append(next, splitToLimit(p, axis, limit)...)
		}
		pieces = next
	}
	return pieces
}

// splitToLimit cuts limit-wide slabs off the low end of b along axis, one
// at a time, until the remaining piece measures at most limit on that
// axis.
func splitToLimit(b box.Box, axis int, limit int32) []box.Box {
	if b.Size(axis) <= limit {
		return []box.Box{b}
	}
	plane := b.Lo[axis] + limit
	lower, upper, err := splitAlongAxis(b, axis, plane)
	if err != nil {
		// limit >= 1 and b.Size(axis) > limit guarantee plane is interior;
		// this should be unreachable.
		return []box.Box{b}
	}
	out := append([]box.Box{lower}, splitToLimit(upper, axis, limit)...)
	return out
}
