package breaker

import (
	"math"

	"github.com/notargets/amrbalance/box"
)

// cubicCandidate enumerates multi-axis ("cubic") cuts: instead of slicing
// along a single plane, it carves an axis-aligned sub-box — a corner of
// b — whose load is close to ideal, then bursts the remainder into the
// minimal covering set of leftover boxes (spec.md §4.1: "multi-axis cut
// yielding up to three leftover pieces... used when the best planar cut
// would leave a slender sliver").
//
// The corner is chosen by enumerating which side (low or high) of each
// axis to trim from, 2^Dim combinations, and sizing the trimmed sub-box
// isotropically: each axis keeps a fraction of its extent close to
// (ideal/boxLoad)^(1/Dim), snapped to the nearest admissible cut plane
// for that axis (see snapToAdmissible). This keeps the sub-box roughly cube-shaped (the
// "cubic" in the name) rather than a single thin slab, at the cost of
// landing further from ideal load than an exhaustive search would.
func (br *Breaker) cubicCandidate(b box.Box, ideal, low, high float64, badCuts [][]bool) candidate {
	if b.Dim() < 2 {
		return candidate{}
	}
	boxLoad := float64(b.NumCells())
	if boxLoad <= 0 {
		return candidate{}
	}
	fraction := math.Pow(ideal/boxLoad, 1.0/float64(b.Dim()))
	if fraction <= 0 || math.IsNaN(fraction) {
		return candidate{}
	}

	var best candidate
	var bestPenalty = math.Inf(1)

	corners := 1 << uint(b.Dim())
	for corner := 0; corner < corners; corner++ {
		solidLo := b.Lo.Clone()
		solidHi := b.Hi.Clone()
		ok := true
		for axis := 0; axis < b.Dim(); axis++ {
			size := b.Size(axis)
			target := int32(math.Round(float64(size) * fraction))
			if target < br.p.MinSize[axis] {
				target = br.p.MinSize[axis]
			}
			if target > br.p.MaxSize[axis] {
				target = br.p.MaxSize[axis]
			}
			if target >= size {
				target = size
			}
			if target <= 0 {
				ok = false
				break
			}
			trimHi := (corner>>uint(axis))&1 == 1
			var plane int32
			if trimHi {
				plane = b.Hi[axis] - target
			} else {
				plane = b.Lo[axis] + target
			}
			plane = snapToAdmissible(b, axis, plane, badCuts[axis])
			if plane <= b.Lo[axis] || plane >= b.Hi[axis] {
				ok = false
				break
			}
			if trimHi {
				solidLo[axis] = plane
			} else {
				solidHi[axis] = plane
			}
		}
		if !ok {
			continue
		}

		solid, err := box.NewBox(solidLo, solidHi, b.BlockID, box.BoxID{})
		if err != nil || !meetsMinMax(solid, br.p) {
			continue
		}
		solidLoad := float64(solid.NumCells())
		if solidLoad < low || solidLoad > high {
			continue
		}

		leftover := br.Burst(b, solid)
		feasible := true
		for _, lo := range leftover {
			if !meetsMinMax(lo, br.p) {
				feasible = false
				break
			}
		}
		if !feasible {
			continue
		}

		penalty := br.penalty(solidLoad, ideal, []box.Box{solid}, leftover, b)
		if penalty < bestPenalty {
			bestPenalty = penalty
			best = candidate{
				breakoff: []box.Box{solid},
				leftover: leftover,
				load:     solidLoad,
				penalty:  penalty,
				valid:    true,
			}
		}
	}
	return best
}

// snapToAdmissible returns plane if allowed permits it; otherwise it tries
// offsets +1, -1, +2, -2, ... from plane, in that order, and returns the
// first allowed interior plane, or the original plane if none is found
// within the box.
func snapToAdmissible(b box.Box, axis int, plane int32, allowed []bool) int32 {
	offset := int(plane - b.Lo[axis])
	n := len(allowed) - 1
	if offset >= 1 && offset <= n-1 && allowed[offset] {
		return plane
	}
	for d := 1; d <= n; d++ {
		if offset+d <= n-1 && offset+d >= 1 && allowed[offset+d] {
			return b.Lo[axis] + int32(offset+d)
		}
		if offset-d >= 1 && offset-d <= n-1 && allowed[offset-d] {
			return b.Lo[axis] + int32(offset-d)
		}
	}
	return plane
}
