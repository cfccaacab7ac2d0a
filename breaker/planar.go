package breaker

import (
	"math"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/params"
)

// planarCandidate enumerates every admissible (axis, plane, orientation)
// cut and keeps the one whose breakoff load is closest to ideal while
// lying in [low, high]. Per spec.md §4.1, edges of size 1 on an axis make
// that axis ineligible, planes not divisible by the cut factor are
// skipped, and planes within a bad interval of a domain boundary are
// skipped. Ties are broken by lower axis index, then lower plane index —
// guaranteed here because axes and planes are scanned in ascending order
// and a new candidate only replaces the current best on strict
// improvement.
func (br *Breaker) planarCandidate(b box.Box, ideal, low, high float64, badCuts [][]bool) candidate {
	var best candidate
	var bestDist float64 = math.Inf(1)

	for axis := 0; axis < b.Dim(); axis++ {
		if b.Size(axis) <= 1 {
			continue
		}
		if !meetsMinSizeOnOtherAxes(b, br.p, axis) {
			continue
		}
		slab := float64(slabCellCount(b, axis))
		n := int(b.Size(axis))
		for offset := 1; offset < n; offset++ {
			if !badCuts[axis][offset] {
				continue
			}
			plane := b.Lo[axis] + int32(offset)
			lower, upper, err := splitAlongAxis(b, axis, plane)
			if err != nil {
				continue
			}
			if !meetsMinMax(lower, br.p) || !meetsMinMax(upper, br.p) {
				continue
			}

			loadLower := float64(offset) * slab
			loadUpper := float64(n-offset) * slab

			for _, orient := range []struct {
				breakoff, leftover box.Box
				load                float64
			}{
				{lower, upper, loadLower},
				{upper, lower, loadUpper},
			} {
				if orient.load < low || orient.load > high {
					continue
				}
				dist := math.Abs(orient.load - ideal)
				if dist < bestDist {
					bestDist = dist
					best = candidate{
						breakoff: []box.Box{orient.breakoff},
						leftover: []box.Box{orient.leftover},
						load:     orient.load,
						penalty:  br.penalty(orient.load, ideal, []box.Box{orient.breakoff}, []box.Box{orient.leftover}, b),
						valid:    true,
					}
				}
			}
		}
	}
	return best
}

// meetsMinMax reports whether every axis of b is within [MinSize, MaxSize].
func meetsMinMax(b box.Box, p *params.Params) bool {
	for i := 0; i < b.Dim(); i++ {
		s := b.Size(i)
		if s < p.MinSize[i] || s > p.MaxSize[i] {
			return false
		}
	}
	return true
}

// meetsMinSizeOnOtherAxes is a fast pre-filter: if any axis other than the
// cut axis is already below MinSize, no cut along this axis can produce a
// legal piece, so skip enumerating its planes entirely.
func meetsMinSizeOnOtherAxes(b box.Box, p *params.Params, cutAxis int) bool {
	for i := 0; i < b.Dim(); i++ {
		if i == cutAxis {
			continue
		}
		if b.Size(i) < p.MinSize[i] {
			return false
		}
	}
	return true
}
