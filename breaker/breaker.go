// Package breaker implements the box breaker (spec.md §4.1): slicing one
// integer-lattice box to extract a target load while honoring geometric
// constraints (min/max size, cut factor, bad intervals) and minimizing a
// penalty that combines imbalance, new surface area and slenderness.
//
// The contract and algorithm are grounded on
// original_source/source/SAMRAI/mesh/BalanceBoxBreaker.h: breakOffLoad
// tries a planar cut and a cubic cut, keeps whichever (including "no cut")
// has the lowest penalty, and returns ok=false when no admissible cut
// exists.
package breaker

import (
	"log"
	"math"
	"os"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/params"
)

// Logger receives non-fatal diagnostics (spec.md §7: box-break failure is
// non-fatal and logged to the diagnostic sink).
var Logger = log.New(os.Stderr, "breaker: ", log.LstdFlags)

// Breaker breaks boxes against one fixed Params bundle.
type Breaker struct {
	p *params.Params
}

// New constructs a Breaker bound to p.
func New(p *params.Params) *Breaker {
	return &Breaker{p: p}
}

// Result is the outcome of BreakOffLoad.
type Result struct {
	Breakoff []box.Box
	Leftover []box.Box
	Load     float64
	OK       bool
}

// candidate is an internal (breakoff, leftover, load, penalty) tuple used
// to compare the no-cut / planar / cubic alternatives.
type candidate struct {
	breakoff []box.Box
	leftover []box.Box
	load     float64
	penalty  float64
	valid    bool
}

// BreakOffLoad attempts to cut b so the breakoff has load close to ideal
// and strictly within [low, high]. Returns ok=false when no admissible cut
// exists (box too small, every cut forbidden, etc).
func (br *Breaker) BreakOffLoad(b box.Box, ideal, low, high float64) Result {
	badCuts := br.findBadCuts(b)

	noCut := br.noCutCandidate(b, ideal, low, high)
	planar := br.planarCandidate(b, ideal, low, high, badCuts)
	cubic := br.cubicCandidate(b, ideal, low, high, badCuts)

	best := pickBest(noCut, planar, cubic, br.p.PreCutPenaltyMultiplier)
	if !best.valid {
		Logger.Printf("no admissible break for box %v (ideal=%.3f low=%.3f high=%.3f)", b, ideal, low, high)
		return Result{OK: false}
	}
	return Result{Breakoff: best.breakoff, Leftover: best.leftover, Load: best.load, OK: true}
}

// pickBest compares the three alternatives by penalty, pre-multiplying the
// no-cut candidate's penalty by preCutWeight (spec.md §4.1: "the no-cut
// alternative is legal only if low <= box.load <= high" and all three are
// compared "using combined pre-multiplied by the pre-cut weight").
func pickBest(noCut, planar, cubic candidate, preCutWeight float64) candidate {
	var best candidate
	var bestWeighted float64
	consider := func(c candidate, weight float64) {
		if !c.valid {
			return
		}
		weighted := c.penalty * weight
		if !best.valid || weighted < bestWeighted {
			best = c // keep the unweighted penalty for reporting
			bestWeighted = weighted
		}
	}
	consider(noCut, preCutWeight)
	consider(planar, 1)
	consider(cubic, 1)
	return best
}

// findBadCuts precomputes, for every axis and every candidate plane index
// within b, whether that plane is admissible. Grounded on the header's
// t_find_bad_cuts timer split: computing this table once per box avoids
// re-evaluating CutAllowed's domain-boundary scan for every (axis, plane)
// pair considered by both the planar and cubic search.
func (br *Breaker) findBadCuts(b box.Box) [][]bool {
	table := make([][]bool, b.Dim())
	for axis := 0; axis < b.Dim(); axis++ {
		n := int(b.Size(axis))
		allowed := make([]bool, n+1)
		for offset := 1; offset < n; offset++ {
			plane := b.Lo[axis] + int32(offset)
			allowed[offset] = br.p.CutAllowed(axis, plane)
		}
		table[axis] = allowed
	}
	return table
}

func (br *Breaker) noCutCandidate(b box.Box, ideal, low, high float64) candidate {
	load := float64(b.NumCells())
	if load < low || load > high {
		return candidate{}
	}
	return candidate{
		breakoff: []box.Box{b},
		leftover: nil,
		load:     load,
		penalty:  br.penalty(load, ideal, []box.Box{b}, nil, b),
		valid:    true,
	}
}

// penalty implements the combined penalty:
//
//	combined = w_bal*bal^2 + w_surf*surf^2 + w_slender*slender^2
func (br *Breaker) penalty(load, ideal float64, breakoff, leftover []box.Box, original box.Box) float64 {
	bal := math.Abs(load - ideal)
	surf := float64(newSurfaceArea(breakoff, leftover, original))
	slender := maxSlenderness(breakoff, leftover, br.p.SlendernessThreshold)
	w := br.p.PenaltyWeights
	return w.Balance*bal*bal + w.Surface*surf*surf + w.Slenderness*slender*slender
}

// newSurfaceArea estimates the new interior surface exposed by the cut: the
// sum of face areas for every face of every resulting box that is not also
// a face of the original box (i.e. a face created by the cut).
func newSurfaceArea(breakoff, leftover []box.Box, original box.Box) int64 {
	var total int64
	for _, piece := range append(append([]box.Box{}, breakoff...), leftover...) {
		for axis := 0; axis < piece.Dim(); axis++ {
			area := faceArea(piece, axis)
			if piece.Lo[axis] != original.Lo[axis] {
				total += area
			}
			if piece.Hi[axis] != original.Hi[axis] {
				total += area
			}
		}
	}
	return total
}

func faceArea(b box.Box, excludeAxis int) int64 {
	area := int64(1)
	for i := 0; i < b.Dim(); i++ {
		if i == excludeAxis {
			continue
		}
		area *= int64(b.Size(i))
	}
	return area
}

// maxSlenderness returns max(longest/shortest edge ratio - threshold, 0)
// over all resulting boxes.
func maxSlenderness(breakoff, leftover []box.Box, threshold float64) float64 {
	var worst float64
	check := func(b box.Box) {
		longest, shortest := int32(0), int32(math.MaxInt32)
		for i := 0; i < b.Dim(); i++ {
			s := b.Size(i)
			if s > longest {
				longest = s
			}
			if s < shortest {
				shortest = s
			}
		}
		if shortest == 0 {
			return
		}
		ratio := float64(longest) / float64(shortest)
		if v := ratio - threshold; v > worst {
			worst = v
		}
	}
	for _, b := range breakoff {
		check(b)
	}
	for _, b := range leftover {
		check(b)
	}
	return worst
}
