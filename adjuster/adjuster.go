// Package adjuster implements the load adjuster (spec.md §4.3): moves
// box.InTransit records between two transit.Sets until the destination's
// load lands inside a target window, via three stages in order — whole-box
// move, swap, break — each stopping as soon as the window is reached.
package adjuster

import (
	"log"
	"os"

	"github.com/notargets/amrbalance/breaker"
	"github.com/notargets/amrbalance/transit"
)

// Logger receives non-fatal diagnostics: a break failure during the break
// stage is logged here, not treated as an error (spec.md §7).
var Logger = log.New(os.Stderr, "adjuster: ", log.LstdFlags)

// NextID allocates the next local id for a fresh piece produced by a break.
// Injected by the caller (same "owner holds the counter, component gets a
// callback" idiom as DGKernel/runner's configuration builders) so the
// adjuster itself carries no mutable id state.
type NextID func() int64

// AdjustLoad moves box.InTransit records between main (destination) and
// hold (reserve) until main.SumLoad() is within [low, high], preferring
// ideal when possible. Returns the signed net transfer into main.
// Termination is guaranteed: each stage either narrows |main.SumLoad -
// ideal| or fails outright: spec.md §4.3's termination argument.
func AdjustLoad(br *breaker.Breaker, main, hold *transit.Set, nextID NextID, ideal, low, high float64) float64 {
	start := main.SumLoad()

	if moveWholeBoxes(main, hold, low, high) {
		return main.SumLoad() - start
	}
	if adjustLoadBySwapping(main, hold, low, high) {
		return main.SumLoad() - start
	}
	adjustLoadByBreaking(br, main, hold, nextID, ideal, low, high)
	return main.SumLoad() - start
}

// moveWholeBoxes implements stage 1: while main is outside the window,
// repeatedly move the box from hold whose load is closest to the current
// deficit/excess without overshooting the opposite bound. Returns true once
// main's load is inside [low, high].
func moveWholeBoxes(main, hold *transit.Set, low, high float64) bool {
	for main.SumLoad() < low {
		deficit := low - main.SumLoad()
		ceiling := high - main.SumLoad()
		idx := bestCandidateIndex(hold, deficit, ceiling)
		if idx < 0 {
			return inWindow(main.SumLoad(), low, high)
		}
		t, _ := hold.EraseAt(idx)
		_ = main.Insert(t)
	}
	for main.SumLoad() > high {
		excess := main.SumLoad() - high
		ceiling := main.SumLoad() - low
		idx := bestCandidateIndexForRemoval(main, excess, ceiling)
		if idx < 0 {
			return inWindow(main.SumLoad(), low, high)
		}
		t, _ := main.EraseAt(idx)
		_ = hold.Insert(t)
	}
	return inWindow(main.SumLoad(), low, high)
}

// bestCandidateIndex finds, among hold's members, the index of the box
// whose load is closest to target without exceeding ceiling. Returns -1 if
// no member fits within the ceiling.
func bestCandidateIndex(s *transit.Set, target, ceiling float64) int {
	best := -1
	var bestDist float64
	for i, t := range s.Items() {
		if t.Load > ceiling {
			continue
		}
		d := target - t.Load
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// bestCandidateIndexForRemoval mirrors bestCandidateIndex but searches main
// for a box to move OUT when main is over high.
func bestCandidateIndexForRemoval(s *transit.Set, target, ceiling float64) int {
	return bestCandidateIndex(s, target, ceiling)
}

func inWindow(v, low, high float64) bool { return v >= low && v <= high }

// adjustLoadBySwapping implements stage 2: find a ∈ source, b ∈ dest such
// that a.load - b.load is closest to the needed transfer and lies in
// [lowTransfer, highTransfer]; commit the swap if found. The swap is
// committed unconditionally once a candidate pair is found — it is the
// best available move even if it doesn't land in the window — but this
// stage only reports success (and stops the pipeline short of the break
// stage) when main actually lands in [low, high] afterward. Otherwise the
// swap's partial improvement is kept as a fallback and the break stage
// runs next on the now-updated sets (spec.md §4.3 stage 2: a swap is
// committed in-window, or retained as a fallback only if no break
// succeeds).
//
// "source"/"dest" here are whichever of (hold, main) the deficit direction
// calls for: if main is short, main pulls load FROM hold, meaning we swap a
// box out of hold (a) for a box out of main (b) with a smaller load, so the
// net transfer into main is a.load - b.load > 0.
func adjustLoadBySwapping(main, hold *transit.Set, low, high float64) bool {
	if inWindow(main.SumLoad(), low, high) {
		return true
	}
	if main.SumLoad() < low {
		needed := low - main.SumLoad()
		ceiling := high - main.SumLoad()
		trySwap(hold, main, needed, ceiling)
	} else {
		needed := main.SumLoad() - high
		ceiling := main.SumLoad() - low
		trySwap(main, hold, needed, ceiling)
	}
	return inWindow(main.SumLoad(), low, high)
}

// trySwap considers every (a ∈ source, b ∈ dest) pair and keeps the one
// whose transfer a.load-b.load lands closest to needed while not exceeding
// ceiling. source is already sorted by descending load (transit.Set's
// invariant), so this walks it largest-first as spec.md §4.3 describes;
// dest is scanned linearly rather than binary-searched per candidate — at
// the set sizes this algorithm handles (hundreds of boxes) the O(n*m) scan
// costs the same order of work as n binary searches plus bookkeeping, and
// is simpler to keep correct. On success it swaps a and b between the two
// sets.
func trySwap(source, dest *transit.Set, needed, ceiling float64) bool {
	type pick struct {
		srcIdx, dstIdx int
	}
	var best *pick
	var bestDist float64

	srcItems := source.Items()
	dstItems := dest.Items()
	for si, a := range srcItems {
		for di, b := range dstItems {
			transfer := a.Load - b.Load
			if transfer < 0 || transfer > ceiling {
				continue
			}
			dist := transfer - needed
			if dist < 0 {
				dist = -dist
			}
			if best == nil || dist < bestDist {
				best = &pick{si, di}
				bestDist = dist
			}
		}
	}
	if best == nil {
		return false
	}
	a, _ := source.EraseAt(best.srcIdx)
	// Erasing from source does not shift dest's indices.
	b, _ := dest.EraseAt(best.dstIdx)
	_ = source.Insert(b)
	_ = dest.Insert(a)
	return true
}
