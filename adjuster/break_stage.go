package adjuster

import (
	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/breaker"
	"github.com/notargets/amrbalance/transit"
)

// adjustLoadByBreaking implements stage 3: pick the box in source most
// likely to yield a breakoff near the remaining deficit (largest box >=
// remaining deficit; else largest), invoke the box breaker with
// ideal=remaining deficit, and on success assign fresh local ids to the
// pieces via nextID and insert them into main/hold appropriately. On
// failure it falls back to whatever the swap stage already achieved — the
// set is left exactly as it was before this stage was entered.
func adjustLoadByBreaking(br *breaker.Breaker, main, hold *transit.Set, nextID NextID, ideal, low, high float64) {
	if inWindow(main.SumLoad(), low, high) {
		return
	}

	deficitMode := main.SumLoad() < low
	var source, dest *transit.Set
	var remaining float64
	var low2, high2 float64
	if deficitMode {
		source, dest = hold, main
		remaining = low - main.SumLoad()
		low2 = remaining
		high2 = high - main.SumLoad()
	} else {
		source, dest = main, hold
		remaining = main.SumLoad() - high
		low2 = remaining
		high2 = main.SumLoad() - low
	}

	idx := chooseBreakCandidate(source, remaining)
	if idx < 0 {
		return
	}
	candidate, _ := source.EraseAt(idx)

	res := br.BreakOffLoad(candidate.Current, remaining, low2, high2)
	if !res.OK {
		Logger.Printf("break failed for box %v (remaining=%.3f low=%.3f high=%.3f); falling back to swap residue", candidate.Current, remaining, low2, high2)
		_ = source.Insert(candidate)
		return
	}

	breakoff := assignIDs(candidate, res.Breakoff, nextID)
	leftover := assignIDs(candidate, res.Leftover, nextID)

	for _, t := range breakoff {
		_ = dest.Insert(t)
	}
	for _, t := range leftover {
		_ = source.Insert(t)
	}
}

// chooseBreakCandidate picks the largest box whose load is still >=
// remaining (spec.md §4.3 stage 3: "largest box >= remaining deficit; else
// largest"), falling back to the overall largest box if none is big
// enough.
func chooseBreakCandidate(s *transit.Set, remaining float64) int {
	items := s.Items() // sorted descending by load
	for i := 0; i < len(items); i++ {
		if items[i].Load >= remaining {
			return i
		}
	}
	if len(items) > 0 {
		return 0 // largest available
	}
	return -1
}

// assignIDs wraps each piece of a break as a box.InTransit with a fresh
// local id (preserving origin and owner, per spec.md §3/§4.3), computing
// each piece's load by the fraction of cells it carries relative to the
// original candidate's box — consistent with the uniform-load model
// (hierarchy.LoadComputer).
func assignIDs(original box.InTransit, pieces []box.Box, nextID NextID) []box.InTransit {
	out := make([]box.InTransit, len(pieces))
	totalCells := float64(original.Current.NumCells())
	for i, p := range pieces {
		p.ID = box.BoxID{Owner: original.Current.ID.Owner, LocalID: nextID()}
		load := original.Load
		if totalCells > 0 {
			load = original.Load * float64(p.NumCells()) / totalCells
		}
		out[i] = box.InTransit{Current: p, Origin: original.Origin, Load: load}
	}
	return out
}
