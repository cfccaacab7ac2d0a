package breaker

import "github.com/notargets/amrbalance/box"

// Burst returns the minimal set of boxes covering bursty \ solid, where
// solid must be fully contained in bursty. It slices axis by axis in
// canonical (ascending) order: on each axis, if solid's extent differs
// from the remaining box's extent on the low side, the low slab is
// peeled off and emitted; likewise for the high side. Because solid is
// always a corner of bursty (per cubicCandidate's construction) at most
// one side is trimmed per axis, so for a D-dimensional box this emits at
// most D leftover pieces — matching spec.md §4.1's "up to three leftover
// pieces" for the 3-D case.
func (br *Breaker) Burst(bursty, solid box.Box) []box.Box {
	return Burst(bursty, solid)
}

// Burst is the free-function form, usable without a Breaker instance.
func Burst(bursty, solid box.Box) []box.Box {
	remainingLo := bursty.Lo.Clone()
	remainingHi := bursty.Hi.Clone()

	var leftover []box.Box
	for axis := 0; axis < bursty.Dim(); axis++ {
		if solid.Lo[axis] > remainingLo[axis] {
			lo := remainingLo.Clone()
			hi := remainingHi.Clone()
			hi[axis] = solid.Lo[axis]
			if b, err := box.NewBox(lo, hi, bursty.BlockID, box.BoxID{}); err == nil {
				leftover = append(leftover, b)
			}
			remainingLo[axis] = solid.Lo[axis]
		}
		if solid.Hi[axis] < remainingHi[axis] {
			lo := remainingLo.Clone()
			hi := remainingHi.Clone()
			lo[axis] = solid.Hi[axis]
			if b, err := box.NewBox(lo, hi, bursty.BlockID, box.BoxID{}); err == nil {
				leftover = append(leftover, b)
			}
			remainingHi[axis] = solid.Hi[axis]
		}
	}
	return leftover
}
