package breaker

import (
	"fmt"

	"github.com/notargets/amrbalance/box"
)

// splitAlongAxis cuts b into two boxes at plane index along axis:
// [Lo[axis], plane) and [plane, Hi[axis]). Both pieces inherit b's BlockID;
// their BoxID is left zero — the caller (adjuster) assigns fresh local ids
// per spec.md §4.3.
func splitAlongAxis(b box.Box, axis int, plane int32) (lower, upper box.Box, err error) {
	if plane <= b.Lo[axis] || plane >= b.Hi[axis] {
		return box.Box{}, box.Box{}, fmt.Errorf("breaker: plane %d outside open interval (%d,%d) on axis %d", plane, b.Lo[axis], b.Hi[axis], axis)
	}
	loLower := b.Lo.Clone()
	hiLower := b.Hi.Clone()
	hiLower[axis] = plane
	lower, err = box.NewBox(loLower, hiLower, b.BlockID, box.BoxID{})
	if err != nil {
		return box.Box{}, box.Box{}, err
	}

	loUpper := b.Lo.Clone()
	loUpper[axis] = plane
	hiUpper := b.Hi.Clone()
	upper, err = box.NewBox(loUpper, hiUpper, b.BlockID, box.BoxID{})
	if err != nil {
		return box.Box{}, box.Box{}, err
	}
	return lower, upper, nil
}

// slabCellCount returns the cell count of a unit-thickness slab
// perpendicular to axis — the per-plane-index load increment used by the
// planar cut's projected-load formula (spec.md §4.1).
func slabCellCount(b box.Box, axis int) int64 {
	n := int64(1)
	for i := 0; i < b.Dim(); i++ {
		if i == axis {
			continue
		}
		n *= int64(b.Size(i))
	}
	return n
}
