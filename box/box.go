// Package box implements the data model shared by every other package in
// this module: the half-open axis-aligned integer box, the box-in-flight
// wrapper used while boxes migrate between processes, and the small vector
// arithmetic the rest of the balancer builds on.
package box

import "fmt"

// IntVector is a per-axis integer tuple. Its length is the dimensionality D
// of the problem (1, 2 or 3 in practice); every Box and IntVector exchanged
// within one balance call must share the same length.
type IntVector []int32

// Dim returns the dimensionality of v.
func (v IntVector) Dim() int { return len(v) }

// Clone returns an independent copy of v.
func (v IntVector) Clone() IntVector {
	out := make(IntVector, len(v))
	copy(out, v)
	return out
}

func (v IntVector) equal(o IntVector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// BoxID identifies a box by the (owner rank, local id) pair that is unique
// within the owning rank for the lifetime of a balance call.
type BoxID struct {
	Owner   int32
	LocalID int64
}

// Less orders BoxIDs by owner then local id, ascending — the tiebreak key
// used throughout the spec whenever two boxes have equal load or footprint.
func (id BoxID) Less(o BoxID) bool {
	if id.Owner != o.Owner {
		return id.Owner < o.Owner
	}
	return id.LocalID < o.LocalID
}

// Box is a half-open axis-aligned integer interval: cell indices
// [Lo[i], Hi[i]) along every axis i. Boxes are immutable once constructed;
// "modifying" a box means constructing new boxes and retiring the original.
type Box struct {
	Lo, Hi  IntVector
	BlockID int32
	ID      BoxID
}

// NewBox constructs a Box, validating that lo/hi agree in dimension and that
// the box is non-empty on every axis (Hi[i] > Lo[i]).
func NewBox(lo, hi IntVector, blockID int32, id BoxID) (Box, error) {
	if len(lo) != len(hi) {
		return Box{}, fmt.Errorf("box: lo/hi dimension mismatch: %d vs %d", len(lo), len(hi))
	}
	for i := range lo {
		if hi[i] <= lo[i] {
			return Box{}, fmt.Errorf("box: empty extent on axis %d: lo=%d hi=%d", i, lo[i], hi[i])
		}
	}
	return Box{Lo: lo.Clone(), Hi: hi.Clone(), BlockID: blockID, ID: id}, nil
}

// Dim returns the dimensionality of b.
func (b Box) Dim() int { return len(b.Lo) }

// Size returns the cell count along axis.
func (b Box) Size(axis int) int32 { return b.Hi[axis] - b.Lo[axis] }

// Sizes returns the cell count along every axis.
func (b Box) Sizes() IntVector {
	out := make(IntVector, b.Dim())
	for i := range out {
		out[i] = b.Size(i)
	}
	return out
}

// NumCells returns the total cell count of b — the default uniform load.
// Non-uniform load support is a future extension that changes only
// hierarchy.LoadComputer; this method never needs to.
func (b Box) NumCells() int64 {
	n := int64(1)
	for i := 0; i < b.Dim(); i++ {
		n *= int64(b.Size(i))
	}
	return n
}

// Empty reports whether b has zero cells on some axis. NewBox never
// constructs an empty box, but slicing code produces candidate boxes that
// must be checked before use.
func (b Box) Empty() bool {
	for i := 0; i < b.Dim(); i++ {
		if b.Hi[i] <= b.Lo[i] {
			return true
		}
	}
	return false
}

// SameFootprint reports whether b and o occupy the same integer-lattice
// extent, ignoring owner/id. Used by the tie-break rule in transit ordering.
func (b Box) SameFootprint(o Box) bool {
	return b.Lo.equal(o.Lo) && b.Hi.equal(o.Hi)
}

// Equal reports structural identity: same footprint and same id. Per
// spec.md §3 "Identity is structural: two BoxInTransits are equal only if
// their boxes match exactly" — this is that equality for the Box itself.
func (b Box) Equal(o Box) bool {
	return b.SameFootprint(o) && b.ID == o.ID
}

// Intersects reports whether b and o overlap on the integer lattice.
func (b Box) Intersects(o Box) bool {
	if b.Dim() != o.Dim() {
		return false
	}
	for i := 0; i < b.Dim(); i++ {
		if b.Hi[i] <= o.Lo[i] || o.Hi[i] <= b.Lo[i] {
			return false
		}
	}
	return true
}

// Contains reports whether point p lies within b.
func (b Box) Contains(p IntVector) bool {
	if len(p) != b.Dim() {
		return false
	}
	for i := 0; i < b.Dim(); i++ {
		if p[i] < b.Lo[i] || p[i] >= b.Hi[i] {
			return false
		}
	}
	return true
}

// Volume is an alias for NumCells kept for call sites that read more
// naturally in geometric terms (surface/penalty computation in breaker).
func (b Box) Volume() int64 { return b.NumCells() }

func (b Box) String() string {
	return fmt.Sprintf("Box{lo=%v hi=%v block=%d owner=%d id=%d}", []int32(b.Lo), []int32(b.Hi), b.BlockID, b.ID.Owner, b.ID.LocalID)
}
