package box

// InTransit is a box in flight between processes. Current is the box as it
// exists right now (post any cuts already applied); Origin is the pre-
// balance ancestor box, preserved unchanged across every cut so the
// connector fixup (package connector) can later map origin -> final.
// Ownership — Current.ID.Owner — moves with the box as it migrates; Origin
// never changes owner once set.
type InTransit struct {
	Current Box
	Origin  Box
	Load    float64
}

// NewInTransit wraps box as a not-yet-cut transit record: its own origin.
func NewInTransit(b Box, load float64) InTransit {
	return InTransit{Current: b, Origin: b, Load: load}
}

// Slice produces n child InTransits sharing this record's Origin, one per
// piece, per spec.md §3: "When a BoxInTransit is sliced, each slice inherits
// the same origin." Loads must already be assigned by the caller (the box
// breaker computes them from geometry).
func (t InTransit) Slice(pieces []Box, loads []float64) []InTransit {
	out := make([]InTransit, len(pieces))
	for i, p := range pieces {
		out[i] = InTransit{Current: p, Origin: t.Origin, Load: loads[i]}
	}
	return out
}

// Equal implements the structural identity rule from spec.md §3: two
// InTransits are equal only if their current boxes match exactly.
func (t InTransit) Equal(o InTransit) bool {
	return t.Current.Equal(o.Current)
}

// Less implements the transit-set ordering key (spec.md §3): primary
// descending load, tiebreak ascending (owner, local-id). Since box ids
// are unique within a transit set (invariant I2), comparing by id after
// load always yields a strict total order regardless of whether the two
// records share a footprint.
func (t InTransit) Less(o InTransit) bool {
	if t.Load != o.Load {
		return t.Load > o.Load
	}
	return t.Current.ID.Less(o.Current.ID)
}
