// Package params bundles the immutable per-invocation parameters a balance
// call is constructed from: geometric constraints (min/max size, cut
// factor, bad intervals, domain boxes) and the box-breaker penalty weights.
// One Params value is built at the start of a balance call and never
// mutated for its duration (spec.md §3 "Lifecycle").
package params

import (
	"fmt"

	"github.com/notargets/amrbalance/box"
)

// Weights holds the box-breaker penalty coefficients (spec.md §4.1):
// combined = Balance*bal^2 + Surface*surf^2 + Slenderness*slender^2.
type Weights struct {
	Balance     float64
	Surface     float64
	Slenderness float64
}

// Params is the immutable bundle threaded through breaker, adjuster, subtree
// and cycle for one balance call.
type Params struct {
	Dim int

	MinSize IntVec
	MaxSize IntVec

	// CutFactor[axis] forbids cut planes whose index is not a multiple of
	// CutFactor[axis] on that axis.
	CutFactor IntVec

	// BadInterval[axis] is the cell distance from a domain/block boundary
	// within which cuts are forbidden on that axis.
	BadInterval IntVec

	// Domain lists the block domain boxes cuts are measured against for
	// BadInterval purposes.
	Domain []box.Box

	PenaltyWeights Weights

	// SlendernessThreshold is the longest/shortest edge ratio below which
	// the slenderness penalty term is zero.
	SlendernessThreshold float64

	// PreCutPenaltyMultiplier scales the no-cut candidate's penalty before
	// it is compared against the best planar/cubic candidates.
	PreCutPenaltyMultiplier float64

	// FlexTolerance is the fraction over ideal load a process/subtree may
	// keep without further rebalancing (spec.md's flexible_load_tolerance).
	FlexTolerance float64

	// MaxCycleSpreadRatio bounds the per-cycle rank-group fan-out.
	MaxCycleSpreadRatio int

	// WorkloadDataID is the reserved non-uniform-load data id; -1 means
	// "use the default uniform load" (hierarchy.LoadComputer).
	WorkloadDataID int
	WorkloadLevel  int
}

// IntVec is a per-axis integer parameter vector (distinct type from
// box.IntVector so a caller cannot accidentally pass a box coordinate where
// a per-axis parameter was meant, and vice versa).
type IntVec []int32

// Validate checks internal consistency of p. It is called once by the
// constructor and is otherwise exposed for tests.
func (p *Params) Validate() error {
	if p.Dim <= 0 {
		return fmt.Errorf("params: dimension must be positive, got %d", p.Dim)
	}
	if len(p.MinSize) != p.Dim || len(p.MaxSize) != p.Dim {
		return fmt.Errorf("params: min/max size must have length %d", p.Dim)
	}
	if len(p.CutFactor) != p.Dim || len(p.BadInterval) != p.Dim {
		return fmt.Errorf("params: cut factor/bad interval must have length %d", p.Dim)
	}
	for i := 0; i < p.Dim; i++ {
		if p.MinSize[i] <= 0 {
			return fmt.Errorf("params: min size on axis %d must be positive", i)
		}
		if p.MaxSize[i] < p.MinSize[i] {
			return fmt.Errorf("params: max size %d on axis %d is below min size %d", p.MaxSize[i], i, p.MinSize[i])
		}
		if p.CutFactor[i] <= 0 {
			return fmt.Errorf("params: cut factor on axis %d must be positive", i)
		}
		if p.BadInterval[i] < 0 {
			return fmt.Errorf("params: bad interval on axis %d must be non-negative", i)
		}
	}
	if p.FlexTolerance < 0 || p.FlexTolerance > 1 {
		return fmt.Errorf("params: flex tolerance must be in [0,1], got %f", p.FlexTolerance)
	}
	if p.MaxCycleSpreadRatio <= 1 {
		return fmt.Errorf("params: max cycle spread ratio must be > 1, got %d", p.MaxCycleSpreadRatio)
	}
	return nil
}

// New constructs and validates a Params bundle.
func New(p Params) (*Params, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := p
	return &out, nil
}

// CutAllowed reports whether a cut plane at index along axis is admissible:
// divisible by the cut factor and not within BadInterval cells of any
// domain box boundary on that axis.
func (p *Params) CutAllowed(axis int, index int32) bool {
	if p.CutFactor[axis] > 1 && index%p.CutFactor[axis] != 0 {
		return false
	}
	bad := p.BadInterval[axis]
	if bad <= 0 {
		return true
	}
	for _, d := range p.Domain {
		if d.Dim() <= axis {
			continue
		}
		lo, hi := d.Lo[axis], d.Hi[axis]
		if index > lo-bad && index < lo+bad {
			return false
		}
		if index > hi-bad && index < hi+bad {
			return false
		}
	}
	return true
}
