// Package subtree implements the subtree aggregator (spec.md §4.4):
// per-subtree surplus/deficit bookkeeping, upward additive combination, and
// downward proportional allocation of a parent's surplus among its
// deficit children. Grounded on
// other_examples/Notargets-gocfd__parallel_utils.go's PartitionMap bucket
// accounting (per-bucket running totals with remainder-aware splitting),
// adapted from splitting a 1-D index range to splitting a load deficit.
package subtree

import (
	"github.com/notargets/amrbalance/transit"
)

// Data is the per-subtree aggregate described in spec.md §3.
type Data struct {
	Root      int
	NumProcs  int
	Current   float64
	Ideal     float64
	UpperLimit float64

	// Effective* excludes descendants that have already reached their
	// target (invariant I3: effective counts <= total counts).
	EffectiveCurrent  float64
	EffectiveNumProcs int

	WantsWorkFromParent bool

	// Traded is what this subtree exchanges with its parent.
	Traded *transit.Set
}

// NewData constructs a leaf Data for a single process holding localLoad,
// with ideal/upperLimit computed from the group average and flex
// tolerance.
func NewData(rank int, localLoad, groupAvg, flexTolerance float64) *Data {
	ideal := groupAvg
	d := &Data{
		Root:              rank,
		NumProcs:          1,
		Current:           localLoad,
		Ideal:             ideal,
		UpperLimit:        ideal * (1 + flexTolerance),
		EffectiveCurrent:  localLoad,
		EffectiveNumProcs: 1,
		Traded:            transit.New(),
	}
	d.WantsWorkFromParent = d.Current < d.Ideal
	return d
}

// RetainedCurrent is what this subtree will actually hold once its Traded
// boxes have departed, as opposed to Current, which still counts load
// earmarked for shipment until the handoff actually happens. A subtree
// that ships its whole surplus upward has Current far above its ideal but
// RetainedCurrent at or below it — the wants-work and headroom checks
// below must use RetainedCurrent, or a subtree that gave everything away
// looks permanently full and gets pruned from further distribution.
func (d *Data) RetainedCurrent() float64 {
	if d.Traded == nil {
		return d.Current
	}
	return d.Current - d.Traded.SumLoad()
}

// Combine merges this subtree's own local contribution with its children's
// Data on the upward pass: sums are additive, and wants-work is true iff at
// least one descendant (including self) still has deficit after whatever
// internal redistribution has already happened.
//
// localSurplus is the set of boxes this node has already carved out of its
// own local holding as its contribution to the subtree's traded pool (may
// be empty, never nil). Combine merges it with every child's already-
// populated Traded set into the returned Data's Traded — the actual boxes
// shipped upward, alongside the numeric aggregate (spec.md §3/§4.4: the
// upward pass carries both the SubtreeData summary and the traded boxes).
func Combine(root int, groupAvg, flexTolerance float64, localLoad float64, localSurplus *transit.Set, children []*Data) *Data {
	d := &Data{
		Root:     root,
		NumProcs: 1,
		Current:  localLoad,
		Traded:   transit.New(),
	}
	// Box ids are unique for the lifetime of a balance call (assigned via a
	// rank-namespaced counter), so merging disjoint traded sets can never
	// collide; the error is structurally unreachable.
	_ = d.Traded.InsertRange(localSurplus.Items())
	for _, c := range children {
		d.NumProcs += c.NumProcs
		d.Current += c.Current
		_ = d.Traded.InsertRange(c.Traded.Items())
	}
	d.Ideal = groupAvg * float64(d.NumProcs)
	d.UpperLimit = d.Ideal * (1 + flexTolerance)

	selfWants := localLoad < groupAvg
	wants := selfWants
	effCurrent := localLoad
	effProcs := 1
	for _, c := range children {
		independent := c.RetainedCurrent() <= c.UpperLimit && !c.WantsWorkFromParent
		if independent {
			continue
		}
		wants = wants || c.WantsWorkFromParent
		effCurrent += c.EffectiveCurrent
		effProcs += c.EffectiveNumProcs
	}
	d.EffectiveCurrent = effCurrent
	d.EffectiveNumProcs = effProcs
	d.WantsWorkFromParent = wants
	return d
}

// ChildAllocation is the result of Allocate for one child: how much
// surplus load this node hands it, bounded by the child's remaining
// headroom (UpperLimit minus its retained current).
type ChildAllocation struct {
	Child  *Data
	Amount float64
}

// Allocate distributes available — the load this node actually has in
// hand to give out (the pooled Traded boxes at the root, or whatever a
// parent handed down elsewhere in the tree) — first to satisfy this
// node's own local deficit, then to deficit children in proportion to
// their effective process counts (ComputeSurplusPerEffectiveDescendant's
// share per effective process), each bounded by its UpperLimit minus its
// retained current (spec.md §4.4). available is NOT node.Current - node.Ideal: at the root in
// particular that aggregate difference is ~0 by construction (the whole
// group's Current sums to its Ideal), while available — the pooled
// surplus boxes actually gathered from the tree — is exactly what must
// be handed back out.
func Allocate(localLoad, groupAvg, available float64, children []*Data) (selfAllocation float64, perChild []ChildAllocation) {
	if available < 0 {
		available = 0
	}

	localDeficit := groupAvg - localLoad
	if localDeficit < 0 {
		localDeficit = 0
	}
	selfAllocation = min(localDeficit, available)
	remaining := available - selfAllocation

	perEffective := ComputeSurplusPerEffectiveDescendant(available, selfAllocation, children)
	perChild = make([]ChildAllocation, 0, len(children))
	for _, c := range children {
		if !wantsWork(c) {
			perChild = append(perChild, ChildAllocation{Child: c, Amount: 0})
			continue
		}
		headroom := c.UpperLimit - c.RetainedCurrent()
		if headroom < 0 {
			headroom = 0
		}
		amount := perEffective * float64(c.EffectiveNumProcs)
		if amount > headroom {
			amount = headroom
		}
		if amount > remaining {
			amount = remaining
		}
		if amount < 0 {
			amount = 0
		}
		remaining -= amount
		perChild = append(perChild, ChildAllocation{Child: c, Amount: amount})
	}
	return selfAllocation, perChild
}

func wantsWork(c *Data) bool {
	retained := c.RetainedCurrent()
	return retained <= c.UpperLimit && c.WantsWorkFromParent || retained < c.Ideal
}

// ComputeSurplusPerEffectiveDescendant returns
// (available - consumedLocally) / sum(effective child procs still wanting
// work), per spec.md §4.4. Returns 0 if no descendant wants work (avoids
// division by zero).
func ComputeSurplusPerEffectiveDescendant(available, consumedLocally float64, children []*Data) float64 {
	if available < 0 {
		available = 0
	}
	remaining := available - consumedLocally
	if remaining < 0 {
		remaining = 0
	}
	var effectiveProcs int
	for _, c := range children {
		if wantsWork(c) {
			effectiveProcs += c.EffectiveNumProcs
		}
	}
	if effectiveProcs == 0 {
		return 0
	}
	return remaining / float64(effectiveProcs)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
