package cycle

import (
	"fmt"

	"github.com/notargets/amrbalance/adjuster"
	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/breaker"
	"github.com/notargets/amrbalance/comm"
	"github.com/notargets/amrbalance/ranktree"
	"github.com/notargets/amrbalance/transit"
)

// ConstrainMaxSizes applies breaker.ConstrainMaxSize to every box held in
// local, replacing any piece that exceeds maxSize on some axis with its
// shape-bounded sub-pieces (spec.md §4.6 step 2, run before any load-based
// cutting). Fresh pieces get new local ids via nextID; load is split
// proportionally by cell-count fraction.
func ConstrainMaxSizes(local *transit.Set, maxSize box.IntVector, nextID adjuster.NextID) error {
	var oversized []box.InTransit
	for _, item := range local.Items() {
		for axis := 0; axis < item.Current.Dim(); axis++ {
			if item.Current.Size(axis) > maxSize[axis] {
				oversized = append(oversized, item)
				break
			}
		}
	}

	for _, item := range oversized {
		if err := local.Erase(item); err != nil {
			return fmt.Errorf("cycle: constraining max size: %w", err)
		}
		pieces := breaker.ConstrainMaxSize(item.Current, maxSize)
		totalCells := float64(item.Current.NumCells())
		for _, p := range pieces {
			p.ID = box.BoxID{Owner: item.Current.ID.Owner, LocalID: nextID()}
			load := item.Load
			if totalCells > 0 {
				load = item.Load * float64(p.NumCells()) / totalCells
			}
			if err := local.Insert(box.InTransit{Current: p, Origin: item.Origin, Load: load}); err != nil {
				return fmt.Errorf("cycle: constraining max size: inserting piece: %w", err)
			}
		}
	}
	return nil
}

// Run executes a full balance call for this rank: prebalance (if rank is
// outside group), the max-size constraint, then the widening-group cycle
// schedule (spec.md §4.6 steps 1-3). It does not perform the connector
// fixup (package connector) — that is run once, after every rank's cycles
// have completed, by the caller.
func Run(c comm.Communicator, worldSize int, group RankGroup, local *transit.Set, br *breaker.Breaker, maxSize box.IntVector, globalAvg, flexTolerance float64, spreadRatio int, nextID adjuster.NextID, dim int) error {
	if err := Prebalance(c, worldSize, group, local, dim); err != nil {
		return fmt.Errorf("cycle: prebalance: %w", err)
	}
	if !group.Contains(c.Rank()) {
		return nil
	}
	if err := ConstrainMaxSizes(local, maxSize, nextID); err != nil {
		return fmt.Errorf("cycle: max-size constraint: %w", err)
	}

	numCycles := NumberOfCycles(group.Len(), spreadRatio)
	widths := CycleWidths(group.Len(), spreadRatio, numCycles)

	for _, width := range widths {
		subgroup := group.Subgroup(c.Rank(), width)
		strategy := ranktree.NewCentered(0, subgroup.Len())
		if err := RunCycle(strategy, subgroup, c, br, local, globalAvg, flexTolerance, nextID, dim); err != nil {
			return fmt.Errorf("cycle: running cycle of width %d: %w", width, err)
		}
	}
	return nil
}
