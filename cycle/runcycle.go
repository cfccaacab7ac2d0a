package cycle

import (
	"fmt"

	"github.com/notargets/amrbalance/adjuster"
	"github.com/notargets/amrbalance/breaker"
	"github.com/notargets/amrbalance/comm"
	"github.com/notargets/amrbalance/ranktree"
	"github.com/notargets/amrbalance/subtree"
	"github.com/notargets/amrbalance/transit"
)

// RunCycle executes one upward-aggregate / downward-distribute /
// local-adjust pass over group (spec.md §4.6 step 3), using strategy to
// determine this rank's tree parent/children within the group's local
// index space. globalAvg is the fixed per-rank target load for the whole
// balance call (unchanged across cycles — only the cooperating group
// widens); flexTolerance bounds the acceptable window around it.
//
// The upward message carries not just the numeric SubtreeData summary but
// the actual surplus boxes (spec.md §3/§4.4's Traded bin), so a surplus
// leaf's boxes can travel all the way to the root and back down into a
// deficit subtree elsewhere in the tree, not just to its own descendants.
func RunCycle(strategy ranktree.Strategy, group RankGroup, c comm.Communicator, br *breaker.Breaker, local *transit.Set, globalAvg, flexTolerance float64, nextID adjuster.NextID, dim int) error {
	localIdx := indexOf(group, c.Rank())
	if localIdx < 0 {
		return fmt.Errorf("cycle: rank %d is not a member of its own cycle group", c.Rank())
	}

	childIdx := strategy.Children(localIdx)
	parentIdx := strategy.Parent(localIdx)
	isRoot := parentIdx == localIdx

	childData, err := receiveChildSummaries(c, group, childIdx, dim)
	if err != nil {
		return err
	}

	localLoadBeforeCarve := local.SumLoad()
	selfSurplus := transit.New()
	if selfSurplusAmount := localLoadBeforeCarve - globalAvg; selfSurplusAmount > 0 {
		low, high := windowAround(selfSurplusAmount, flexTolerance)
		adjuster.AdjustLoad(br, selfSurplus, local, nextID, selfSurplusAmount, low, high)
	}

	combined := subtree.Combine(localIdx, globalAvg, flexTolerance, localLoadBeforeCarve, selfSurplus, childData)

	if !isRoot {
		parentRank := group.Ranks[parentIdx]
		msg := comm.Message{Phase: comm.PhaseUpwardLoad, Sender: int32(c.Rank()), Items: combined.Traded.Items(), Summary: combined}
		if err := comm.SendFramed(c, parentRank, comm.TagUpwardLoad, msg); err != nil {
			return fmt.Errorf("cycle: sending subtree summary to parent rank %d: %w", parentRank, err)
		}
	}

	// pool is what this node draws on to fill its own deficit and to fund
	// its children's allocations: at the root it is the whole subtree's
	// traded boxes; everywhere else it is what the parent hands down.
	var pool *transit.Set
	if isRoot {
		pool = combined.Traded
	} else {
		pool = transit.New()
		parentRank := group.Ranks[parentIdx]
		msg, err := comm.RecvFramed(c, parentRank, comm.TagDownwardLoad, dim)
		if err != nil {
			return fmt.Errorf("cycle: receiving allocation from parent rank %d: %w", parentRank, err)
		}
		for _, item := range msg.Items {
			if err := pool.Insert(item); err != nil {
				return fmt.Errorf("cycle: inserting box received from parent: %w", err)
			}
		}
	}

	// Self first, then children (spec.md §4.4): fill this node's own
	// deficit out of pool before handing any of it further down.
	low, high := windowAround(globalAvg, flexTolerance)
	adjuster.AdjustLoad(br, local, pool, nextID, globalAvg, low, high)

	// available is what pool actually holds after the self-fill above —
	// not combined.Current-combined.Ideal, which is ~0 at the root by
	// construction even though pool still holds real surplus boxes
	// gathered from the rest of the tree.
	_, perChild := subtree.Allocate(local.SumLoad(), globalAvg, pool.SumLoad(), childData)

	// Every child gets exactly one downward message, even an empty one:
	// receiveChildSummaries's counterpart on the child side issues an
	// unconditional RecvFramed per parent, so skipping a zero allocation
	// here would leave that child blocked forever.
	for i, alloc := range perChild {
		donation := transit.New()
		if alloc.Amount > 0 {
			low, high := windowAround(alloc.Amount, flexTolerance)
			adjuster.AdjustLoad(br, donation, pool, nextID, alloc.Amount, low, high)
		}

		childRank := group.Ranks[childIdx[i]]
		msg := comm.Message{Phase: comm.PhaseDownwardLoad, Sender: int32(c.Rank()), Items: donation.Items()}
		if err := comm.SendFramed(c, childRank, comm.TagDownwardLoad, msg); err != nil {
			return fmt.Errorf("cycle: sending allocation to child rank %d: %w", childRank, err)
		}
	}

	// Whatever pool still holds after the self-fill and every child's
	// donation stays on this rank, so no load is dropped.
	if err := local.InsertRange(pool.Items()); err != nil {
		return fmt.Errorf("cycle: keeping undistributed boxes: %w", err)
	}

	return nil
}

func receiveChildSummaries(c comm.Communicator, group RankGroup, childIdx []int, dim int) ([]*subtree.Data, error) {
	out := make([]*subtree.Data, len(childIdx))
	for i, ci := range childIdx {
		childRank := group.Ranks[ci]
		msg, err := comm.RecvFramed(c, childRank, comm.TagUpwardLoad, dim)
		if err != nil {
			return nil, fmt.Errorf("cycle: receiving subtree summary from child rank %d: %w", childRank, err)
		}
		data := msg.Summary
		data.Traded = transit.New()
		if err := data.Traded.InsertRange(msg.Items); err != nil {
			return nil, fmt.Errorf("cycle: reconstructing traded boxes from child rank %d: %w", childRank, err)
		}
		out[i] = data
	}
	return out, nil
}

func indexOf(group RankGroup, rank int) int {
	for i, r := range group.Ranks {
		if r == rank {
			return i
		}
	}
	return -1
}

func windowAround(target, flex float64) (low, high float64) {
	return target * (1 - flex), target * (1 + flex)
}
