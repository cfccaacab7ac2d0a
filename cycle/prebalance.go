package cycle

import (
	"fmt"

	"github.com/notargets/amrbalance/comm"
	"github.com/notargets/amrbalance/transit"
)

// Prebalance implements spec.md §4.6 step 1: every rank outside group
// migrates its entire local holding to its nearest included rank, in a
// single round of small messages, so every subsequent cycle starts from a
// clean group membership. worldSize is the full communicator size; dim is
// the box dimensionality carried by the wire codec.
func Prebalance(c comm.Communicator, worldSize int, group RankGroup, local *transit.Set, dim int) error {
	rank := c.Rank()
	if !group.Contains(rank) {
		return prebalanceSend(c, group, local, dim)
	}
	return prebalanceReceive(c, worldSize, rank, group, local, dim)
}

func prebalanceSend(c comm.Communicator, group RankGroup, local *transit.Set, dim int) error {
	target := group.Nearest(c.Rank())
	msg := comm.Message{Phase: comm.PhasePrebalance, Sender: int32(c.Rank()), Items: local.Items()}
	if err := comm.SendFramed(c, target, comm.TagPrebalance, msg); err != nil {
		return fmt.Errorf("cycle: prebalance send from rank %d to %d: %w", c.Rank(), target, err)
	}
	local.Clear()
	return nil
}

func prebalanceReceive(c comm.Communicator, worldSize, rank int, group RankGroup, local *transit.Set, dim int) error {
	var senders []int
	for r := 0; r < worldSize; r++ {
		if group.Contains(r) {
			continue
		}
		if group.Nearest(r) == rank {
			senders = append(senders, r)
		}
	}
	for _, s := range senders {
		msg, err := comm.RecvFramed(c, s, comm.TagPrebalance, dim)
		if err != nil {
			return fmt.Errorf("cycle: prebalance receive at rank %d from %d: %w", rank, s, err)
		}
		for _, item := range msg.Items {
			if err := local.Insert(item); err != nil {
				return fmt.Errorf("cycle: prebalance inserting box from rank %d: %w", s, err)
			}
		}
	}
	return nil
}
