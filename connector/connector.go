// Package connector implements the connector fixup (spec.md §4.7): once
// every rank's balance cycles have settled, each process tells every
// originally-owning rank where its boxes ended up, so the pre-balance
// owner can build the unbalanced->balanced map (and its transpose) it
// needs to route subsequent data.
package connector

import (
	"fmt"
	"sync"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/comm"
)

// Connector holds the origin->final and final->origin edge sets for one
// balance call.
type Connector struct {
	byOrigin map[box.BoxID][]box.Box
	byFinal  map[box.BoxID]box.BoxID
}

// New returns an empty Connector.
func New() *Connector {
	return &Connector{
		byOrigin: make(map[box.BoxID][]box.Box),
		byFinal:  make(map[box.BoxID]box.BoxID),
	}
}

// AddEdge records that origin ultimately produced the piece final.
func (c *Connector) AddEdge(origin box.BoxID, final box.Box) {
	c.byOrigin[origin] = append(c.byOrigin[origin], final)
	c.byFinal[final.ID] = origin
}

// Finals returns the final pieces recorded for origin.
func (c *Connector) Finals(origin box.BoxID) []box.Box {
	return c.byOrigin[origin]
}

// Origin returns the origin id recorded for final, if any.
func (c *Connector) Origin(final box.BoxID) (box.BoxID, bool) {
	id, ok := c.byFinal[final]
	return id, ok
}

// Exchange performs the fixup round: every process sends each kept,
// imported box to its pre-balance owner (one message per peer, matching
// spec.md §4.7's "send a small record to origin.owner") and receives the
// same from every other rank in one matched round, so every participant
// ends the call with a Connector covering exactly what it originated.
// Boxes this rank both originated and still holds need no message at all.
func Exchange(c comm.Communicator, worldSize int, kept []box.InTransit, dim int) (*Connector, error) {
	rank := c.Rank()
	outgoing := make(map[int][]box.InTransit)
	for _, item := range kept {
		owner := int(item.Origin.ID.Owner)
		if owner == rank {
			continue
		}
		outgoing[owner] = append(outgoing[owner], item)
	}

	var wg sync.WaitGroup
	sendErrs := make([]error, worldSize)
	for r := 0; r < worldSize; r++ {
		if r == rank {
			continue
		}
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			msg := comm.Message{Phase: comm.PhaseUpwardEdge, Sender: int32(rank), Items: outgoing[r]}
			if err := comm.SendFramed(c, r, comm.TagUpwardEdge, msg); err != nil {
				sendErrs[r] = fmt.Errorf("connector: sending edges to rank %d: %w", r, err)
			}
		}(r)
	}

	conn := New()
	for _, item := range kept {
		if int(item.Origin.ID.Owner) == rank {
			conn.AddEdge(item.Origin.ID, item.Current)
		}
	}

	var recvErr error
	for r := 0; r < worldSize; r++ {
		if r == rank {
			continue
		}
		msg, err := comm.RecvFramed(c, r, comm.TagUpwardEdge, dim)
		if err != nil {
			recvErr = fmt.Errorf("connector: receiving edges from rank %d: %w", r, err)
			continue
		}
		for _, item := range msg.Items {
			conn.AddEdge(item.Origin.ID, item.Current)
		}
	}

	wg.Wait()
	for _, err := range sendErrs {
		if err != nil {
			return conn, err
		}
	}
	if recvErr != nil {
		return conn, recvErr
	}
	return conn, nil
}

// Verify asserts completeness, mirroring the three-part check the teacher
// module's face-connector pattern uses over a different domain (pick/place
// buffer indices rather than origin/final box accounting): a bounds check,
// a cross-structure correspondence check, and a conservation count.
// origins is the map of boxes this rank held before balancing began.
func (c *Connector) Verify(origins map[box.BoxID]box.Box) error {
	for id := range c.byOrigin {
		if _, ok := origins[id]; !ok {
			return fmt.Errorf("connector: edge recorded for origin %v, which this rank never originated", id)
		}
	}

	for id, finals := range c.byOrigin {
		for _, f := range finals {
			got, ok := c.byFinal[f.ID]
			if !ok || got != id {
				return fmt.Errorf("connector: final box %v does not map back to origin %v", f.ID, id)
			}
		}
	}

	for id, orig := range origins {
		var total int64
		for _, f := range c.byOrigin[id] {
			total += f.NumCells()
		}
		if total != orig.NumCells() {
			return fmt.Errorf("connector: origin %v accounts for %d cells, want %d (incomplete fixup)", id, total, orig.NumCells())
		}
	}
	return nil
}
