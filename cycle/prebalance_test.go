package cycle

import (
	"sync"
	"testing"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/comm"
	"github.com/notargets/amrbalance/transit"
)

func mustSetWithBoxes(t *testing.T, owner int32, loads ...float64) *transit.Set {
	t.Helper()
	s := transit.New()
	for i, l := range loads {
		b, err := box.NewBox(box.IntVector{0, 0}, box.IntVector{10, 10}, 0, box.BoxID{Owner: owner, LocalID: int64(i)})
		if err != nil {
			t.Fatalf("NewBox: %v", err)
		}
		if err := s.Insert(box.NewInTransit(b, l)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return s
}

func TestPrebalanceMigratesExcludedRanks(t *testing.T) {
	const worldSize = 4
	group := NewRankGroup([]int{0, 1})
	comms := comm.NewLocalCommunicators(worldSize)

	sets := []*transit.Set{
		mustSetWithBoxes(t, 0, 10),
		mustSetWithBoxes(t, 1, 20),
		mustSetWithBoxes(t, 2, 30),
		mustSetWithBoxes(t, 3, 40),
	}
	totalBefore := 0.0
	for _, s := range sets {
		totalBefore += s.SumLoad()
	}

	var wg sync.WaitGroup
	errs := make([]error, worldSize)
	for r := 0; r < worldSize; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = Prebalance(comms[r], worldSize, group, sets[r], 2)
		}(r)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", r, err)
		}
	}

	if !sets[2].Empty() || !sets[3].Empty() {
		t.Fatal("excluded ranks should be emptied by prebalance")
	}

	totalAfter := 0.0
	for _, s := range sets {
		totalAfter += s.SumLoad()
	}
	if totalBefore != totalAfter {
		t.Fatalf("load not conserved: before=%v after=%v", totalBefore, totalAfter)
	}
}

func TestPrebalanceNoOpWhenGroupIsFull(t *testing.T) {
	const worldSize = 3
	group := Full(worldSize)
	comms := comm.NewLocalCommunicators(worldSize)
	sets := []*transit.Set{
		mustSetWithBoxes(t, 0, 5),
		mustSetWithBoxes(t, 1, 6),
		mustSetWithBoxes(t, 2, 7),
	}

	var wg sync.WaitGroup
	for r := 0; r < worldSize; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			if err := Prebalance(comms[r], worldSize, group, sets[r], 2); err != nil {
				t.Errorf("rank %d: %v", r, err)
			}
		}(r)
	}
	wg.Wait()

	if sets[0].SumLoad() != 5 || sets[1].SumLoad() != 6 || sets[2].SumLoad() != 7 {
		t.Fatal("prebalance should not move anything when every rank is included")
	}
}
