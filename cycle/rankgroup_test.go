package cycle

import "testing"

func TestNewRankGroupDedupsAndSorts(t *testing.T) {
	g := NewRankGroup([]int{3, 1, 1, 2})
	if len(g.Ranks) != 3 {
		t.Fatalf("len(Ranks) = %d, want 3", len(g.Ranks))
	}
	want := []int{1, 2, 3}
	for i, r := range want {
		if g.Ranks[i] != r {
			t.Fatalf("Ranks[%d] = %d, want %d", i, g.Ranks[i], r)
		}
	}
}

func TestRankGroupContains(t *testing.T) {
	g := Full(8)
	for r := 0; r < 8; r++ {
		if !g.Contains(r) {
			t.Errorf("Full(8) should contain rank %d", r)
		}
	}
	if g.Contains(8) {
		t.Error("Full(8) should not contain rank 8")
	}
}

func TestRankGroupNearestPicksClosestMember(t *testing.T) {
	g := NewRankGroup([]int{0, 1, 2, 3})
	if got := g.Nearest(6); got != 3 {
		t.Fatalf("Nearest(6) = %d, want 3", got)
	}
	if got := g.Nearest(1); got != 1 {
		t.Fatalf("Nearest(1) = %d, want 1 (exact member)", got)
	}
}

func TestNumberOfCyclesBelowCollapseThreshold(t *testing.T) {
	if got := NumberOfCycles(8, 4); got != 1 {
		t.Fatalf("NumberOfCycles(8,4) = %d, want 1 (below MinCycleCollapseSize)", got)
	}
}

func TestNumberOfCyclesMatchesLogSpread(t *testing.T) {
	// 1024 processes, spread=4: ceil(log4(1024)) = 5.
	if got := NumberOfCycles(1024, 4); got != 5 {
		t.Fatalf("NumberOfCycles(1024,4) = %d, want 5", got)
	}
}

func TestCycleWidthsEndsAtFullGroup(t *testing.T) {
	n := NumberOfCycles(1024, 4)
	widths := CycleWidths(1024, 4, n)
	if widths[len(widths)-1] != 1024 {
		t.Fatalf("last width = %d, want 1024", widths[len(widths)-1])
	}
	for i := 1; i < len(widths); i++ {
		if widths[i] < widths[i-1] {
			t.Fatalf("widths must be non-decreasing: %v", widths)
		}
	}
}

func TestSubgroupBoundsPartitionWholeGroup(t *testing.T) {
	g := Full(10)
	seen := make(map[int]bool)
	for r := 0; r < 10; r++ {
		lo, hi := g.SubgroupBounds(r, 3)
		if lo < 0 || hi > 10 || lo >= hi {
			t.Fatalf("SubgroupBounds(%d,3) = [%d,%d) invalid", r, lo, hi)
		}
		for i := lo; i < hi; i++ {
			seen[i] = true
		}
	}
	if len(seen) != 10 {
		t.Fatalf("covered %d positions, want 10", len(seen))
	}
}

func TestSubgroupWidthCoversWholeGroupWhenWideEnough(t *testing.T) {
	g := Full(10)
	sub := g.Subgroup(4, 100)
	if sub.Len() != 10 {
		t.Fatalf("Subgroup width >= group size should return the whole group, got len %d", sub.Len())
	}
}
