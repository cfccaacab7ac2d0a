package box

import "testing"

func mustBox(t *testing.T, lo, hi IntVector, block int32, id BoxID) Box {
	t.Helper()
	b, err := NewBox(lo, hi, block, id)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return b
}

func TestNewBoxRejectsEmptyExtent(t *testing.T) {
	_, err := NewBox(IntVector{0, 0}, IntVector{4, 0}, 0, BoxID{})
	if err == nil {
		t.Fatal("expected error for empty extent on axis 1")
	}
}

func TestNewBoxRejectsDimensionMismatch(t *testing.T) {
	_, err := NewBox(IntVector{0, 0}, IntVector{4, 4, 4}, 0, BoxID{})
	if err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}

func TestNumCells(t *testing.T) {
	b := mustBox(t, IntVector{0, 0, 0}, IntVector{10, 5, 2}, 0, BoxID{})
	if got := b.NumCells(); got != 100 {
		t.Fatalf("NumCells = %d, want 100", got)
	}
}

func TestIntersects(t *testing.T) {
	a := mustBox(t, IntVector{0, 0}, IntVector{10, 10}, 0, BoxID{})
	b := mustBox(t, IntVector{5, 5}, IntVector{15, 15}, 0, BoxID{})
	c := mustBox(t, IntVector{10, 10}, IntVector{20, 20}, 0, BoxID{})
	if !a.Intersects(b) {
		t.Error("expected a and b to intersect")
	}
	if a.Intersects(c) {
		t.Error("half-open boxes sharing only a boundary must not intersect")
	}
}

func TestContains(t *testing.T) {
	b := mustBox(t, IntVector{0, 0}, IntVector{10, 10}, 0, BoxID{})
	if !b.Contains(IntVector{0, 0}) {
		t.Error("lo corner must be contained")
	}
	if b.Contains(IntVector{10, 10}) {
		t.Error("hi corner is exclusive and must not be contained")
	}
}

func TestEqualRequiresSameFootprintAndID(t *testing.T) {
	id := BoxID{Owner: 1, LocalID: 2}
	a := mustBox(t, IntVector{0, 0}, IntVector{4, 4}, 0, id)
	b := mustBox(t, IntVector{0, 0}, IntVector{4, 4}, 0, id)
	c := mustBox(t, IntVector{0, 0}, IntVector{4, 4}, 0, BoxID{Owner: 1, LocalID: 3})
	if !a.Equal(b) {
		t.Error("boxes with identical footprint and id must be equal")
	}
	if a.Equal(c) {
		t.Error("boxes with different ids must not be equal")
	}
}

func TestInTransitSlicePreservesOrigin(t *testing.T) {
	origin := mustBox(t, IntVector{0, 0}, IntVector{10, 10}, 0, BoxID{Owner: 0, LocalID: 0})
	tr := NewInTransit(origin, 100)

	left := mustBox(t, IntVector{0, 0}, IntVector{5, 10}, 0, BoxID{Owner: 0, LocalID: 0})
	right := mustBox(t, IntVector{5, 0}, IntVector{10, 10}, 0, BoxID{Owner: 0, LocalID: 1})

	pieces := tr.Slice([]Box{left, right}, []float64{50, 50})
	if len(pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pieces))
	}
	for _, p := range pieces {
		if !p.Origin.Equal(origin) {
			t.Errorf("slice lost origin: got %v want %v", p.Origin, origin)
		}
	}
	// Re-slice one of the pieces; origin must still trace back to the root.
	grandchild := tr.Slice([]Box{left}, []float64{50})[0].Slice(
		[]Box{mustBox(t, IntVector{0, 0}, IntVector{2, 10}, 0, BoxID{Owner: 0, LocalID: 2})},
		[]float64{20},
	)[0]
	if !grandchild.Origin.Equal(origin) {
		t.Error("origin must be preserved across repeated slicing")
	}
}

func TestInTransitLessOrdersByLoadDescending(t *testing.T) {
	a := NewInTransit(mustBox(t, IntVector{0, 0}, IntVector{1, 1}, 0, BoxID{Owner: 0, LocalID: 0}), 10)
	b := NewInTransit(mustBox(t, IntVector{0, 0}, IntVector{1, 1}, 0, BoxID{Owner: 0, LocalID: 1}), 5)
	if !a.Less(b) {
		t.Error("higher load must sort first")
	}
	if b.Less(a) {
		t.Error("lower load must not sort before higher load")
	}
}
