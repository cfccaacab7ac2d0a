package transit

import (
	"testing"

	"github.com/notargets/amrbalance/box"
)

func mustTransit(t *testing.T, owner int32, id int64, load float64) box.InTransit {
	t.Helper()
	b, err := box.NewBox(box.IntVector{0, 0}, box.IntVector{10, 10}, 0, box.BoxID{Owner: owner, LocalID: id})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return box.NewInTransit(b, load)
}

func TestInsertMaintainsSortOrderAndSum(t *testing.T) {
	s := New()
	vals := []float64{30, 10, 50, 20, 40}
	for i, v := range vals {
		if err := s.Insert(mustTransit(t, 0, int64(i), v)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := s.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
	items := s.Items()
	for i := 1; i < len(items); i++ {
		if items[i].Load > items[i-1].Load {
			t.Fatalf("items not sorted descending by load: %v", items)
		}
	}
	if s.SumLoad() != 150 {
		t.Fatalf("SumLoad = %v, want 150", s.SumLoad())
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	s := New()
	tr := mustTransit(t, 0, 1, 10)
	if err := s.Insert(tr); err != nil {
		t.Fatal(err)
	}
	dup := mustTransit(t, 0, 1, 99)
	if err := s.Insert(dup); err == nil {
		t.Fatal("expected duplicate box id to be rejected")
	}
	if s.SumLoad() != 10 {
		t.Fatalf("sum must be unaffected by rejected insert, got %v", s.SumLoad())
	}
}

func TestEraseUpdatesSum(t *testing.T) {
	s := New()
	a := mustTransit(t, 0, 1, 10)
	b := mustTransit(t, 0, 2, 20)
	_ = s.Insert(a)
	_ = s.Insert(b)
	if err := s.Erase(a); err != nil {
		t.Fatal(err)
	}
	if s.SumLoad() != 20 {
		t.Fatalf("SumLoad = %v, want 20", s.SumLoad())
	}
	if err := s.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
}

func TestSwapIsConstantTimeAndExchangesContents(t *testing.T) {
	a := New()
	b := New()
	_ = a.Insert(mustTransit(t, 0, 1, 10))
	_ = b.Insert(mustTransit(t, 1, 1, 20))
	a.Swap(b)
	if a.SumLoad() != 20 || b.SumLoad() != 10 {
		t.Fatalf("swap did not exchange sums: a=%v b=%v", a.SumLoad(), b.SumLoad())
	}
}

func TestLowerUpperBound(t *testing.T) {
	s := New()
	for i, v := range []float64{50, 40, 30, 20, 10} {
		_ = s.Insert(mustTransit(t, 0, int64(i), v))
	}
	target := mustTransit(t, 0, 2, 30)
	lb := s.LowerBound(target)
	ub := s.UpperBound(target)
	if ub-lb != 1 {
		t.Fatalf("expected exactly one matching member, got range [%d,%d)", lb, ub)
	}
	if s.Items()[lb].Load != 30 {
		t.Fatalf("LowerBound landed on wrong element: %v", s.Items()[lb])
	}
}

func TestClear(t *testing.T) {
	s := New()
	_ = s.Insert(mustTransit(t, 0, 1, 10))
	s.Clear()
	if !s.Empty() || s.SumLoad() != 0 {
		t.Fatal("Clear must empty the set and zero the sum")
	}
}
