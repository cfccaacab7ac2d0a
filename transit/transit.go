// Package transit implements the ordered multiset of boxes-in-transit
// (spec.md §4.2): a sorted container keyed by descending load with ties
// broken by ascending (owner, local-id), tracking a running sum so
// SumLoad is O(1) at every call. Grounded on
// Notargets-DGKernel/partitions/partition.go's "construct then validate
// invariant" idiom (ValidateLayout) — Set.CheckInvariant plays the same
// role in tests.
package transit

import (
	"fmt"
	"sort"

	"github.com/notargets/amrbalance/box"
)

// Set is a sorted multiset of box.InTransit records. The sizes this
// algorithm manipulates (hundreds of in-flight boxes per node per cycle)
// don't justify a balanced-tree or skip-list implementation (spec.md §9
// design note lists both as options); a slice kept sorted via insertion
// with sort.Search gives O(log n) lookups and O(n) inserts/deletes, which
// is the concrete choice this package makes.
type Set struct {
	items []box.InTransit
	sum   float64
}

// New returns an empty Set.
func New() *Set {
	return &Set{}
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Empty reports whether the set has no members.
func (s *Set) Empty() bool { return len(s.items) == 0 }

// SumLoad returns the cached running sum — invariant I1: this always
// equals the sum of member loads.
func (s *Set) SumLoad() float64 { return s.sum }

// Items returns the members in sorted order. The returned slice must not
// be mutated by the caller.
func (s *Set) Items() []box.InTransit { return s.items }

// search returns the smallest index i such that inserting t there keeps
// s.items sorted ascending by box.InTransit.Less. Since Less is a strict
// total order over unique box ids (invariant I2), this is equivalent to
// the first index whose element is not Less than t.
func (s *Set) search(t box.InTransit) int {
	return sort.Search(len(s.items), func(i int) bool {
		return !s.items[i].Less(t)
	})
}

// indexOf returns the index of a member structurally equal to t, or -1.
func (s *Set) indexOf(t box.InTransit) int {
	i := s.search(t)
	if i < len(s.items) && s.items[i].Equal(t) {
		return i
	}
	return -1
}

// Insert adds t, rejecting a structural duplicate (invariant I2: no two
// members share the same box-id). Returns an error instead of silently
// merging — the caller must pre-uniquify, per spec.md §4.2.
func (s *Set) Insert(t box.InTransit) error {
	if s.indexOf(t) >= 0 {
		return fmt.Errorf("transit: duplicate box id %v already present", t.Current.ID)
	}
	i := s.search(t)
	s.items = append(s.items, box.InTransit{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = t
	s.sum += t.Load
	return nil
}

// InsertRange inserts every element of ts, failing fast (and leaving the
// set with whatever prefix succeeded) on the first duplicate.
func (s *Set) InsertRange(ts []box.InTransit) error {
	for _, t := range ts {
		if err := s.Insert(t); err != nil {
			return err
		}
	}
	return nil
}

// EraseAt removes the member at index i.
func (s *Set) EraseAt(i int) (box.InTransit, error) {
	if i < 0 || i >= len(s.items) {
		return box.InTransit{}, fmt.Errorf("transit: index %d out of range [0,%d)", i, len(s.items))
	}
	t := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.sum -= t.Load
	return t, nil
}

// Erase removes the member structurally equal to t.
func (s *Set) Erase(t box.InTransit) error {
	i := s.indexOf(t)
	if i < 0 {
		return fmt.Errorf("transit: no member with box id %v", t.Current.ID)
	}
	_, err := s.EraseAt(i)
	return err
}

// Clear removes every member.
func (s *Set) Clear() {
	s.items = nil
	s.sum = 0
}

// Swap exchanges the full contents of s and o in O(1).
func (s *Set) Swap(o *Set) {
	s.items, o.items = o.items, s.items
	s.sum, o.sum = o.sum, s.sum
}

// LowerBound returns the index of the first member not ordered before t
// (i.e. the first member whose key is >= t's key under Less).
func (s *Set) LowerBound(t box.InTransit) int { return s.search(t) }

// UpperBound returns the index one past the matching member, if any —
// since Less is a strict total order over unique box ids, at most one
// member can compare equal to t.
func (s *Set) UpperBound(t box.InTransit) int {
	i := s.search(t)
	if i < len(s.items) && !t.Less(s.items[i]) {
		return i + 1
	}
	return i
}

// CheckInvariant recomputes the load sum and compares it against the
// cached value — used by tests to assert I1 holds after every mutator.
func (s *Set) CheckInvariant() error {
	var sum float64
	for _, t := range s.items {
		sum += t.Load
	}
	if sum != s.sum {
		return fmt.Errorf("transit: cached sum %.6f != recomputed sum %.6f", s.sum, sum)
	}
	seen := make(map[box.BoxID]bool, len(s.items))
	for _, t := range s.items {
		if seen[t.Current.ID] {
			return fmt.Errorf("transit: duplicate box id %v violates I2", t.Current.ID)
		}
		seen[t.Current.ID] = true
	}
	return nil
}
