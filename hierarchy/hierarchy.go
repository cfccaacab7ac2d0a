// Package hierarchy defines the minimal seams this module needs from the
// AMR patch hierarchy it balances — the out-of-scope collaborator named
// in spec.md §1. Only what LoadBalanceBoxLevel actually calls through is
// declared here: listing a level's local boxes, adding/removing a box,
// and computing a box's load. A full hierarchy library satisfies these
// interfaces directly; SimpleBoxLevel/SimplePatchHierarchy are the
// in-memory stand-ins used by tests and by callers without one.
package hierarchy

import (
	"fmt"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/comm"
)

// LoadComputer computes the load a box contributes. The shipped
// implementation assumes uniform per-cell cost; a non-uniform extension
// changes only this one method.
type LoadComputer interface {
	ComputeLoad(b box.Box) float64
}

// UniformLoadComputer is the default LoadComputer: every cell costs the
// same, so a box's load is simply its cell count.
type UniformLoadComputer struct{}

func (UniformLoadComputer) ComputeLoad(b box.Box) float64 { return float64(b.NumCells()) }

// BoxLevel is one level of an AMR patch hierarchy: the set of boxes
// currently held locally, plus the communicator the level is distributed
// across.
type BoxLevel interface {
	LocalBoxes() []box.Box
	AddBox(b box.Box) error
	RemoveBox(id box.BoxID) error
	Communicator() comm.Communicator
}

// PatchHierarchy is the ordered collection of levels a balance call
// operates on.
type PatchHierarchy interface {
	Level(lvlno int) BoxLevel
	NumberOfLevels() int
}

// SimpleBoxLevel is an in-memory BoxLevel: a map of locally-held boxes
// plus the communicator the level is distributed across.
type SimpleBoxLevel struct {
	c     comm.Communicator
	boxes map[box.BoxID]box.Box
}

// NewSimpleBoxLevel returns an empty level distributed over c.
func NewSimpleBoxLevel(c comm.Communicator) *SimpleBoxLevel {
	return &SimpleBoxLevel{c: c, boxes: make(map[box.BoxID]box.Box)}
}

func (l *SimpleBoxLevel) LocalBoxes() []box.Box {
	out := make([]box.Box, 0, len(l.boxes))
	for _, b := range l.boxes {
		out = append(out, b)
	}
	return out
}

func (l *SimpleBoxLevel) AddBox(b box.Box) error {
	if _, exists := l.boxes[b.ID]; exists {
		return fmt.Errorf("hierarchy: box %v already present on this level", b.ID)
	}
	l.boxes[b.ID] = b
	return nil
}

func (l *SimpleBoxLevel) RemoveBox(id box.BoxID) error {
	if _, exists := l.boxes[id]; !exists {
		return fmt.Errorf("hierarchy: no box %v on this level", id)
	}
	delete(l.boxes, id)
	return nil
}

func (l *SimpleBoxLevel) Communicator() comm.Communicator { return l.c }

// SimplePatchHierarchy is an in-memory PatchHierarchy: an ordered slice of
// levels, indexed from the coarsest (0) to the finest.
type SimplePatchHierarchy struct {
	levels []*SimpleBoxLevel
}

// NewSimplePatchHierarchy builds a hierarchy from already-constructed
// levels, coarsest first.
func NewSimplePatchHierarchy(levels ...*SimpleBoxLevel) *SimplePatchHierarchy {
	return &SimplePatchHierarchy{levels: levels}
}

func (h *SimplePatchHierarchy) Level(lvlno int) BoxLevel {
	if lvlno < 0 || lvlno >= len(h.levels) {
		return nil
	}
	return h.levels[lvlno]
}

func (h *SimplePatchHierarchy) NumberOfLevels() int { return len(h.levels) }
