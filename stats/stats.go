// Package stats implements the reporting and diagnostic sinks spec.md §6
// names (printStatistics, setCommGraphWriter): a per-process load
// distribution summary and an optional per-edge communication volume
// recorder.
package stats

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Report summarizes the per-process load distribution after a balance
// call.
type Report struct {
	Loads  []float64
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// NewReport computes a Report over loads, one entry per process, using
// gonum/stat for the moments — the same numerics library the rest of
// this module's pack already depends on for linear algebra.
func NewReport(loads []float64) Report {
	r := Report{Loads: append([]float64(nil), loads...)}
	if len(loads) == 0 {
		return r
	}
	sorted := append([]float64(nil), loads...)
	sort.Float64s(sorted)
	r.Min = sorted[0]
	r.Max = sorted[len(sorted)-1]
	r.Mean = stat.Mean(loads, nil)
	r.StdDev = stat.StdDev(loads, nil)
	return r
}

// PrintStatistics writes the per-process table spec.md §6's
// printStatistics produces: one line per rank plus a min/max/mean/stddev
// summary.
func PrintStatistics(w io.Writer, r Report) {
	fmt.Fprintf(w, "rank       load\n")
	for i, l := range r.Loads {
		fmt.Fprintf(w, "%4d  %10.2f\n", i, l)
	}
	fmt.Fprintf(w, "---\nmin=%.2f max=%.2f mean=%.2f stddev=%.2f\n", r.Min, r.Max, r.Mean, r.StdDev)
}

// EdgeVolume is the recorded unit for a CommGraphWriter: the byte volume
// exchanged between two ranks over one balance call.
type EdgeVolume struct {
	From, To int
	Bytes    int64
}

// CommGraphWriter is the optional diagnostic sink spec.md §6's
// setCommGraphWriter installs; a caller wires it to whatever recording
// mechanism it wants (a file, a counter map, a tracing system).
type CommGraphWriter interface {
	RecordEdge(e EdgeVolume)
}

// NullCommGraphWriter discards every edge — the default when no writer
// has been installed.
type NullCommGraphWriter struct{}

func (NullCommGraphWriter) RecordEdge(EdgeVolume) {}

// InMemoryCommGraphWriter accumulates edges for later inspection — used
// by tests and by callers that just want the raw edge list.
type InMemoryCommGraphWriter struct {
	Edges []EdgeVolume
}

func (w *InMemoryCommGraphWriter) RecordEdge(e EdgeVolume) {
	w.Edges = append(w.Edges, e)
}
