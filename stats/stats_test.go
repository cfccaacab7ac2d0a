package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewReportComputesMoments(t *testing.T) {
	r := NewReport([]float64{10, 20, 30, 40})
	if r.Min != 10 {
		t.Fatalf("Min = %v, want 10", r.Min)
	}
	if r.Max != 40 {
		t.Fatalf("Max = %v, want 40", r.Max)
	}
	if r.Mean != 25 {
		t.Fatalf("Mean = %v, want 25", r.Mean)
	}
	if r.StdDev <= 0 {
		t.Fatalf("StdDev = %v, want > 0", r.StdDev)
	}
}

func TestNewReportHandlesEmpty(t *testing.T) {
	r := NewReport(nil)
	if r.Min != 0 || r.Max != 0 || r.Mean != 0 {
		t.Fatalf("empty report should be zero-valued, got %+v", r)
	}
}

func TestPrintStatisticsFormatsTable(t *testing.T) {
	r := NewReport([]float64{5, 15})
	var buf bytes.Buffer
	PrintStatistics(&buf, r)
	out := buf.String()
	if !strings.Contains(out, "rank") {
		t.Fatalf("expected header row, got %q", out)
	}
	if !strings.Contains(out, "mean=10.00") {
		t.Fatalf("expected mean=10.00 in output, got %q", out)
	}
}

func TestNullCommGraphWriterDiscardsEdges(t *testing.T) {
	var w NullCommGraphWriter
	w.RecordEdge(EdgeVolume{From: 0, To: 1, Bytes: 100})
}

func TestInMemoryCommGraphWriterAccumulates(t *testing.T) {
	w := &InMemoryCommGraphWriter{}
	w.RecordEdge(EdgeVolume{From: 0, To: 1, Bytes: 100})
	w.RecordEdge(EdgeVolume{From: 1, To: 2, Bytes: 200})
	if len(w.Edges) != 2 {
		t.Fatalf("len(Edges) = %d, want 2", len(w.Edges))
	}
	if w.Edges[1].Bytes != 200 {
		t.Fatalf("Edges[1].Bytes = %d, want 200", w.Edges[1].Bytes)
	}
}

func TestCommGraphWriterInterfaceSatisfiedByBoth(t *testing.T) {
	var _ CommGraphWriter = NullCommGraphWriter{}
	var _ CommGraphWriter = &InMemoryCommGraphWriter{}
}
