package comm

import (
	"testing"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/subtree"
)

func mustBox(t *testing.T, lo, hi box.IntVector, owner int32, localID int64) box.Box {
	t.Helper()
	b, err := box.NewBox(lo, hi, 0, box.BoxID{Owner: owner, LocalID: localID})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return b
}

func TestPackUnpackRoundTrip(t *testing.T) {
	b1 := mustBox(t, box.IntVector{0, 0}, box.IntVector{10, 10}, 2, 5)
	b2 := mustBox(t, box.IntVector{10, 0}, box.IntVector{20, 10}, 2, 6)
	msg := Message{
		Phase:  PhaseUpwardLoad,
		Sender: 2,
		Items: []box.InTransit{
			box.NewInTransit(b1, 100),
			{Current: b2, Origin: b1, Load: 50},
		},
	}

	data := Pack(msg)
	got, err := Unpack(data, 2)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Phase != msg.Phase {
		t.Fatalf("Phase = %v, want %v", got.Phase, msg.Phase)
	}
	if got.Sender != msg.Sender {
		t.Fatalf("Sender = %v, want %v", got.Sender, msg.Sender)
	}
	if len(got.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(got.Items))
	}
	if !got.Items[0].Current.Equal(b1) {
		t.Fatalf("Items[0].Current = %v, want %v", got.Items[0].Current, b1)
	}
	if got.Items[1].Load != 50 {
		t.Fatalf("Items[1].Load = %v, want 50", got.Items[1].Load)
	}
	if !got.Items[1].Origin.Equal(b1) {
		t.Fatalf("Items[1].Origin = %v, want %v (origin preserved)", got.Items[1].Origin, b1)
	}
	if got.Summary != nil {
		t.Fatal("Summary should be nil when none was packed")
	}
}

func TestPackUnpackWithSummary(t *testing.T) {
	b1 := mustBox(t, box.IntVector{0}, box.IntVector{10}, 0, 1)
	summary := &subtree.Data{
		Root:                3,
		NumProcs:            4,
		Current:             120,
		Ideal:               100,
		UpperLimit:          105,
		EffectiveCurrent:    80,
		EffectiveNumProcs:   2,
		WantsWorkFromParent: true,
	}
	msg := Message{
		Phase:   PhaseUpwardEdge,
		Sender:  3,
		Items:   []box.InTransit{box.NewInTransit(b1, 1)},
		Summary: summary,
	}

	data := Pack(msg)
	got, err := Unpack(data, 1)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Summary == nil {
		t.Fatal("expected a non-nil summary")
	}
	if got.Summary.Root != 3 || got.Summary.NumProcs != 4 {
		t.Fatalf("Summary = %+v, want Root=3 NumProcs=4", got.Summary)
	}
	if !got.Summary.WantsWorkFromParent {
		t.Fatal("WantsWorkFromParent should round-trip true")
	}
}

func TestPackUnpackEmptyItems(t *testing.T) {
	msg := Message{Phase: PhasePrebalance, Sender: 0}
	data := Pack(msg)
	got, err := Unpack(data, 2)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("len(Items) = %d, want 0", len(got.Items))
	}
}

func TestSendFramedRecvFramedRoundTrip(t *testing.T) {
	comms := NewLocalCommunicators(2)
	sender, receiver := comms[0], comms[1]

	b1 := mustBox(t, box.IntVector{0, 0}, box.IntVector{5, 5}, 0, 1)
	msg := Message{Phase: PhaseDownwardLoad, Sender: 0, Items: []box.InTransit{box.NewInTransit(b1, 25)}}

	errCh := make(chan error, 1)
	go func() { errCh <- SendFramed(sender, 1, TagDownwardLoad, msg) }()

	got, err := RecvFramed(receiver, 0, TagDownwardLoad, 2)
	if err != nil {
		t.Fatalf("RecvFramed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendFramed: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Load != 25 {
		t.Fatalf("got = %+v, want one item with load 25", got)
	}
}

func TestSendFramedHandlesOversizedPayload(t *testing.T) {
	comms := NewLocalCommunicators(2)
	sender, receiver := comms[0], comms[1]

	items := make([]box.InTransit, 200)
	for i := range items {
		b := mustBox(t, box.IntVector{int32(i), 0}, box.IntVector{int32(i + 1), 1}, 0, int64(i))
		items[i] = box.NewInTransit(b, 1)
	}
	msg := Message{Phase: PhaseUpwardLoad, Sender: 0, Items: items}

	if len(Pack(msg)) <= DefaultDatumBytes {
		t.Fatal("test payload should exceed DefaultDatumBytes to exercise the overflow path")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- SendFramed(sender, 1, TagUpwardLoad, msg) }()

	got, err := RecvFramed(receiver, 0, TagUpwardLoad, 2)
	if err != nil {
		t.Fatalf("RecvFramed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendFramed: %v", err)
	}
	if len(got.Items) != len(items) {
		t.Fatalf("len(Items) = %d, want %d", len(got.Items), len(items))
	}
}
