package comm

import "testing"

func TestLocalCommunicatorSendRecv(t *testing.T) {
	comms := NewLocalCommunicators(2)
	sender, receiver := comms[0], comms[1]

	payload := []byte("hello")
	sendReq := sender.ISend(1, TagUpwardLoad, payload)
	recvReq := receiver.IRecv(0, TagUpwardLoad, 64)

	if err := WaitAll(sendReq, recvReq); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
	if string(recvReq.Bytes()) != "hello" {
		t.Fatalf("received %q, want %q", recvReq.Bytes(), "hello")
	}
}

func TestLocalCommunicatorTagsDoNotCrossTalk(t *testing.T) {
	comms := NewLocalCommunicators(2)
	sender, receiver := comms[0], comms[1]

	upReq := sender.ISend(1, TagUpwardLoad, []byte("up"))
	downReq := sender.ISend(1, TagDownwardLoad, []byte("down"))

	downRecv := receiver.IRecv(0, TagDownwardLoad, 64)
	upRecv := receiver.IRecv(0, TagUpwardLoad, 64)

	if err := WaitAll(upReq, downReq, downRecv, upRecv); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
	if string(upRecv.Bytes()) != "up" {
		t.Fatalf("TagUpwardLoad recv = %q, want %q", upRecv.Bytes(), "up")
	}
	if string(downRecv.Bytes()) != "down" {
		t.Fatalf("TagDownwardLoad recv = %q, want %q", downRecv.Bytes(), "down")
	}
}

func TestLocalCommunicatorOversizeMessageErrors(t *testing.T) {
	comms := NewLocalCommunicators(2)
	sender, receiver := comms[0], comms[1]

	sendReq := sender.ISend(1, TagPrebalance, make([]byte, 16))
	recvReq := receiver.IRecv(0, TagPrebalance, 4)

	if err := WaitAll(sendReq, recvReq); err == nil {
		t.Fatal("expected an error for a payload exceeding maxSize")
	}
}

func TestNullCommunicatorHasNoPeers(t *testing.T) {
	var nc NullCommunicator
	if nc.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", nc.Size())
	}
	req := nc.ISend(0, TagUpwardLoad, []byte("x"))
	if err := req.Wait(); err == nil {
		t.Fatal("expected NullCommunicator.ISend to error: there is no peer")
	}
}
