package comm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/notargets/amrbalance/box"
	"github.com/notargets/amrbalance/subtree"
)

// PhaseTag identifies the message's logical phase in the byte stream
// itself, independent of which comm.Tag it travelled on — spec.md §6's
// header carries both so a recorded trace can be replayed without the
// channel metadata.
type PhaseTag uint8

const (
	PhaseUpwardLoad PhaseTag = iota
	PhaseDownwardLoad
	PhaseUpwardEdge
	PhaseDownwardEdge
	PhasePrebalance
)

// Message is a decoded wire message: a header plus n BoxInTransit records
// plus an optional trailing SubtreeData summary.
type Message struct {
	Phase   PhaseTag
	Sender  int32
	Items   []box.InTransit
	Summary *subtree.Data // nil if ExtraSize was 0
}

// Pack serializes msg per spec.md §6: header
// [phase-tag u8][sender-rank i32][n-items i32][extra-size i32], then each
// item, then the summary if present.
func Pack(msg Message) []byte {
	var buf bytes.Buffer
	var extra bytes.Buffer
	if msg.Summary != nil {
		writeSubtreeData(&extra, msg.Summary)
	}

	buf.WriteByte(byte(msg.Phase))
	writeI32(&buf, msg.Sender)
	writeI32(&buf, int32(len(msg.Items)))
	writeI32(&buf, int32(extra.Len()))

	for _, item := range msg.Items {
		writeInTransit(&buf, item)
	}
	buf.Write(extra.Bytes())
	return buf.Bytes()
}

// Unpack decodes a buffer produced by Pack. dim is the dimensionality of
// every IntVector in the message, required because the wire format does
// not repeat it per-vector (every box exchanged within one balance call
// shares one dimensionality).
func Unpack(data []byte, dim int) (Message, error) {
	r := bytes.NewReader(data)
	var msg Message

	phaseByte, err := r.ReadByte()
	if err != nil {
		return msg, fmt.Errorf("comm: reading phase tag: %w", err)
	}
	msg.Phase = PhaseTag(phaseByte)

	sender, err := readI32(r)
	if err != nil {
		return msg, fmt.Errorf("comm: reading sender rank: %w", err)
	}
	msg.Sender = sender

	nItems, err := readI32(r)
	if err != nil {
		return msg, fmt.Errorf("comm: reading item count: %w", err)
	}

	extraSize, err := readI32(r)
	if err != nil {
		return msg, fmt.Errorf("comm: reading extra size: %w", err)
	}

	msg.Items = make([]box.InTransit, nItems)
	for i := range msg.Items {
		item, err := readInTransit(r, dim)
		if err != nil {
			return msg, fmt.Errorf("comm: reading item %d: %w", i, err)
		}
		msg.Items[i] = item
	}

	if extraSize > 0 {
		summary, err := readSubtreeData(r)
		if err != nil {
			return msg, fmt.Errorf("comm: reading subtree summary: %w", err)
		}
		msg.Summary = summary
	}
	return msg, nil
}

// SendFramed sends msg in two exchanges: a 4-byte big-endian length
// header, then the packed payload. Every message takes both exchanges,
// however small; a payload of DefaultDatumBytes or less is not sent in a
// single exchange.
func SendFramed(c Communicator, to int, tag Tag, msg Message) error {
	payload := Pack(msg)
	sizeBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(sizeBuf, uint32(len(payload)))
	sizeReq := c.ISend(to, tag, sizeBuf)
	if err := sizeReq.Wait(); err != nil {
		return fmt.Errorf("comm: sending size header: %w", err)
	}

	dataReq := c.ISend(to, tag, payload)
	if err := dataReq.Wait(); err != nil {
		return fmt.Errorf("comm: sending payload: %w", err)
	}
	return nil
}

// RecvFramed receives a message sent by SendFramed: a 4-byte size header,
// then the payload itself, decoded with Unpack.
func RecvFramed(c Communicator, from int, tag Tag, dim int) (Message, error) {
	sizeReq := c.IRecv(from, tag, 4)
	if err := sizeReq.Wait(); err != nil {
		return Message{}, fmt.Errorf("comm: receiving size header: %w", err)
	}
	sizeBuf := sizeReq.Bytes()
	if len(sizeBuf) != 4 {
		return Message{}, fmt.Errorf("comm: size header has %d bytes, want 4", len(sizeBuf))
	}
	size := int(binary.BigEndian.Uint32(sizeBuf))

	bufSize := size
	if bufSize < DefaultDatumBytes {
		bufSize = DefaultDatumBytes
	}
	dataReq := c.IRecv(from, tag, bufSize)
	if err := dataReq.Wait(); err != nil {
		return Message{}, fmt.Errorf("comm: receiving payload: %w", err)
	}
	return Unpack(dataReq.Bytes(), dim)
}

func writeI32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func readI32(r *bytes.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func writeI64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readI64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func writeF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func readF64(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:])), nil
}

func writeBoxID(buf *bytes.Buffer, id box.BoxID) {
	writeI32(buf, id.Owner)
	writeI64(buf, id.LocalID)
}

func readBoxID(r *bytes.Reader) (box.BoxID, error) {
	owner, err := readI32(r)
	if err != nil {
		return box.BoxID{}, err
	}
	local, err := readI64(r)
	if err != nil {
		return box.BoxID{}, err
	}
	return box.BoxID{Owner: owner, LocalID: local}, nil
}

// writeBox encodes a box per spec.md §6's "D × (i32 lo, i32 hi)" layout:
// per-axis lo/hi pairs interleaved, with no length prefix — the wire
// format relies on every box exchanged within one balance call sharing
// the one dimensionality threaded through as dim, not on a self-describing
// vector length.
func writeBox(buf *bytes.Buffer, b box.Box) {
	for axis := 0; axis < len(b.Lo); axis++ {
		writeI32(buf, b.Lo[axis])
		writeI32(buf, b.Hi[axis])
	}
	writeI32(buf, b.BlockID)
	writeBoxID(buf, b.ID)
}

func readBox(r *bytes.Reader, dim int) (box.Box, error) {
	lo := make(box.IntVector, dim)
	hi := make(box.IntVector, dim)
	for axis := 0; axis < dim; axis++ {
		loVal, err := readI32(r)
		if err != nil {
			return box.Box{}, err
		}
		hiVal, err := readI32(r)
		if err != nil {
			return box.Box{}, err
		}
		lo[axis] = loVal
		hi[axis] = hiVal
	}
	blockID, err := readI32(r)
	if err != nil {
		return box.Box{}, err
	}
	id, err := readBoxID(r)
	if err != nil {
		return box.Box{}, err
	}
	return box.Box{Lo: lo, Hi: hi, BlockID: blockID, ID: id}, nil
}

func writeInTransit(buf *bytes.Buffer, t box.InTransit) {
	writeBox(buf, t.Current)
	writeBox(buf, t.Origin)
	writeF64(buf, t.Load)
}

func readInTransit(r *bytes.Reader, dim int) (box.InTransit, error) {
	cur, err := readBox(r, dim)
	if err != nil {
		return box.InTransit{}, err
	}
	origin, err := readBox(r, dim)
	if err != nil {
		return box.InTransit{}, err
	}
	load, err := readF64(r)
	if err != nil {
		return box.InTransit{}, err
	}
	return box.InTransit{Current: cur, Origin: origin, Load: load}, nil
}

func writeSubtreeData(buf *bytes.Buffer, d *subtree.Data) {
	writeI32(buf, int32(d.Root))
	writeI32(buf, int32(d.NumProcs))
	writeF64(buf, d.Current)
	writeF64(buf, d.Ideal)
	writeF64(buf, d.UpperLimit)
	writeF64(buf, d.EffectiveCurrent)
	writeI32(buf, int32(d.EffectiveNumProcs))
	if d.WantsWorkFromParent {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readSubtreeData(r *bytes.Reader) (*subtree.Data, error) {
	root, err := readI32(r)
	if err != nil {
		return nil, err
	}
	numProcs, err := readI32(r)
	if err != nil {
		return nil, err
	}
	current, err := readF64(r)
	if err != nil {
		return nil, err
	}
	ideal, err := readF64(r)
	if err != nil {
		return nil, err
	}
	upperLimit, err := readF64(r)
	if err != nil {
		return nil, err
	}
	effCurrent, err := readF64(r)
	if err != nil {
		return nil, err
	}
	effProcs, err := readI32(r)
	if err != nil {
		return nil, err
	}
	wantsByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	return &subtree.Data{
		Root:                int(root),
		NumProcs:            int(numProcs),
		Current:             current,
		Ideal:               ideal,
		UpperLimit:          upperLimit,
		EffectiveCurrent:    effCurrent,
		EffectiveNumProcs:   int(effProcs),
		WantsWorkFromParent: wantsByte != 0,
	}, nil
}
