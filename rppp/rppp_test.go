package rppp

import (
	"bytes"
	"testing"
)

// testParitySizes are all valid parity sizes up to 16: n+1 prime.
var testParitySizes = []int{2, 4, 6, 10, 12, 16}

// rampItem builds a deterministic item: offset, offset+1, ... as in a ramp.
func rampItem(offset, size int) []byte {
	b := make([]byte, size)
	for j := range b {
		b[j] = byte(offset + j)
	}
	return b
}

// encodeGroup pushes n ramp items through a fresh encoder and returns the
// n+2 frames of the first group along with the items.
func encodeGroup(t *testing.T, itemSize, parityNum int) (items [][]byte, frames []StreamData) {
	t.Helper()
	enc, err := NewEncodeBuffer(itemSize, parityNum)
	if err != nil {
		t.Fatalf("NewEncodeBuffer: %v", err)
	}

	for i := 0; i < parityNum; i++ {
		items = append(items, rampItem(i, itemSize))
	}
	for i := 0; i < parityNum-1; i++ {
		if s := enc.Enq(items[i]); s != OK {
			t.Fatalf("enq %d returned %v, want OK", i, s)
		}
	}
	if s := enc.Enq(items[parityNum-1]); s != OKParityGenerated {
		t.Fatalf("final enq returned %v, want OK_PARITY_GENERATED", s)
	}

	for {
		var sd StreamData // fresh per frame, Deq reuses the payload buffer
		if enc.Deq(&sd) != OK {
			break
		}
		frames = append(frames, sd)
	}
	if len(frames) != parityNum+2 {
		t.Fatalf("group has %d frames, want %d", len(frames), parityNum+2)
	}
	return items, frames
}

func TestParamsValidation(t *testing.T) {
	if _, err := NewEncodeBuffer(8, 3); err == nil {
		t.Fatalf("expected error: 3+1 is not prime")
	}
	if _, err := NewEncodeBuffer(8, 1); err == nil {
		t.Fatalf("expected error: parity size below 2")
	}
	if _, err := NewEncodeBuffer(0, 4); err == nil {
		t.Fatalf("expected error: zero item size")
	}
	if _, err := NewDecodeBuffer(8, 8); err == nil {
		t.Fatalf("expected error: 8+1 is not prime")
	}
	for _, n := range testParitySizes {
		if _, err := NewEncodeBuffer(13, n); err != nil {
			t.Fatalf("parity size %d rejected: %v", n, err)
		}
	}
}

func TestParamsGeometry(t *testing.T) {
	enc, err := NewEncodeBuffer(13, 4)
	if err != nil {
		t.Fatalf("NewEncodeBuffer: %v", err)
	}
	if enc.ItemSize() != 13 || enc.ParitySize() != 4 {
		t.Fatalf("unexpected item/parity size: %d %d", enc.ItemSize(), enc.ParitySize())
	}
	if enc.PayloadSize() != 16 {
		t.Fatalf("payload size %d, want 16", enc.PayloadSize())
	}
	if enc.FrameSize() != 18 {
		t.Fatalf("frame size %d, want 18", enc.FrameSize())
	}
}

func TestStatusString(t *testing.T) {
	if OK.String() != "OK" || OKParityGenerated.String() != "OK_PARITY_GENERATED" || NoElement.String() != "NO_ELEMENT" {
		t.Fatalf("unexpected status strings: %v %v %v", OK, OKParityGenerated, NoElement)
	}
}

func TestStreamDataMarshal(t *testing.T) {
	sd := StreamData{SeqID: 0x1234, Data: []byte{0xde, 0xad, 0xbe, 0xef}}
	wire := sd.Marshal(nil)

	// seq_id is little endian on the wire
	want := []byte{0x34, 0x12, 0xde, 0xad, 0xbe, 0xef}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire image %x, want %x", wire, want)
	}

	back, err := UnmarshalStreamData(wire)
	if err != nil {
		t.Fatalf("UnmarshalStreamData: %v", err)
	}
	if back.SeqID != sd.SeqID || !bytes.Equal(back.Data, sd.Data) {
		t.Fatalf("round trip mismatch: %+v", back)
	}

	if _, err := UnmarshalStreamData([]byte{0x01}); err == nil {
		t.Fatalf("expected error for short frame")
	}
}

func TestQNumber(t *testing.T) {
	p, err := makeParams(16, 4)
	if err != nil {
		t.Fatalf("makeParams: %v", err)
	}
	// the grid of the encoder comment: frame a..d plus p over 5 diagonals
	cases := []struct{ i, j, q int }{
		{0, 0, 0}, {1, 1, 0}, {2, 2, 0}, {3, 3, 0},
		{1, 0, 1}, {2, 1, 1}, {3, 2, 1}, {4, 3, 1},
		{0, 1, 4}, {1, 2, 4}, // exempt diagonal
	}
	for _, c := range cases {
		if got := p.qNumber(c.i, c.j); got != c.q {
			t.Fatalf("qNumber(%d,%d) = %d, want %d", c.i, c.j, got, c.q)
		}
	}
}
