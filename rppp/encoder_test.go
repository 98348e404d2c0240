package rppp

import (
	"bytes"
	"testing"
)

func TestEncodeSimple(t *testing.T) {
	for _, n := range testParitySizes {
		enc, err := NewEncodeBuffer(13, n)
		if err != nil {
			t.Fatalf("n=%d: NewEncodeBuffer: %v", n, err)
		}

		item := rampItem(7, 13)
		if enc.Count() != 0 {
			t.Fatalf("n=%d: fresh encoder count %d", n, enc.Count())
		}
		if s := enc.Enq(item); s != OK {
			t.Fatalf("n=%d: enq returned %v", n, s)
		}
		if enc.Count() != 1 {
			t.Fatalf("n=%d: count %d after one enq", n, enc.Count())
		}

		var sd StreamData
		if s := enc.Deq(&sd); s != OK {
			t.Fatalf("n=%d: deq returned %v", n, s)
		}
		if enc.Count() != 0 {
			t.Fatalf("n=%d: count %d after deq", n, enc.Count())
		}
		if sd.SeqID != 0 {
			t.Fatalf("n=%d: first seq id %d", n, sd.SeqID)
		}
		if !bytes.Equal(sd.Data[:13], item) {
			t.Fatalf("n=%d: payload mismatch", n)
		}
		for _, b := range sd.Data[13:] {
			if b != 0 {
				t.Fatalf("n=%d: padding not zeroed", n)
			}
		}
	}
}

func TestEncodeParityLaws(t *testing.T) {
	for _, n := range testParitySizes {
		for _, itemSize := range []int{4, 13, 24} {
			items, frames := encodeGroup(t, itemSize, n)
			payload := len(frames[0].Data)
			blockBytes := payload / n

			// sequence ids are 0..n+1
			for i, sd := range frames {
				if int(sd.SeqID) != i {
					t.Fatalf("n=%d size=%d: frame %d has seq %d", n, itemSize, i, sd.SeqID)
				}
			}

			// data frames carry the items, zero padded
			for i := 0; i < n; i++ {
				if !bytes.Equal(frames[i].Data[:itemSize], items[i]) {
					t.Fatalf("n=%d size=%d: data frame %d mismatch", n, itemSize, i)
				}
			}

			// horizontal parity law
			for j := 0; j < payload; j++ {
				var x byte
				for k := 0; k < n; k++ {
					x ^= frames[k].Data[j]
				}
				if frames[n].Data[j] != x {
					t.Fatalf("n=%d size=%d: P violated at byte %d", n, itemSize, j)
				}
			}

			// diagonal parity law over the data+P grid
			for i := 0; i < n; i++ {
				for j := 0; j < blockBytes; j++ {
					var x byte
					for k := 0; k < n; k++ {
						x ^= frames[(i+k)%(n+1)].Data[k*blockBytes+j]
					}
					if frames[n+1].Data[i*blockBytes+j] != x {
						t.Fatalf("n=%d size=%d: Q violated at block %d byte %d", n, itemSize, i, j)
					}
				}
			}
		}
	}
}

func TestEncodeDrain(t *testing.T) {
	enc, err := NewEncodeBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewEncodeBuffer: %v", err)
	}
	var sd StreamData
	if s := enc.Deq(&sd); s != NoElement {
		t.Fatalf("deq on empty returned %v", s)
	}
	for i := 0; i < 4; i++ {
		enc.Enq(rampItem(i, 4))
	}
	for i := 0; i < 6; i++ {
		if s := enc.Deq(&sd); s != OK {
			t.Fatalf("deq %d returned %v", i, s)
		}
	}
	if s := enc.Deq(&sd); s != NoElement {
		t.Fatalf("deq after drain returned %v", s)
	}
}

// TestEncodeSeqIDWrap drives the encoder across the sequence id boundary:
// the id after wrapPoint-1 is 0, and the wrap lands on a group boundary.
func TestEncodeSeqIDWrap(t *testing.T) {
	const n = 4
	enc, err := NewEncodeBuffer(1, n)
	if err != nil {
		t.Fatalf("NewEncodeBuffer: %v", err)
	}
	wrap := multiFloor(65535, n+2)

	item := []byte{0xa5}
	var sd StreamData
	prev := -1
	wrapped := false
	for i := 0; i < 65536+2 && !wrapped; i++ {
		enc.Enq(item)
		for enc.Deq(&sd) == OK {
			if prev >= 0 && sd.SeqID == 0 {
				if prev != wrap-1 {
					t.Fatalf("wrapped after seq %d, want %d", prev, wrap-1)
				}
				if prev%(n+2) != n+1 {
					t.Fatalf("wrap point %d is not group aligned", prev)
				}
				wrapped = true
				break
			}
			if prev >= 0 && int(sd.SeqID) != prev+1 {
				t.Fatalf("sequence jumped from %d to %d", prev, sd.SeqID)
			}
			prev = int(sd.SeqID)
		}
	}
	if !wrapped {
		t.Fatalf("sequence id never wrapped")
	}
}

func TestEncodeReset(t *testing.T) {
	enc, err := NewEncodeBuffer(8, 4)
	if err != nil {
		t.Fatalf("NewEncodeBuffer: %v", err)
	}
	for i := 0; i < 3; i++ {
		enc.Enq(rampItem(i, 8))
	}
	enc.Reset()
	if enc.Count() != 0 {
		t.Fatalf("count %d after reset", enc.Count())
	}

	// a reset encoder restarts its sequence ids and group staging
	for i := 0; i < 4; i++ {
		enc.Enq(rampItem(i, 8))
	}
	if enc.Count() != 6 {
		t.Fatalf("count %d after a full group, want 6", enc.Count())
	}
	var sd StreamData
	if enc.Deq(&sd) != OK || sd.SeqID != 0 {
		t.Fatalf("first frame after reset has seq %d", sd.SeqID)
	}
}
