// The MIT License (MIT)
//
// Copyright (c) 2020 jarvishomeauto
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package rppp

import (
	"sync/atomic"
)

// inFrame is a received stream unit staged for the group under observation.
type inFrame struct {
	seqID uint16
	data  []byte
}

// DecodeBuffer consumes framed stream units in channel order, detects losses
// through sequence id gaps and emits the original records in order. Up to two
// missing frames per group are reconstructed from the P and Q parities; a
// group with three or more losses is dropped whole, silently.
//
// Not safe for concurrent use.
type DecodeBuffer struct {
	params
	inBuf          []inFrame
	outBuf         [][]byte
	expectSeqID    uint16
	nextSeqIDFloor uint16
	prevSeqID      uint16
	lossCnt        uint8
	firstCall      bool
}

// NewDecodeBuffer creates a decoder with the same geometry constraints as
// NewEncodeBuffer. Both peers must be configured identically.
func NewDecodeBuffer(itemSize, parityNum int) (*DecodeBuffer, error) {
	p, err := makeParams(itemSize, parityNum)
	if err != nil {
		return nil, err
	}
	return &DecodeBuffer{
		params:         p,
		inBuf:          make([]inFrame, 0, parityNum),
		nextSeqIDFloor: uint16(parityNum + 2),
		firstCall:      true,
	}, nil
}

// Enq admits one received stream unit. The payload is copied. Out of order
// and duplicate frames are absorbed silently, so the call always reports OK.
func (d *DecodeBuffer) Enq(sd *StreamData) Status {
	atomic.AddUint64(&DefaultSnmp.FramesIn, 1)
	d.enq(sd)
	return OK
}

// enq classifies the frame against the expected sequence id. It re-enters
// itself after an encoder reset and after a jump into a later group.
func (d *DecodeBuffer) enq(sd *StreamData) {
	seq := sd.SeqID

	// A sequence id at or below the previous one means the remote encoder
	// restarted (or wrapped, which looks the same). Resynchronize onto the
	// group containing this frame and admit it again.
	if seq <= d.prevSeqID && !d.firstCall {
		d.inBuf = d.inBuf[:0]
		d.expectSeqID = uint16(multiFloor(int(seq), d.parityNum+2))
		d.nextSeqIDFloor = uint16(multiCeil(int(d.expectSeqID)+1, d.parityNum+2))
		d.prevSeqID = seq
		d.lossCnt = 0
		d.firstCall = true
		atomic.AddUint64(&DefaultSnmp.EncoderResets, 1)
		d.enq(sd)
		return
	}
	d.firstCall = false

	switch {
	case seq == d.expectSeqID: // no loss
		d.admit(sd)
		if d.lossCnt == 0 {
			// fast path: stream the record out right away
			d.pushOut(d.inBuf[len(d.inBuf)-1].data)
		}
		d.expectSeqID = seq + 1

	case seq < d.expectSeqID: // expired sequence id
		atomic.AddUint64(&DefaultSnmp.FramesExpired, 1)

	case seq >= d.nextSeqIDFloor: // jumped into the next parity group
		d.nextPeriod()
		d.enq(sd)
		return

	case seq == d.expectSeqID+1: // lost 1
		d.admit(sd)
		d.lossCnt += 1
		d.expectSeqID = seq + 1

	case seq == d.expectSeqID+2: // lost 2
		d.admit(sd)
		d.lossCnt += 2
		d.expectSeqID = seq + 1

	default: // lost >= 3
		d.lossCnt += 3
	}

	if d.lossCnt >= 3 {
		atomic.AddUint64(&DefaultSnmp.GroupsDropped, 1)
		d.nextPeriod()
	} else if len(d.inBuf) == d.parityNum {
		d.decode()
		d.nextPeriod()
	}
	d.prevSeqID = seq
}

// Deq pops the oldest recovered record, copying its first ItemSize bytes
// into out (trailing padding is discarded). Returns NoElement when empty.
func (d *DecodeBuffer) Deq(out []byte) Status {
	if len(d.outBuf) == 0 {
		return NoElement
	}
	copy(out, d.outBuf[0][:d.itemSize])
	d.outBuf[0] = nil
	d.outBuf = d.outBuf[1:]
	return OK
}

// Reset returns the decoder to its initial state.
func (d *DecodeBuffer) Reset() {
	d.inBuf = d.inBuf[:0]
	d.outBuf = nil
	d.expectSeqID = 0
	d.nextSeqIDFloor = uint16(d.parityNum + 2)
	d.prevSeqID = 0
	d.lossCnt = 0
	d.firstCall = true
}

// Count returns the number of recovered records waiting to be dequeued.
func (d *DecodeBuffer) Count() int {
	return len(d.outBuf)
}

func (d *DecodeBuffer) admit(sd *StreamData) {
	data := make([]byte, d.payloadSize)
	copy(data, sd.Data)
	d.inBuf = append(d.inBuf, inFrame{seqID: sd.SeqID, data: data})
}

func (d *DecodeBuffer) pushOut(data []byte) {
	d.outBuf = append(d.outBuf, data)
	atomic.AddUint64(&DefaultSnmp.ItemsOut, 1)
}

// nextPeriod advances the observation window to the next parity group.
func (d *DecodeBuffer) nextPeriod() {
	d.inBuf = d.inBuf[:0]
	d.lossCnt = 0
	d.expectSeqID = d.nextSeqIDFloor
	d.nextSeqIDFloor = uint16(multiCeil(int(d.expectSeqID)+1, d.parityNum+2))
}

// decode reconstructs the missing frames of a complete group and pushes the
// data records not already streamed by the fast path, in slot order.
func (d *DecodeBuffer) decode() {
	switch {
	case d.lossCnt == 0:
		// records were streamed during Enq, nothing to repair

	case d.lossCnt == 1:
		d.decodeOneLoss()

	default:
		d.decodeTwoLosses()
	}
}

// decodeOneLoss repairs a single missing frame from the horizontal parity:
// the missing data frame is the XOR of the other frames staged for the
// group, P included. A missing parity frame needs no repair.
func (d *DecodeBuffer) decodeOneLoss() {
	i := 0
	for ; i < d.parityNum; i++ {
		if d.slot(d.inBuf[i].seqID) != i {
			restored := make([]byte, d.payloadSize)
			for j := 0; j < d.parityNum; j++ {
				for k := 0; k < d.parityNum; k++ {
					blockXor(d.block(restored, j), d.block(restored, j), d.block(d.inBuf[k].data, j))
				}
			}
			d.pushOut(restored)
			atomic.AddUint64(&DefaultSnmp.FramesRecovered, 1)
			break
		}
	}
	// the last staged frame is the horizontal parity, not a record
	for ; i < d.parityNum-1; i++ {
		d.pushOut(d.inBuf[i].data)
	}
}

// decodeTwoLosses repairs two missing frames by diagonal bootstrapping: a
// diagonal touched by exactly one unknown block yields that block directly
// from Q, and the horizontal parity then yields its neighbour in the other
// missing frame at the same block index. Primality of parityNum+1
// guarantees such a diagonal exists at every step.
func (d *DecodeBuffer) decodeTwoLosses() {
	mod := d.parityNum + 1

	// working grid: received frames at their slot positions, missing slots
	// zero initialized
	allData := make([][]byte, 0, d.parityNum+2)
	var dropNumbers []int
	k := 0
	for i := 0; i < d.parityNum; i++ {
		for d.slot(d.inBuf[i].seqID) != k {
			allData = append(allData, make([]byte, d.payloadSize))
			dropNumbers = append(dropNumbers, k)
			k++
		}
		allData = append(allData, d.inBuf[i].data)
		k++
	}
	dMin, dMax := dropNumbers[0], dropNumbers[1]

	// count unknowns per diagonal; the exempt diagonal is pinned to zero
	qCount := make([]int, d.parityNum+1)
	for _, i := range dropNumbers {
		for j := 0; j < d.parityNum; j++ {
			if q := d.qNumber(i, j); q != d.parityNum {
				qCount[q]++
			} else {
				qCount[q] = 0
			}
		}
	}

	rows := make([]int, d.parityNum)
	for j := range rows {
		rows[j] = j
	}

	decodeCount := 0
	sweeps := 0
	for decodeCount < 2*d.parityNum {
		for _, i := range dropNumbers {
			for ri := 0; ri < len(rows); {
				j := rows[ri]
				if qCount[d.qNumber(i, j)] != 1 {
					ri++
					continue
				}

				// exactly one unknown on this diagonal: recover it from Q
				block := make([]byte, d.blockSize)
				for k := 0; k < d.parityNum+1; k++ {
					if (j+k)%mod != d.parityNum {
						blockXor(block, block, d.block(allData[(i+k)%mod], (j+k)%mod))
					}
				}
				blockXor(block, block, d.block(allData[d.parityNum+1], d.qNumber(i, j)))
				qCount[d.qNumber(i, j)]--
				copy(d.block(allData[i], j), block)
				decodeCount++

				// only one unknown is left at block index j: recover the
				// neighbour in the other missing slot from the column XOR
				neighbour := dMax
				if i == dMax {
					neighbour = dMin
				}
				nblock := make([]byte, d.blockSize)
				for k := 0; k < d.parityNum+1; k++ {
					blockXor(nblock, nblock, d.block(allData[k], j))
				}
				qCount[d.qNumber(neighbour, j)]--
				copy(d.block(allData[neighbour], j), nblock)
				decodeCount++

				rows = append(rows[:ri], rows[ri+1:]...)
			}
		}

		sweeps++
		if sweeps > 4*d.parityNum {
			// primality of parityNum+1 makes this unreachable; crash
			// rather than spin on a broken invariant
			panic("rppp: diagonal recovery did not converge")
		}
	}
	atomic.AddUint64(&DefaultSnmp.FramesRecovered, uint64(len(dropNumbers)))

	// records at slots below dMin were streamed by the fast path already
	for i := dMin; i < d.parityNum; i++ {
		d.pushOut(allData[i])
	}
}
