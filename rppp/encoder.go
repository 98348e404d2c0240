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

// EncodeBuffer accepts fixed size records one at a time and produces a FIFO
// of framed stream units. Every parityNum-th record completes a group and
// appends the P and Q parity frames to the queue.
//
// Not safe for concurrent use; the encoder and decoder of a link are
// independent objects and may live on different goroutines.
type EncodeBuffer struct {
	params
	inBuf  [][]byte // staged payloads of the group in progress
	outBuf []StreamData
	seqID  uint16
}

// NewEncodeBuffer creates an encoder for records of itemSize bytes with
// parityNum data frames per group. parityNum must be >= 2 and parityNum+1
// prime, or an error is returned.
func NewEncodeBuffer(itemSize, parityNum int) (*EncodeBuffer, error) {
	p, err := makeParams(itemSize, parityNum)
	if err != nil {
		return nil, err
	}
	return &EncodeBuffer{
		params: p,
		inBuf:  make([][]byte, 0, parityNum+1),
	}, nil
}

// Enq stages one record. item may be shorter than ItemSize; the payload is
// zero padded either way. A longer item panics, the one-in one-out contract
// only holds for well formed inputs. Returns OKParityGenerated when the call
// completed a group.
func (e *EncodeBuffer) Enq(item []byte) Status {
	if len(item) > e.itemSize {
		panic("rppp: item exceeds configured item size")
	}

	blocks := make([]byte, e.payloadSize)
	copy(blocks, item)

	e.inBuf = append(e.inBuf, blocks)
	e.pushOut(blocks)
	atomic.AddUint64(&DefaultSnmp.ItemsIn, 1)

	if len(e.inBuf) < e.parityNum {
		return OK
	}

	// P parity: horizontal XOR across the data frames.
	p := make([]byte, e.payloadSize)
	for i := 0; i < e.parityNum; i++ {
		for j := 0; j < e.parityNum; j++ {
			blockXor(e.block(p, j), e.block(p, j), e.block(e.inBuf[i], j))
		}
	}
	e.pushOut(p)

	// Q parity: XOR along slope-1 diagonals of the data+P grid.
	//
	// parityNum = 4:
	//
	//   a b c d p  q
	//   ---------- -
	//   0 1 2 3    0
	//     0 1 2 3  1
	//   3   0 1 2  2
	//   2 3   0 1  3
	//
	//   q0 = a0 ^ b1 ^ c2 ^ d3
	//   q1 = b0 ^ c1 ^ d2 ^ p3
	e.inBuf = append(e.inBuf, p)
	q := make([]byte, e.payloadSize)
	for j := 0; j < e.parityNum; j++ {
		for i := 0; i < e.parityNum; i++ {
			blockXor(e.block(q, j), e.block(q, j), e.block(e.inBuf[(i+j)%(e.parityNum+1)], i))
		}
	}
	e.pushOut(q)

	e.inBuf = e.inBuf[:0]
	atomic.AddUint64(&DefaultSnmp.ParityGroups, 1)
	return OKParityGenerated
}

// Deq pops the oldest framed stream unit into sd. The payload is copied, so
// sd can be reused across calls. Returns NoElement when the queue is empty.
func (e *EncodeBuffer) Deq(sd *StreamData) Status {
	if len(e.outBuf) == 0 {
		return NoElement
	}

	front := e.outBuf[0]
	sd.SeqID = front.SeqID
	if cap(sd.Data) < len(front.Data) {
		sd.Data = make([]byte, len(front.Data))
	}
	sd.Data = sd.Data[:len(front.Data)]
	copy(sd.Data, front.Data)

	e.outBuf[0] = StreamData{}
	e.outBuf = e.outBuf[1:]
	return OK
}

// Reset returns the encoder to its initial state.
func (e *EncodeBuffer) Reset() {
	e.inBuf = e.inBuf[:0]
	e.outBuf = nil
	e.seqID = 0
}

// Count returns the number of stream units waiting to be dequeued.
func (e *EncodeBuffer) Count() int {
	return len(e.outBuf)
}

// pushOut frames blocks with the next sequence id. The id wraps at the
// largest multiple of parityNum+2 a uint16 can hold, so wrap points always
// coincide with group boundaries.
func (e *EncodeBuffer) pushOut(blocks []byte) {
	e.outBuf = append(e.outBuf, StreamData{SeqID: e.seqID, Data: blocks})
	e.seqID++
	if e.seqID == e.wrapPoint {
		e.seqID = 0
	}
	atomic.AddUint64(&DefaultSnmp.FramesOut, 1)
}
