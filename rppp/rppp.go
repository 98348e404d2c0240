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

// THE EVENODD PACKET PARITY SCHEME
//
// Encoding:
// -----------
// Items:            | D0 | D1 | D2 | D3 |
// Generate Parity:  | P  | Q  |
// Emitted Group:    | D0 | D1 | D2 | D3 | P  | Q  |
//
// P is the horizontal XOR of the data frames, Q the XOR along slope-1
// diagonals of the (n+1) x n grid formed by the data frames plus P, with one
// exempt diagonal. Any two lost frames of a group are recoverable, provided
// n+1 is prime.

package rppp

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

const (
	// streamHeaderSize is the wire overhead per frame: the 16bit sequence
	// id, little endian. Both peers must agree on the byte order.
	streamHeaderSize = 2
)

// Status is the result of a buffer operation.
type Status int

const (
	// OK means the operation completed.
	OK Status = iota
	// OKParityGenerated means the enqueue completed a parity group and the
	// P and Q frames were appended to the output queue.
	OKParityGenerated
	// NoElement means the queue had nothing to dequeue.
	NoElement
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case OKParityGenerated:
		return "OK_PARITY_GENERATED"
	case NoElement:
		return "NO_ELEMENT"
	default:
		return "UNKNOWN"
	}
}

// StreamData is one framed stream unit: a sequence id followed by the padded
// payload of a data or parity frame.
type StreamData struct {
	SeqID uint16
	Data  []byte
}

// Marshal appends the wire image of sd to p and returns the extended slice.
// Layout: seq_id (2 bytes, little endian), then the payload bytes.
func (sd *StreamData) Marshal(p []byte) []byte {
	p = binary.LittleEndian.AppendUint16(p, sd.SeqID)
	return append(p, sd.Data...)
}

// UnmarshalStreamData parses a wire frame. The returned Data aliases p;
// callers that keep the frame must copy it.
func UnmarshalStreamData(p []byte) (StreamData, error) {
	if len(p) < streamHeaderSize {
		return StreamData{}, errors.Errorf("rppp: frame too short: %d bytes", len(p))
	}
	return StreamData{
		SeqID: binary.LittleEndian.Uint16(p),
		Data:  p[streamHeaderSize:],
	}, nil
}

// params holds the geometry shared by both buffer types.
//
// itemSize is the caller's record size, payloadSize the record zero padded to
// a multiple of parityNum, and blockSize the width of one of the parityNum
// sub blocks each frame is cut into. wrapPoint is the largest multiple of
// parityNum+2 representable in a sequence id, so wraps stay group aligned.
type params struct {
	itemSize    int
	parityNum   int
	payloadSize int
	blockSize   int
	wrapPoint   uint16
}

func makeParams(itemSize, parityNum int) (params, error) {
	if itemSize < 1 {
		return params{}, errors.Errorf("rppp: item size must be >= 1, got %d", itemSize)
	}
	if parityNum < 2 {
		return params{}, errors.Errorf("rppp: parity size must be >= 2, got %d", parityNum)
	}
	if !isPrime(parityNum + 1) {
		return params{}, errors.Errorf("rppp: parity size + 1 must be prime, got %d", parityNum)
	}

	payload := multiCeil(itemSize, parityNum)
	return params{
		itemSize:    itemSize,
		parityNum:   parityNum,
		payloadSize: payload,
		blockSize:   payload / parityNum,
		wrapPoint:   uint16(multiFloor(math.MaxUint16, parityNum+2)),
	}, nil
}

// ItemSize returns the record size the buffer was created with.
func (p params) ItemSize() int { return p.itemSize }

// ParitySize returns the number of data frames per parity group.
func (p params) ParitySize() int { return p.parityNum }

// PayloadSize returns the padded payload size carried by every frame.
func (p params) PayloadSize() int { return p.payloadSize }

// FrameSize returns the full wire size of one stream unit.
func (p params) FrameSize() int { return streamHeaderSize + p.payloadSize }

// block returns the j-th sub block of a frame payload.
func (p params) block(data []byte, j int) []byte {
	return data[j*p.blockSize : (j+1)*p.blockSize]
}

// slot maps a sequence id to its position within the parity group.
func (p params) slot(seqID uint16) int {
	return int(seqID) % (p.parityNum + 2)
}

func multiCeil(n, m int) int {
	return (n + m - 1) / m * m
}

func multiFloor(n, m int) int {
	return n / m * m
}

func isPrime(num int) bool {
	if num < 2 {
		return false
	}
	if num == 2 {
		return true
	}
	if num%2 == 0 {
		return false
	}
	for i := 3; i*i <= num; i += 2 {
		if num%i == 0 {
			return false
		}
	}
	return true
}
