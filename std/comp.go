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

package std

import (
	"net"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

const readBufSize = 65536

// CompPacketConn is a net.PacketConn wrapper that compresses every datagram
// with the snappy block format. Each datagram is self contained, so a lost
// packet does not poison the ones after it, unlike the stream format.
type CompPacketConn struct {
	net.PacketConn
	rbuf []byte
	wbuf []byte
}

// NewCompPacketConn creates a compressing wrapper around conn
func NewCompPacketConn(conn net.PacketConn) *CompPacketConn {
	c := new(CompPacketConn)
	c.PacketConn = conn
	c.rbuf = make([]byte, readBufSize)
	return c
}

func (c *CompPacketConn) ReadFrom(p []byte) (n int, addr net.Addr, err error) {
	nr, addr, err := c.PacketConn.ReadFrom(c.rbuf)
	if err != nil {
		return 0, addr, err
	}
	dec, err := snappy.Decode(p, c.rbuf[:nr])
	if err != nil {
		return 0, addr, errors.WithStack(err)
	}
	return copy(p, dec), addr, nil
}

func (c *CompPacketConn) WriteTo(p []byte, addr net.Addr) (n int, err error) {
	c.wbuf = snappy.Encode(c.wbuf[:cap(c.wbuf)], p)
	if _, err := c.PacketConn.WriteTo(c.wbuf, addr); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(p), nil
}
