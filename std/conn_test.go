package std

import (
	"bytes"
	"crypto/sha1"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// packetConnStub is an in-memory net.PacketConn delivering written datagrams
// back to its reader.
type packetConnStub struct {
	ch chan []byte
}

func newPacketConnStub() *packetConnStub {
	return &packetConnStub{ch: make(chan []byte, 16)}
}

func (s *packetConnStub) ReadFrom(p []byte) (int, net.Addr, error) {
	pkt := <-s.ch
	return copy(p, pkt), stubAddr{}, nil
}

func (s *packetConnStub) WriteTo(p []byte, addr net.Addr) (int, error) {
	pkt := make([]byte, len(p))
	copy(pkt, p)
	s.ch <- pkt
	return len(p), nil
}

func (s *packetConnStub) Close() error                       { return nil }
func (s *packetConnStub) LocalAddr() net.Addr                { return stubAddr{} }
func (s *packetConnStub) SetDeadline(t time.Time) error      { return nil }
func (s *packetConnStub) SetReadDeadline(t time.Time) error  { return nil }
func (s *packetConnStub) SetWriteDeadline(t time.Time) error { return nil }

type stubAddr struct{}

func (stubAddr) Network() string { return "stub" }
func (stubAddr) String() string  { return "stub" }

func TestCompPacketConnRoundTrip(t *testing.T) {
	stub := newPacketConnStub()
	conn := NewCompPacketConn(stub)

	payload := bytes.Repeat([]byte("parity"), 40)
	if n, err := conn.WriteTo(payload, stubAddr{}); err != nil || n != len(payload) {
		t.Fatalf("WriteTo returned %d, %v", n, err)
	}

	// the wire image must actually be compressed
	wire := <-stub.ch
	if len(wire) >= len(payload) {
		t.Fatalf("repetitive payload did not compress: %d >= %d", len(wire), len(payload))
	}
	stub.ch <- wire

	buf := make([]byte, 65536)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom returned error: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Fatalf("round trip corrupted the payload")
	}
}

func TestCompPacketConnGarbage(t *testing.T) {
	stub := newPacketConnStub()
	conn := NewCompPacketConn(stub)

	stub.ch <- []byte{0xff, 0xff, 0xff, 0xff}
	buf := make([]byte, 65536)
	if _, _, err := conn.ReadFrom(buf); err == nil {
		t.Fatalf("expected error for undecodable datagram")
	}
}

func TestCryptPacketConnRoundTrip(t *testing.T) {
	pass := pbkdf2.Key([]byte("it's a secrect"), []byte("rppp-go"), 4096, 32, sha1.New)

	for _, method := range []string{"aes", "salsa20", "none", "null"} {
		block, effective := SelectBlockCrypt(method, pass)
		if effective != method {
			t.Fatalf("cipher %q resolved to %q", method, effective)
		}

		stub := newPacketConnStub()
		conn := NewCryptPacketConn(stub, block)

		payload := []byte("0123456789abcdef0123")
		if n, err := conn.WriteTo(payload, stubAddr{}); err != nil || n != len(payload) {
			t.Fatalf("%s: WriteTo returned %d, %v", method, n, err)
		}

		if method == "aes" || method == "salsa20" {
			wire := <-stub.ch
			if bytes.Contains(wire, payload) {
				t.Fatalf("%s: payload visible on the wire", method)
			}
			stub.ch <- wire
		}

		buf := make([]byte, 65536)
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			t.Fatalf("%s: ReadFrom returned error: %v", method, err)
		}
		if !bytes.Equal(buf[:n], payload) {
			t.Fatalf("%s: round trip corrupted the payload", method)
		}
	}
}

func TestCryptPacketConnRejectsTampering(t *testing.T) {
	pass := pbkdf2.Key([]byte("key"), []byte("rppp-go"), 4096, 32, sha1.New)
	block, _ := SelectBlockCrypt("aes", pass)

	stub := newPacketConnStub()
	conn := NewCryptPacketConn(stub, block)

	if _, err := conn.WriteTo([]byte("record"), stubAddr{}); err != nil {
		t.Fatalf("WriteTo returned error: %v", err)
	}
	wire := <-stub.ch
	wire[len(wire)-1] ^= 0x80
	stub.ch <- wire

	buf := make([]byte, 65536)
	if _, _, err := conn.ReadFrom(buf); err == nil {
		t.Fatalf("expected checksum error for tampered datagram")
	}

	// short junk is rejected as well
	stub.ch <- []byte{0x01, 0x02}
	if _, _, err := conn.ReadFrom(buf); err == nil {
		t.Fatalf("expected error for truncated datagram")
	}
}

func TestSelectBlockCryptFallback(t *testing.T) {
	pass := pbkdf2.Key([]byte("key"), []byte("rppp-go"), 4096, 32, sha1.New)
	if _, effective := SelectBlockCrypt("rot13", pass); effective != "aes" {
		t.Fatalf("unknown cipher resolved to %q, want aes", effective)
	}
}
