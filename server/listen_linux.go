//go:build linux
// +build linux

package main

import (
	"net"

	"github.com/pkg/errors"
	"github.com/xtaci/tcpraw"
)

func listen(config *Config) (net.PacketConn, error) {
	if config.TCP {
		conn, err := tcpraw.Listen("tcp", config.Listen)
		if err != nil {
			return nil, errors.Wrap(err, "tcpraw.Listen()")
		}
		return conn, nil
	}

	laddr, err := net.ResolveUDPAddr("udp", config.Listen)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadBuffer(config.SockBuf); err != nil {
		return nil, err
	}
	return conn, nil
}
