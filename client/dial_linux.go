//go:build linux
// +build linux

package main

import (
	"net"

	"github.com/pkg/errors"
	"github.com/xtaci/tcpraw"

	"github.com/jarvishomeauto/rppp/std"
)

func dial(config *Config) (net.PacketConn, net.Addr, error) {
	mp, err := std.ParseMultiPort(config.RemoteAddr)
	if err != nil {
		return nil, nil, err
	}
	remote := mp.PickAddr()

	if config.TCP { // emulate a TCP connection with raw sockets
		conn, err := tcpraw.Dial("tcp", remote)
		if err != nil {
			return nil, nil, errors.Wrap(err, "tcpraw.Dial()")
		}
		raddr, err := net.ResolveTCPAddr("tcp", remote)
		if err != nil {
			return nil, nil, err
		}
		return conn, raddr, nil
	}

	raddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, nil, err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, nil, err
	}
	return conn, raddr, nil
}
