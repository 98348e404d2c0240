//go:build !linux
// +build !linux

package main

import (
	"net"

	"github.com/jarvishomeauto/rppp/std"
)

func dial(config *Config) (net.PacketConn, net.Addr, error) {
	mp, err := std.ParseMultiPort(config.RemoteAddr)
	if err != nil {
		return nil, nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", mp.PickAddr())
	if err != nil {
		return nil, nil, err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, nil, err
	}
	return conn, raddr, nil
}
