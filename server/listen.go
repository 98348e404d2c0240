//go:build !linux
// +build !linux

package main

import "net"

func listen(config *Config) (net.PacketConn, error) {
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
