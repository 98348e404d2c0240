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

package main

import (
	"crypto/sha1"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/jarvishomeauto/rppp/rppp"
	"github.com/jarvishomeauto/rppp/std"
)

const (
	// SALT is use for pbkdf2 key expansion
	SALT = "rppp-go"
	// maxUDPPayload is the conservative MTU bound frames are checked against
	maxUDPPayload = 1350
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		// add more log flags for debugging
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "rpppc"
	myApp.Usage = "sender: protects a local datagram stream with packet parity"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "localaddr,l",
			Value: ":12948",
			Usage: "local UDP listen address; every inbound datagram is one record",
		},
		cli.StringFlag{
			Name:  "remoteaddr, r",
			Value: "vps:29900",
			Usage: `receiver address, eg: "IP:29900" for a single port, "IP:minport-maxport" for a port range`,
		},
		cli.StringFlag{
			Name:   "key",
			Value:  "it's a secrect",
			Usage:  "pre-shared secret between sender and receiver",
			EnvVar: "RPPP_KEY",
		},
		cli.StringFlag{
			Name:  "crypt",
			Value: "aes",
			Usage: "aes, aes-128, aes-128-gcm, aes-192, salsa20, blowfish, twofish, cast5, 3des, tea, xtea, xor, sm4, none, null",
		},
		cli.IntFlag{
			Name:  "itemsize,is",
			Value: 64,
			Usage: "fixed record size in bytes; shorter datagrams are zero padded",
		},
		cli.IntFlag{
			Name:  "paritysize,ps",
			Value: 4,
			Usage: "data frames per parity group (n); n+1 must be prime",
		},
		cli.BoolFlag{
			Name:  "nocomp",
			Usage: "disable per-frame snappy compression",
		},
		cli.IntFlag{
			Name:  "sockbuf",
			Value: 4194304, // socket buffer size in bytes
			Usage: "per-socket buffer in bytes",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect snmp to file, aware of timeformat in golang, like: ./snmp-20060102.log",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 60,
			Usage: "snmp collect period, in seconds",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "to suppress per-datagram warnings",
		},
		cli.BoolFlag{
			Name:  "tcp",
			Usage: "to emulate a TCP connection(linux)",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "", // when the value is not empty, the config path must exists
			Usage: "config from json file, which will override the command from shell",
		},
		cli.BoolFlag{
			Name:  "pprof",
			Usage: "start profiling server on :6060",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		config := Config{}
		config.LocalAddr = c.String("localaddr")
		config.RemoteAddr = c.String("remoteaddr")
		config.Key = c.String("key")
		config.Crypt = c.String("crypt")
		config.ItemSize = c.Int("itemsize")
		config.ParitySize = c.Int("paritysize")
		config.NoComp = c.Bool("nocomp")
		config.SockBuf = c.Int("sockbuf")
		config.Log = c.String("log")
		config.SnmpLog = c.String("snmplog")
		config.SnmpPeriod = c.Int("snmpperiod")
		config.Quiet = c.Bool("quiet")
		config.TCP = c.Bool("tcp")
		config.Pprof = c.Bool("pprof")

		if c.String("c") != "" {
			err := parseJSONConfig(&config, c.String("c"))
			checkError(err)
		}

		// log redirect
		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		enc, err := rppp.NewEncodeBuffer(config.ItemSize, config.ParitySize)
		checkError(err)

		log.Println("version:", VERSION)
		log.Println("listening on:", config.LocalAddr)
		log.Println("remote address:", config.RemoteAddr)
		log.Println("encryption:", config.Crypt)
		log.Println("compression:", !config.NoComp)
		log.Println("itemsize:", config.ItemSize, "paritysize:", config.ParitySize)
		log.Println("framesize:", enc.FrameSize())
		log.Println("sockbuf:", config.SockBuf)
		log.Println("snmplog:", config.SnmpLog)
		log.Println("snmpperiod:", config.SnmpPeriod)
		log.Println("quiet:", config.Quiet)
		log.Println("tcp:", config.TCP)
		log.Println("pprof:", config.Pprof)

		if enc.FrameSize() > maxUDPPayload {
			color.Red("WARNING: frame size %d exceeds the usual MTU budget of %d,", enc.FrameSize(), maxUDPPayload)
			color.Red("frames may be fragmented and a single loss will cost the whole frame.")
		}

		laddr, err := net.ResolveUDPAddr("udp", config.LocalAddr)
		checkError(err)
		lconn, err := net.ListenUDP("udp", laddr)
		checkError(err)
		if err := lconn.SetReadBuffer(config.SockBuf); err != nil {
			log.Println("SetReadBuffer:", err)
		}

		log.Println("initiating key derivation")
		pass := pbkdf2.Key([]byte(config.Key), []byte(SALT), 4096, 32, sha1.New)
		log.Println("key derivation done")
		block, effectiveCrypt := std.SelectBlockCrypt(config.Crypt, pass)
		if effectiveCrypt != config.Crypt {
			color.Red("WARNING: unknown cipher %q, using %q", config.Crypt, effectiveCrypt)
		}

		conn, raddr, err := dial(&config)
		checkError(err)
		// frames are compressed first, then encrypted on the way down
		conn = std.NewCryptPacketConn(conn, block)
		if !config.NoComp {
			conn = std.NewCompPacketConn(conn)
		}

		// start snmp logger
		go std.SnmpLogger(config.SnmpLog, config.SnmpPeriod)

		// start pprof
		if config.Pprof {
			go http.ListenAndServe(":6060", nil)
		}

		logln := func(v ...any) {
			if !config.Quiet {
				log.Println(v...)
			}
		}

		item := make([]byte, config.ItemSize+1)
		frame := make([]byte, 0, enc.FrameSize())
		var sd rppp.StreamData
		for {
			n, from, err := lconn.ReadFromUDP(item)
			if err != nil {
				log.Fatalf("%+v", err)
			}
			if n > config.ItemSize {
				logln("oversized datagram dropped:", n, "bytes from", from)
				continue
			}

			enc.Enq(item[:n])
			for enc.Deq(&sd) == rppp.OK {
				frame = sd.Marshal(frame[:0])
				if _, err := conn.WriteTo(frame, raddr); err != nil {
					logln("writeto:", err)
				}
			}
		}
	}
	myApp.Run(os.Args)
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
