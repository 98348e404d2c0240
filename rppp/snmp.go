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
	"fmt"
	"sync/atomic"
)

// Snmp defines network statistics indicators for the codec
type Snmp struct {
	ItemsIn         uint64 // items accepted by encoders
	FramesOut       uint64 // stream units emitted by encoders
	ParityGroups    uint64 // completed parity groups
	FramesIn        uint64 // stream units admitted by decoders
	ItemsOut        uint64 // items pushed to decoder output queues
	FramesRecovered uint64 // lost frames reconstructed from parity (data, or P in a two-loss group)
	FramesExpired   uint64 // duplicate or late frames dropped
	GroupsDropped   uint64 // groups abandoned with >= 3 losses
	EncoderResets   uint64 // remote encoder restarts observed
}

func newSnmp() *Snmp {
	return new(Snmp)
}

// Header returns all field names
func (s *Snmp) Header() []string {
	return []string{
		"ItemsIn",
		"FramesOut",
		"ParityGroups",
		"FramesIn",
		"ItemsOut",
		"FramesRecovered",
		"FramesExpired",
		"GroupsDropped",
		"EncoderResets",
	}
}

// ToSlice returns current snmp info as a slice
func (s *Snmp) ToSlice() []string {
	snmp := s.Copy()
	return []string{
		fmt.Sprint(snmp.ItemsIn),
		fmt.Sprint(snmp.FramesOut),
		fmt.Sprint(snmp.ParityGroups),
		fmt.Sprint(snmp.FramesIn),
		fmt.Sprint(snmp.ItemsOut),
		fmt.Sprint(snmp.FramesRecovered),
		fmt.Sprint(snmp.FramesExpired),
		fmt.Sprint(snmp.GroupsDropped),
		fmt.Sprint(snmp.EncoderResets),
	}
}

// Copy makes a copy of current snmp snapshot
func (s *Snmp) Copy() *Snmp {
	d := newSnmp()
	d.ItemsIn = atomic.LoadUint64(&s.ItemsIn)
	d.FramesOut = atomic.LoadUint64(&s.FramesOut)
	d.ParityGroups = atomic.LoadUint64(&s.ParityGroups)
	d.FramesIn = atomic.LoadUint64(&s.FramesIn)
	d.ItemsOut = atomic.LoadUint64(&s.ItemsOut)
	d.FramesRecovered = atomic.LoadUint64(&s.FramesRecovered)
	d.FramesExpired = atomic.LoadUint64(&s.FramesExpired)
	d.GroupsDropped = atomic.LoadUint64(&s.GroupsDropped)
	d.EncoderResets = atomic.LoadUint64(&s.EncoderResets)
	return d
}

// Reset sets all counters to zero
func (s *Snmp) Reset() {
	atomic.StoreUint64(&s.ItemsIn, 0)
	atomic.StoreUint64(&s.FramesOut, 0)
	atomic.StoreUint64(&s.ParityGroups, 0)
	atomic.StoreUint64(&s.FramesIn, 0)
	atomic.StoreUint64(&s.ItemsOut, 0)
	atomic.StoreUint64(&s.FramesRecovered, 0)
	atomic.StoreUint64(&s.FramesExpired, 0)
	atomic.StoreUint64(&s.GroupsDropped, 0)
	atomic.StoreUint64(&s.EncoderResets, 0)
}

// DefaultSnmp is the global codec statistics collector
var DefaultSnmp *Snmp

func init() {
	DefaultSnmp = newSnmp()
}
