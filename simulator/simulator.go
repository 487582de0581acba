// Package simulator generates synthetic conntrack, interface-counter and
// DHCP-lease files so the collectors have something to read in a
// development environment without root access to /proc.
package simulator

import (
	"fmt"
	"math/rand/v2"
	"net/netip"
	"strings"
)

// counter is a cumulative byte/packet pair accumulated per simulated flow.
type counter struct {
	bytes   uint64
	packets uint64
}

func (c *counter) add(other counter) {
	c.bytes += other.bytes
	c.packets += other.packets
}

// rate is the average throughput of one direction of a simulated flow. The
// per-tick increment is drawn from a normal distribution around it so the
// derived rate series is not a flat line.
type rate struct {
	bytesPerSec   uint64
	packetsPerSec uint64
}

func randomRate(maxBytesPerSec uint64) rate {
	bytesPerSec := rand.Uint64N(maxBytesPerSec) + maxBytesPerSec/100
	return rate{
		bytesPerSec:   bytesPerSec,
		packetsPerSec: bytesPerSec / 1000,
	}
}

func (r rate) tick(c *counter) {
	c.bytes += sampleNormal(r.bytesPerSec)
	c.packets += sampleNormal(r.packetsPerSec)
}

// sampleNormal draws from N(mean, mean/4), clamped at zero so cumulative
// counters never regress.
func sampleNormal(mean uint64) uint64 {
	v := rand.NormFloat64()*float64(mean)/4 + float64(mean)
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func randomHostname() string {
	const alpha = "abcdefghijklmnopqrstuvwxyz"
	const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

	var b strings.Builder
	b.WriteByte(alpha[rand.IntN(len(alpha))])
	for i := 0; i < 7; i++ {
		b.WriteByte(alphanumeric[rand.IntN(len(alphanumeric))])
	}
	return b.String()
}

func randomIPv4(prefix []uint8) netip.Addr {
	var octets [4]byte
	for i := range octets {
		if i < len(prefix) {
			octets[i] = prefix[i]
		} else {
			octets[i] = byte(rand.Uint32())
		}
	}
	return netip.AddrFrom4(octets)
}

func randomIPv6(prefix []uint16) netip.Addr {
	var raw [16]byte
	for i := 0; i < 8; i++ {
		var word uint16
		if i < len(prefix) {
			word = prefix[i]
		} else {
			word = uint16(rand.Uint32())
		}
		raw[2*i] = byte(word >> 8)
		raw[2*i+1] = byte(word)
	}
	return netip.AddrFrom16(raw)
}

// target is one simulated flow: a local host talking to a remote endpoint,
// with independent in/out throughput.
type target struct {
	remote     netip.Addr
	local      netip.Addr
	hostname   string
	inTraffic  counter
	inRate     rate
	outTraffic counter
	outRate    rate
}

func randomTarget() target {
	var remote, local netip.Addr
	if rand.Uint32()&1 == 0 {
		remote = randomIPv4([]uint8{123})
		local = randomIPv4([]uint8{192, 168, 1})
	} else {
		remote = randomIPv6([]uint16{0x2345})
		local = randomIPv6([]uint16{0x1234})
	}

	return target{
		remote:   remote,
		local:    local,
		hostname: randomHostname(),
		inRate:   randomRate(10_000_000),
		outRate:  randomRate(1_000_000),
	}
}

func (t *target) tick() {
	t.inRate.tick(&t.inTraffic)
	t.outRate.tick(&t.outTraffic)
}

func (t *target) protocolFamily() string {
	if t.local.Is4() {
		return "ipv4"
	}
	return "ipv6"
}

// Conntrack simulates a small population of flows. Each tick advances every
// flow's counters; occasionally a flow appears or disappears, exercising the
// collectors' pruning and flow-replacement paths. Counters of removed flows
// are folded into an offset so the interface totals stay cumulative.
type Conntrack struct {
	targets   []target
	inOffset  counter
	outOffset counter
}

// NewConntrack constructs an empty simulation; the first Tick seeds it.
func NewConntrack() *Conntrack {
	return &Conntrack{}
}

// Tick advances all flows by one second and randomly churns the population.
func (s *Conntrack) Tick() {
	if rand.IntN(100) < 2 || len(s.targets) < 3 {
		s.targets = append(s.targets, randomTarget())
	}
	if rand.IntN(100) < 2 && len(s.targets) > 3 {
		i := rand.IntN(len(s.targets))
		removed := s.targets[i]
		s.targets = append(s.targets[:i], s.targets[i+1:]...)
		s.inOffset.add(removed.inTraffic)
		s.outOffset.add(removed.outTraffic)
	}
	for i := range s.targets {
		s.targets[i].tick()
	}
}

// totals returns the cumulative in/out counters over all flows, including
// flows removed earlier.
func (s *Conntrack) totals() (in, out counter) {
	in, out = s.inOffset, s.outOffset
	for _, t := range s.targets {
		in.add(t.inTraffic)
		out.add(t.outTraffic)
	}
	return in, out
}

// WriteTo renders the population in /proc/net/nf_conntrack format: one line
// per flow carrying the original and reply tuples back to back.
func (s *Conntrack) WriteTo(w *strings.Builder) {
	for _, t := range s.targets {
		fmt.Fprintf(w,
			"%s     2 tcp      6 431741 ESTABLISHED src=%s dst=%s sport=50054 dport=443 packets=%d bytes=%d src=%s dst=%s sport=443 dport=50054 packets=%d bytes=%d [ASSURED] mark=0 zone=0 use=2\n",
			t.protocolFamily(),
			t.local, t.remote, t.inTraffic.packets, t.inTraffic.bytes,
			t.remote, t.local, t.outTraffic.packets, t.outTraffic.bytes)
	}
}

// WriteDevice renders a /proc/net/dev-shaped file whose eth0 line carries
// the cumulative totals of the simulated flows.
func (s *Conntrack) WriteDevice(w *strings.Builder) {
	in, out := s.totals()
	w.WriteString("Inter-|   Receive                                                |  Transmit\n")
	w.WriteString(" face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed\n")
	fmt.Fprintf(w,
		"  eth0:  %d    %d    0    0    0     0          0         6   %d    %d    0    0    0     0       0          0\n",
		in.bytes, in.packets, out.bytes, out.packets)
}

// WriteLeases renders a dnsmasq-shaped lease file with one entry per
// simulated local host, IPv4 entries first, then the duid marker line and
// the IPv6 entries.
func (s *Conntrack) WriteLeases(w *strings.Builder) {
	for _, t := range s.targets {
		if t.local.Is4() {
			fmt.Fprintf(w, "1562986769 74:c2:46:12:34:56 %s %s 01:74:c2:46:12:34:56\n", t.local, t.hostname)
		}
	}
	w.WriteString("duid 00:01:00:01:24:99:3a:37:00:01:2e:12:34:56\n")
	for _, t := range s.targets {
		if t.local.Is6() {
			fmt.Fprintf(w, "1561852704 224934210 %s %s 00:04:2e:3b:43:05:a5:df:ad:a0:32:bb:a8:a8:d3:12:34:56\n", t.local, t.hostname)
		}
	}
}
