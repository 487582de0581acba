package simulator

import (
	"strings"
	"testing"

	"github.com/untoldwind/nftracker/conntrack"
	"github.com/untoldwind/nftracker/device"
	"github.com/untoldwind/nftracker/leases"
)

func TestConntrackOutputParses(t *testing.T) {
	sim := NewConntrack()
	for i := 0; i < 10; i++ {
		sim.Tick()
	}

	var b strings.Builder
	sim.WriteTo(&b)

	var entries []conntrack.Entry
	err := conntrack.Parse(strings.NewReader(b.String()), func(e conntrack.Entry) {
		entries = append(entries, e)
	}, func(lineNo int, err error) {
		t.Errorf("line %d: %v", lineNo, err)
	})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	// Every simulated flow emits an original and a reply tuple.
	if len(entries) == 0 || len(entries)%2 != 0 {
		t.Fatalf("entries = %d, want a positive even count", len(entries))
	}
	for _, e := range entries {
		if e.Src == "" || e.Dst == "" {
			t.Fatalf("entry missing addresses: %+v", e)
		}
	}
}

func TestDeviceOutputParses(t *testing.T) {
	sim := NewConntrack()
	sim.Tick()

	var b strings.Builder
	sim.WriteDevice(&b)

	var seen []device.Stats
	err := device.Parse(strings.NewReader(b.String()), func(s device.Stats) {
		seen = append(seen, s)
	}, func(lineNo int, err error) {
		t.Errorf("line %d: %v", lineNo, err)
	})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if len(seen) != 1 || seen[0].Interface != "eth0" {
		t.Fatalf("stats = %+v, want a single eth0 line", seen)
	}
}

func TestLeasesOutputParses(t *testing.T) {
	sim := NewConntrack()
	for i := 0; i < 5; i++ {
		sim.Tick()
	}

	var b strings.Builder
	sim.WriteLeases(&b)

	var seen []leases.Lease
	badLines := 0
	err := leases.Parse(strings.NewReader(b.String()), func(l leases.Lease) {
		seen = append(seen, l)
	}, func(lineNo int, err error) {
		badLines++
	})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	// The duid marker line is intentionally unparseable; everything else
	// must come through.
	if badLines != 1 {
		t.Fatalf("badLines = %d, want only the duid marker", badLines)
	}
	if len(seen) == 0 {
		t.Fatal("no leases parsed")
	}
	for _, l := range seen {
		if l.Name == "" || !l.Addr.IsValid() {
			t.Fatalf("incomplete lease: %+v", l)
		}
	}
}

func TestTotalsAreCumulativeAcrossRemovals(t *testing.T) {
	sim := NewConntrack()
	var prevIn, prevOut counter
	for i := 0; i < 200; i++ {
		sim.Tick()
		in, out := sim.totals()
		if in.bytes < prevIn.bytes || out.bytes < prevOut.bytes {
			t.Fatalf("totals regressed at tick %d: in %d < %d or out %d < %d",
				i, in.bytes, prevIn.bytes, out.bytes, prevOut.bytes)
		}
		prevIn, prevOut = in, out
	}
}
