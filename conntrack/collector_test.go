package conntrack

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/untoldwind/nftracker/subnet"
)

func mustSubnet(t *testing.T, s string) subnet.Subnet {
	t.Helper()
	sn, err := subnet.Parse(s)
	if err != nil {
		t.Fatalf("subnet.Parse(%q) error = %v", s, err)
	}
	return sn
}

func TestScanClassifiesAndAccumulates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nf_conntrack")
	body := "ipv4     2 udp      17 27 src=192.168.3.56 dst=8.8.8.8 sport=51556 dport=53 packets=2 bytes=142 src=8.8.8.8 dst=192.168.3.56 sport=53 dport=51556 packets=2 bytes=416 [ASSURED] mark=0 zone=0 use=2\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write conntrack file: %v", err)
	}

	c := NewCollector(path, []subnet.Subnet{mustSubnet(t, "192.168.3.")}, 5*time.Minute, nil)
	c.scan()

	local := netip.MustParseAddr("192.168.3.56")
	remote := netip.MustParseAddr("8.8.8.8")
	remotes := c.table.Remotes(local)
	tr, ok := remotes[remote]
	if !ok {
		t.Fatalf("expected traffic entry for %v -> %v", local, remote)
	}

	_, outRates := tr.SnapshotOutRates()
	_, inRates := tr.SnapshotInRates()
	_ = outRates
	_ = inRates
}

func TestScanPrunesDisappearedLocals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nf_conntrack")
	subnets := []subnet.Subnet{mustSubnet(t, "192.168.3.")}

	scan1 := "ipv4 2 udp 17 27 src=192.168.3.10 dst=1.1.1.1 sport=1 dport=2 packets=1 bytes=10\nipv4 2 udp 17 27 src=192.168.3.20 dst=1.1.1.1 sport=1 dport=2 packets=1 bytes=10\n"
	if err := os.WriteFile(path, []byte(scan1), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := NewCollector(path, subnets, 5*time.Minute, nil)
	c.scan()
	if len(c.table.Locals()) != 2 {
		t.Fatalf("Locals() = %v after scan1, want 2", c.table.Locals())
	}

	scan2 := "ipv4 2 udp 17 27 src=192.168.3.20 dst=1.1.1.1 sport=1 dport=2 packets=1 bytes=10\n"
	if err := os.WriteFile(path, []byte(scan2), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.scan()

	locals := c.table.Locals()
	want := netip.MustParseAddr("192.168.3.20")
	if len(locals) != 1 || locals[0] != want {
		t.Fatalf("Locals() = %v after scan2, want only %v", locals, want)
	}
}

func TestSnapshotRoundTripsThroughRunLoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nf_conntrack")
	if err := os.WriteFile(path, []byte(""), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := NewCollector(path, nil, 5*time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	table := c.Snapshot(context.Background())
	if table == nil {
		t.Fatal("Snapshot() returned nil")
	}
}
