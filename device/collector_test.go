package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const devBody = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:  123      2    0    0    0     0          0         0   123      2    0    0    0     0       0          0
  eth0:  1000    10    0    0    0     0          0         6   2000    20    0    0    0     0       0          0
`

func TestScanTracksOnlyConfiguredInterface(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev")
	if err := os.WriteFile(path, []byte(devBody), 0600); err != nil {
		t.Fatalf("write device file: %v", err)
	}

	c := NewCollector(path, "eth0", time.Minute, nil)
	c.scan()

	if got := c.traffic; got == nil {
		t.Fatal("collector lost its traffic pair")
	}
	first, rates := c.traffic.SnapshotInRates()
	if first.IsZero() {
		t.Fatal("SnapshotInRates() first timestamp is zero")
	}
	for _, r := range rates {
		if r.BytesPerSec != 0 || r.PacketsPerSec != 0 {
			t.Fatalf("rates = %v, want all zero within a single scan", rates)
		}
	}
}

func TestScanSurvivesMissingFile(t *testing.T) {
	c := NewCollector(filepath.Join(t.TempDir(), "missing"), "eth0", time.Minute, nil)
	c.scan()
}

func TestSnapshotRoundTripsThroughRunLoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev")
	if err := os.WriteFile(path, []byte(devBody), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := NewCollector(path, "eth0", time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	tr := c.Snapshot(context.Background())
	if tr == nil {
		t.Fatal("Snapshot() returned nil")
	}
}
