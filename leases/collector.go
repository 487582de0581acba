package leases

import (
	"context"
	"net/netip"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/untoldwind/nftracker/metrics"
)

const scanInterval = 500 * time.Millisecond

// Collector periodically re-reads a DHCP lease file and exposes the latest
// set of leases as a read-only snapshot keyed by address. Unlike the
// conntrack and device collectors it holds no running series: each scan
// simply replaces the previous lease list wholesale.
type Collector struct {
	path   string
	leases  []Lease
	logger  log.Logger
	metrics *metrics.Metrics

	requests chan chan map[netip.Addr]Lease
}

// NewCollector constructs a Collector reading leases from path.
func NewCollector(path string, logger log.Logger) *Collector {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Collector{
		path:     path,
		logger:   logger,
		requests: make(chan chan map[netip.Addr]Lease),
	}
}

// WithMetrics attaches a metrics set; a nil set leaves the collector
// unobserved.
func (c *Collector) WithMetrics(m *metrics.Metrics) *Collector {
	c.metrics = m
	return c
}

// Run drives the collector's scan/re-arm loop until ctx is canceled.
func (c *Collector) Run(ctx context.Context) {
	timer := time.NewTimer(scanInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.scan()
			timer.Reset(scanInterval)
		case reply := <-c.requests:
			reply <- c.snapshotLocked()
		}
	}
}

// Snapshot returns a read-only copy of the current address→lease map,
// round-tripped through the collector's own goroutine. Returns nil if ctx
// is canceled before the collector answers.
func (c *Collector) Snapshot(ctx context.Context) map[netip.Addr]Lease {
	reply := make(chan map[netip.Addr]Lease, 1)
	select {
	case c.requests <- reply:
	case <-ctx.Done():
		return nil
	}
	select {
	case snapshot := <-reply:
		return snapshot
	case <-ctx.Done():
		return nil
	}
}

func (c *Collector) snapshotLocked() map[netip.Addr]Lease {
	snapshot := make(map[netip.Addr]Lease, len(c.leases))
	for _, lease := range c.leases {
		snapshot[lease.Addr] = lease
	}
	return snapshot
}

func (c *Collector) scan() {
	file, err := os.Open(c.path)
	if err != nil {
		level.Error(c.logger).Log("msg", "open leases file failed", "path", c.path, "err", err)
		c.metrics.ScanFailed("leases")
		return
	}
	defer file.Close()

	start := time.Now()

	var leases []Lease
	err = Parse(file, func(lease Lease) {
		leases = append(leases, lease)
	}, func(lineNo int, err error) {
		level.Debug(c.logger).Log("msg", "invalid lease entry", "line", lineNo, "err", err)
		c.metrics.ParseError("leases")
	})
	if err != nil {
		level.Error(c.logger).Log("msg", "scan leases file failed", "path", c.path, "err", err)
		c.metrics.ScanFailed("leases")
		return
	}

	c.leases = leases
	c.metrics.ScanCompleted("leases", time.Since(start).Seconds())
	c.metrics.SetLeaseCount(len(leases))
}
