package device

import (
	"context"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/untoldwind/nftracker/metrics"
	"github.com/untoldwind/nftracker/traffic"
)

const scanInterval = 500 * time.Millisecond

// Collector periodically scans /proc/net/dev and drives a single Traffic
// for the configured WAN interface. It owns that Traffic exclusively; reads
// from other goroutines go through Snapshot, round-tripped through the
// collector's own run loop.
type Collector struct {
	path    string
	iface   string
	traffic *traffic.Traffic
	logger  log.Logger
	metrics *metrics.Metrics

	requests chan chan *traffic.Traffic
}

// NewCollector constructs a Collector reading interface counters from path,
// tracking only iface, and retaining retain worth of history.
func NewCollector(path, iface string, retain time.Duration, logger log.Logger) *Collector {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Collector{
		path:     path,
		iface:    iface,
		traffic:  traffic.New(retain),
		logger:   logger,
		requests: make(chan chan *traffic.Traffic),
	}
}

// WithMetrics attaches a metrics set; a nil set leaves the collector
// unobserved.
func (c *Collector) WithMetrics(m *metrics.Metrics) *Collector {
	c.metrics = m
	return c
}

// Run drives the collector's scan/re-arm loop until ctx is canceled,
// re-arming the scan timer unconditionally 500ms after the previous scan
// completed.
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
			reply <- c.traffic
		}
	}
}

// Snapshot returns the live Traffic for reading, round-tripping the request
// through the collector's own goroutine. Returns nil if ctx is canceled
// before the collector answers.
func (c *Collector) Snapshot(ctx context.Context) *traffic.Traffic {
	reply := make(chan *traffic.Traffic, 1)
	select {
	case c.requests <- reply:
	case <-ctx.Done():
		return nil
	}
	select {
	case t := <-reply:
		return t
	case <-ctx.Done():
		return nil
	}
}

func (c *Collector) scan() {
	file, err := os.Open(c.path)
	if err != nil {
		level.Error(c.logger).Log("msg", "open device file failed", "path", c.path, "err", err)
		c.metrics.ScanFailed("device")
		return
	}
	defer file.Close()

	now := time.Now()

	err = Parse(file, func(stats Stats) {
		if stats.Interface != c.iface {
			return
		}
		c.traffic.PutIn(now, stats.ReceiveBytes, stats.ReceivePackets)
		c.traffic.PutOut(now, stats.TransmitBytes, stats.TransmitPackets)
	}, func(lineNo int, err error) {
		level.Debug(c.logger).Log("msg", "invalid device line", "line", lineNo, "err", err)
		c.metrics.ParseError("device")
	})
	if err != nil {
		level.Error(c.logger).Log("msg", "scan device file failed", "path", c.path, "err", err)
		c.metrics.ScanFailed("device")
		return
	}

	c.metrics.ScanCompleted("device", time.Since(now).Seconds())
}
