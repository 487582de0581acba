package conntrack

import (
	"context"
	"net/netip"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/untoldwind/nftracker/metrics"
	"github.com/untoldwind/nftracker/subnet"
)

const scanInterval = 500 * time.Millisecond

// Collector periodically scans a conntrack file and drives a Table. It owns
// its Table exclusively; reads from other goroutines go through Snapshot,
// which round-trips through the collector's own run loop so no mutable
// state ever crosses a goroutine boundary directly.
type Collector struct {
	path    string
	subnets []subnet.Subnet
	table   *Table
	logger  log.Logger
	metrics *metrics.Metrics

	requests chan chan *Table
}

// NewCollector constructs a Collector reading conntrack records from path,
// classifying flows against subnets, and retaining retain worth of history
// per Local→Remote pair.
func NewCollector(path string, subnets []subnet.Subnet, retain time.Duration, logger log.Logger) *Collector {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Collector{
		path:     path,
		subnets:  subnets,
		table:    NewTable(retain),
		logger:   logger,
		requests: make(chan chan *Table),
	}
}

// WithMetrics attaches a metrics set; a nil set leaves the collector
// unobserved.
func (c *Collector) WithMetrics(m *metrics.Metrics) *Collector {
	c.metrics = m
	return c
}

// Run drives the collector's scan/re-arm loop until ctx is canceled. It
// re-arms the scan timer unconditionally 500ms after the previous scan
// completed, so a slow scan naturally stretches the effective interval
// rather than queuing missed ticks.
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
			reply <- c.table
		}
	}
}

// Snapshot returns the live Table for reading, round-tripping the request
// through the collector's own goroutine so the caller never touches the
// Table concurrently with a scan. Returns nil if ctx is canceled before the
// collector's run loop answers (e.g. it has already been stopped).
func (c *Collector) Snapshot(ctx context.Context) *Table {
	reply := make(chan *Table, 1)
	select {
	case c.requests <- reply:
	case <-ctx.Done():
		return nil
	}
	select {
	case table := <-reply:
		return table
	case <-ctx.Done():
		return nil
	}
}

func (c *Collector) scan() {
	file, err := os.Open(c.path)
	if err != nil {
		level.Error(c.logger).Log("msg", "open conntrack file failed", "path", c.path, "err", err)
		c.metrics.ScanFailed("conntrack")
		return
	}
	defer file.Close()

	now := time.Now()
	observed := make(map[netip.Addr]struct{})

	err = Parse(file, func(entry Entry) {
		c.classify(now, entry, observed)
	}, func(lineNo int, err error) {
		level.Debug(c.logger).Log("msg", "invalid conntrack entry", "line", lineNo, "err", err)
		c.metrics.ParseError("conntrack")
	})
	if err != nil {
		level.Error(c.logger).Log("msg", "scan conntrack file failed", "path", c.path, "err", err)
		c.metrics.ScanFailed("conntrack")
		return
	}

	c.table.Prune(observed)
	c.metrics.ScanCompleted("conntrack", time.Since(now).Seconds())
	c.metrics.SetTableSize(c.table.Size())
}

// classify matches one parsed flow against the configured local subnets.
// Subnets are scanned in order against src first; only if no subnet
// contains src is the whole list scanned again against dst. At most one
// side is ever chosen, and a flow matching neither is skipped.
func (c *Collector) classify(now time.Time, entry Entry, observed map[netip.Addr]struct{}) {
	src, err := netip.ParseAddr(entry.Src)
	if err != nil {
		return
	}
	dst, err := netip.ParseAddr(entry.Dst)
	if err != nil {
		return
	}

	for _, sn := range c.subnets {
		if sn.Contains(src) {
			c.table.PushOut(now, src, dst, entry.Bytes, entry.Packets)
			observed[src] = struct{}{}
			return
		}
	}
	for _, sn := range c.subnets {
		if sn.Contains(dst) {
			c.table.PushIn(now, dst, src, entry.Bytes, entry.Packets)
			observed[dst] = struct{}{}
			return
		}
	}
}
