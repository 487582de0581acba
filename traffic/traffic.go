package traffic

import (
	"time"

	"github.com/untoldwind/nftracker/rrd"
)

// Traffic owns the inbound and outbound RRDs for a single endpoint or
// endpoint-pair. Both run at one-second resolution; only the retention
// window is caller-configurable.
type Traffic struct {
	in  *rrd.RRD[Counter]
	out *rrd.RRD[Counter]
}

// New constructs a Traffic pair anchored at the current wall clock,
// retaining retain worth of one-second buckets in each direction.
func New(retain time.Duration) *Traffic {
	now := time.Now()
	return &Traffic{
		in:  rrd.New[Counter](now, time.Second, retain),
		out: rrd.New[Counter](now, time.Second, retain),
	}
}

// PutIn records an inbound cumulative sample at ts.
func (t *Traffic) PutIn(ts time.Time, bytes, packets uint64) bool {
	return t.in.Put(ts, Counter{Bytes: bytes, Packets: packets})
}

// PutOut records an outbound cumulative sample at ts.
func (t *Traffic) PutOut(ts time.Time, bytes, packets uint64) bool {
	return t.out.Put(ts, Counter{Bytes: bytes, Packets: packets})
}

// SnapshotInRates returns the inbound rate series: the first bucket's
// timestamp and len(RRD)-1 rate samples derived from adjacent counters.
func (t *Traffic) SnapshotInRates() (time.Time, []Rate) {
	return snapshotRates(t.in)
}

// SnapshotOutRates returns the outbound rate series, shaped the same as
// SnapshotInRates.
func (t *Traffic) SnapshotOutRates() (time.Time, []Rate) {
	return snapshotRates(t.out)
}

func snapshotRates(r *rrd.RRD[Counter]) (time.Time, []Rate) {
	samples := r.Iter()
	if len(samples) == 0 {
		return r.FirstTimestamp(), nil
	}
	rates := make([]Rate, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		rates = append(rates, RateFromCounters(samples[i-1], samples[i]))
	}
	return r.FirstTimestamp(), rates
}
