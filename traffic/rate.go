package traffic

import (
	"time"

	"github.com/untoldwind/nftracker/rrd"
)

// Rate is a derived (bytes/sec, packets/sec) sample, computed from two
// successive cumulative Counter samples.
type Rate struct {
	BytesPerSec   uint64
	PacketsPerSec uint64
}

// RateFromCounters derives a Rate from two timestamped counters. If the gap
// between them is under a second the rate is zero (too noisy to be
// meaningful). A per-field decrease is treated as the underlying flow having
// been replaced: the rate is reported as the new cumulative value divided by
// the elapsed time rather than going negative.
func RateFromCounters(prev, current rrd.Sample[Counter]) Rate {
	secs := int64(current.Timestamp.Sub(prev.Timestamp) / time.Second)
	if secs < 1 {
		return Rate{}
	}

	return Rate{
		BytesPerSec:   rateField(prev.Value.Bytes, current.Value.Bytes, uint64(secs)),
		PacketsPerSec: rateField(prev.Value.Packets, current.Value.Packets, uint64(secs)),
	}
}

func rateField(prev, current, secs uint64) uint64 {
	if current >= prev {
		return (current - prev) / secs
	}
	return current / secs
}
