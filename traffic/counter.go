// Package traffic implements the cumulative/rate counter pair tracked per
// endpoint, built on top of the rrd package.
package traffic

// Counter is a cumulative (bytes, packets) sample taken from a conntrack
// flow or an interface counter. Values are monotone-non-decreasing within
// the lifetime of a single flow or interface; a decrease signals the
// counter was replaced (a new flow, an interface reset) rather than wrapped.
type Counter struct {
	Bytes   uint64
	Packets uint64
}

// Combine merges two samples landing in the same bucket by keeping the
// larger (i.e. newer, since counters are cumulative) value per field.
func (c Counter) Combine(other Counter) Counter {
	return Counter{
		Bytes:   max(c.Bytes, other.Bytes),
		Packets: max(c.Packets, other.Packets),
	}
}

// Interpolate backfills a bucket between a known previous sample and the
// receiver (the new, current sample), at step index of steps total. A
// per-field decrease is treated as the counter having been replaced by a new
// flow starting from zero: that field is backfilled from zero toward the
// receiver instead of from previous.
func (c Counter) Interpolate(previous Counter, index, steps int) Counter {
	if c.Bytes < previous.Bytes {
		previous.Bytes = 0
	}
	if c.Packets < previous.Packets {
		previous.Packets = 0
	}
	return Counter{
		Bytes:   previous.Bytes + (c.Bytes-previous.Bytes)*uint64(index)/uint64(steps),
		Packets: previous.Packets + (c.Packets-previous.Packets)*uint64(index)/uint64(steps),
	}
}
