// Package rrd implements a fixed-capacity, ring-buffered, timestamp-indexed
// time series (a "round-robin database"). It handles bucketing, merge of
// samples landing in the same bucket, interpolation across gaps, truncation
// of far-future writes, and bounded retention.
package rrd

import "time"

// Entry is the capability required of values stored in an RRD: the zero
// value must be a sane "no data yet" placeholder, and the type must know how
// to merge with a peer sample landing in the same bucket (Combine) and how
// to backfill a bucket between a known previous sample and itself
// (Interpolate).
type Entry[E any] interface {
	// Combine merges the receiver (the newly observed sample) with other,
	// the sample already occupying the bucket, and returns the merged value.
	Combine(other E) E

	// Interpolate returns the value to store at a bucket `index` steps past
	// previous, out of `steps` total buckets between previous and the
	// receiver (the new, known-current sample).
	Interpolate(previous E, index, steps int) E
}

// Sample pairs a bucket's aligned timestamp with its value.
type Sample[E any] struct {
	Timestamp time.Time
	Value     E
}

// RRD is a fixed-length ring of E, addressed by bucket-aligned timestamps.
type RRD[E Entry[E]] struct {
	resolution     time.Duration
	firstTimestamp time.Time
	firstIndex     int
	lastIndex      int
	ring           []E
}

// floorToBucket aligns t down to the nearest multiple of resolution,
// measured from the Unix epoch.
func floorToBucket(t time.Time, resolution time.Duration) time.Time {
	n := t.UnixNano()
	r := resolution.Nanoseconds()
	rem := n % r
	if rem < 0 {
		rem += r
	}
	return time.Unix(0, n-rem).UTC()
}

// floorDiv returns floor(num / den) for a positive den.
func floorDiv(num, den time.Duration) int {
	q := num / den
	if num%den != 0 && num < 0 {
		q--
	}
	return int(q)
}

// New constructs an RRD starting at start, bucketed every resolution, and
// retaining a total of retain worth of history. Panics if resolution <= 0 or
// if retain does not cover at least one bucket: both are programmer errors
// (configuration is validated before this is ever called).
func New[E Entry[E]](start time.Time, resolution, retain time.Duration) *RRD[E] {
	if resolution <= 0 {
		panic("rrd: resolution must be positive")
	}
	length := int(retain / resolution)
	if length < 1 {
		panic("rrd: retain must cover at least one bucket")
	}

	return &RRD[E]{
		resolution:     resolution,
		firstTimestamp: floorToBucket(start, resolution),
		firstIndex:     0,
		lastIndex:      0,
		ring:           make([]E, length),
	}
}

// Len returns the number of occupied buckets, always in [1, cap].
func (r *RRD[E]) Len() int {
	if r.firstIndex <= r.lastIndex {
		return r.lastIndex - r.firstIndex + 1
	}
	return len(r.ring) - r.firstIndex + r.lastIndex + 1
}

// Cap returns the ring's fixed capacity (retain / resolution).
func (r *RRD[E]) Cap() int {
	return len(r.ring)
}

// Resolution returns the bucket width.
func (r *RRD[E]) Resolution() time.Duration {
	return r.resolution
}

// FirstTimestamp returns the bucket boundary of the oldest occupied bucket.
func (r *RRD[E]) FirstTimestamp() time.Time {
	return r.firstTimestamp
}

// LastTimestamp returns the bucket boundary of the newest occupied bucket.
func (r *RRD[E]) LastTimestamp() time.Time {
	n := len(r.ring)
	if r.firstIndex <= r.lastIndex {
		return r.firstTimestamp.Add(r.resolution * time.Duration(r.lastIndex-r.firstIndex))
	}
	return r.firstTimestamp.Add(r.resolution * time.Duration(n-r.firstIndex+r.lastIndex))
}

// Get returns the i-th sample counting from FirstTimestamp, or false if i is
// out of range.
func (r *RRD[E]) Get(i int) (Sample[E], bool) {
	n := r.Len()
	if i < 0 || i >= n {
		return Sample[E]{}, false
	}
	idx := (r.firstIndex + i) % len(r.ring)
	return Sample[E]{
		Timestamp: r.firstTimestamp.Add(r.resolution * time.Duration(i)),
		Value:     r.ring[idx],
	}, true
}

// Iter returns every occupied sample in chronological order, stepping by
// Resolution from FirstTimestamp to LastTimestamp inclusive.
func (r *RRD[E]) Iter() []Sample[E] {
	n := r.Len()
	samples := make([]Sample[E], n)
	for i := 0; i < n; i++ {
		idx := (r.firstIndex + i) % len(r.ring)
		samples[i] = Sample[E]{
			Timestamp: r.firstTimestamp.Add(r.resolution * time.Duration(i)),
			Value:     r.ring[idx],
		}
	}
	return samples
}

// Put writes entry at timestamp t, merging, backfilling or truncating as
// needed. It returns false (a no-op) when t falls before FirstTimestamp.
func (r *RRD[E]) Put(t time.Time, entry E) bool {
	if t.Before(r.firstTimestamp) {
		return false
	}

	n := len(r.ring)
	delta := floorDiv(t.Sub(r.LastTimestamp()), r.resolution)

	switch {
	case delta <= 0:
		idx := ((r.lastIndex+delta)%n + n) % n
		r.ring[idx] = entry.Combine(r.ring[idx])
		return true

	case delta < n:
		last := r.ring[r.lastIndex]
		full := r.Len() == n
		for i := 1; i <= delta; i++ {
			r.lastIndex = (r.lastIndex + 1) % n
			if full {
				r.firstIndex = (r.firstIndex + 1) % n
				r.firstTimestamp = r.firstTimestamp.Add(r.resolution)
			} else {
				full = r.Len() == n
			}
			r.ring[r.lastIndex] = entry.Interpolate(last, i, delta)
		}
		return true

	default:
		last := r.ring[r.lastIndex]
		end := floorToBucket(t, r.resolution)
		r.firstIndex = 0
		r.lastIndex = n - 1
		r.firstTimestamp = end.Add(-r.resolution * time.Duration(n-1))
		for i := 0; i < n; i++ {
			r.ring[i] = entry.Interpolate(last, delta-(n-1-i), delta)
		}
		return true
	}
}
