package rrd

import (
	"testing"
	"time"
)

// counter is a tiny Entry implementation used only by these tests; combine keeps the
// larger value (mirrors TrafficCounter's combine policy), interpolate walks
// linearly from previous toward the receiver.
type counter uint64

func (c counter) Combine(other counter) counter {
	if c > other {
		return c
	}
	return other
}

func (c counter) Interpolate(previous counter, index, steps int) counter {
	return previous + (c-previous)*counter(index)/counter(steps)
}

func TestNewEmpty(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New[counter](start, time.Second, 600*time.Second)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if !r.FirstTimestamp().Equal(r.LastTimestamp()) {
		t.Fatalf("FirstTimestamp() = %v, LastTimestamp() = %v, want equal", r.FirstTimestamp(), r.LastTimestamp())
	}
	if r.Cap() != 600 {
		t.Fatalf("Cap() = %d, want 600", r.Cap())
	}
}

func TestFillSinglePoints(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New[counter](start, time.Second, 600*time.Second)

	for i := 0; i < 500; i++ {
		ts := start.Add(time.Duration(2*i+1) * 500 * time.Millisecond)
		r.Put(ts, counter(100*i))
	}

	if !r.FirstTimestamp().Equal(start) {
		t.Fatalf("FirstTimestamp() = %v, want %v", r.FirstTimestamp(), start)
	}
	want := start.Add(499 * time.Second)
	if !r.LastTimestamp().Equal(want) {
		t.Fatalf("LastTimestamp() = %v, want %v", r.LastTimestamp(), want)
	}
	if r.Len() != 500 {
		t.Fatalf("Len() = %d, want 500", r.Len())
	}

	for i, s := range r.Iter() {
		wantTs := start.Add(time.Duration(i) * time.Second)
		if !s.Timestamp.Equal(wantTs) {
			t.Fatalf("iter[%d].Timestamp = %v, want %v", i, s.Timestamp, wantTs)
		}
		if s.Value != counter(100*i) {
			t.Fatalf("iter[%d].Value = %v, want %v", i, s.Value, counter(100*i))
		}
		got, ok := r.Get(i)
		if !ok || got.Value != counter(100*i) {
			t.Fatalf("Get(%d) = %v, %v, want %v, true", i, got, ok, counter(100*i))
		}
	}

	for i := 500; i < 1000; i++ {
		ts := start.Add(time.Duration(2*i+1) * 500 * time.Millisecond)
		r.Put(ts, counter(100*i))
	}

	if r.Len() != 600 {
		t.Fatalf("Len() = %d, want 600", r.Len())
	}
	wantFirst := start.Add(400 * time.Second)
	if !r.FirstTimestamp().Equal(wantFirst) {
		t.Fatalf("FirstTimestamp() = %v, want %v", r.FirstTimestamp(), wantFirst)
	}
	wantLast := start.Add(999 * time.Second)
	if !r.LastTimestamp().Equal(wantLast) {
		t.Fatalf("LastTimestamp() = %v, want %v", r.LastTimestamp(), wantLast)
	}

	for i, s := range r.Iter() {
		want := counter(100 * (i + 400))
		if s.Value != want {
			t.Fatalf("iter[%d].Value = %v, want %v", i, s.Value, want)
		}
	}
}

func TestFillDoublePoints(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New[counter](start, time.Second, 600*time.Second)

	for i := 0; i < 1000; i++ {
		ts := start.Add(time.Duration(2*i+1) * 250 * time.Millisecond)
		r.Put(ts, counter(100*i))
	}

	if !r.FirstTimestamp().Equal(start) {
		t.Fatalf("FirstTimestamp() = %v, want %v", r.FirstTimestamp(), start)
	}
	want := start.Add(499 * time.Second)
	if !r.LastTimestamp().Equal(want) {
		t.Fatalf("LastTimestamp() = %v, want %v", r.LastTimestamp(), want)
	}
	if r.Len() != 500 {
		t.Fatalf("Len() = %d, want 500", r.Len())
	}

	for j, s := range r.Iter() {
		wantVal := counter(100 * (2*j + 1))
		if s.Value != wantVal {
			t.Fatalf("iter[%d].Value = %v, want %v", j, s.Value, wantVal)
		}
	}
}

func TestFarFutureTruncation(t *testing.T) {
	t0 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New[counter](t0, time.Second, 10*time.Second)

	r.Put(t0, counter(0))
	r.Put(t0.Add(1000*time.Second), counter(1000))

	if r.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", r.Len())
	}
	wantLast := t0.Add(1000 * time.Second)
	if !r.LastTimestamp().Equal(wantLast) {
		t.Fatalf("LastTimestamp() = %v, want %v", r.LastTimestamp(), wantLast)
	}
	wantFirst := t0.Add(991 * time.Second)
	if !r.FirstTimestamp().Equal(wantFirst) {
		t.Fatalf("FirstTimestamp() = %v, want %v", r.FirstTimestamp(), wantFirst)
	}

	for i, s := range r.Iter() {
		want := counter(991 + i)
		if s.Value != want {
			t.Fatalf("iter[%d].Value = %v, want %v", i, s.Value, want)
		}
	}
}

func TestPutBeforeFirstIsNoop(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New[counter](start, time.Second, 600*time.Second)

	if r.Put(start.Add(-time.Second), counter(42)) {
		t.Fatal("Put before FirstTimestamp should return false")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d after rejected Put, want 1 (unchanged)", r.Len())
	}
}

func TestCombineIdempotence(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := New[counter](start, time.Second, 600*time.Second)
	r2 := New[counter](start, time.Second, 600*time.Second)

	r1.Put(start, counter(7))
	r2.Put(start, counter(7))
	r2.Put(start, counter(7))

	got1, _ := r1.Get(0)
	got2, _ := r2.Get(0)
	if got1.Value != got2.Value {
		t.Fatalf("repeated Put changed value: %v vs %v", got1.Value, got2.Value)
	}
}

func TestBucketAlignment(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 123000000, time.UTC)
	r := New[counter](start, time.Second, 600*time.Second)

	for _, s := range r.Iter() {
		if s.Timestamp.UnixNano()%int64(time.Second) != 0 {
			t.Fatalf("timestamp %v is not bucket-aligned", s.Timestamp)
		}
	}
}

func TestRingWrapEquivalence(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	retain := 10 * time.Second
	r := New[counter](start, time.Second, retain)

	for i := 0; i < 40; i++ {
		ts := start.Add(time.Duration(i) * 500 * time.Millisecond)
		r.Put(ts, counter(i))
	}

	if r.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", r.Len())
	}
	if r.LastTimestamp().Sub(r.FirstTimestamp()) != retain-time.Second {
		t.Fatalf("last-first = %v, want %v", r.LastTimestamp().Sub(r.FirstTimestamp()), retain-time.Second)
	}
}
