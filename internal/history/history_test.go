package history

import (
	"math"
	"testing"
)

func TestPushEvictsOldest(t *testing.T) {
	w := New(3)
	for i := 0; i < 5; i++ {
		w.Push(float64(i), float64(i)*10)
	}
	if w.Len() != 3 {
		t.Fatalf("expected len 3, got %d", w.Len())
	}
	samples := w.Samples()
	if samples[0].T != 2 || samples[2].T != 4 {
		t.Fatalf("unexpected retained samples: %+v", samples)
	}
}

func TestCapacityFloor(t *testing.T) {
	w := New(0)
	if w.Cap() != 2 {
		t.Fatalf("expected capacity floor 2, got %d", w.Cap())
	}
}

func TestLastTwoOrdering(t *testing.T) {
	w := New(5)
	w.Push(1, 10)
	if _, _, ok := w.LastTwo(); ok {
		t.Fatalf("expected no pair with one sample")
	}
	w.Push(2, 20)
	s1, s2, ok := w.LastTwo()
	if !ok || s1.T != 1 || s2.T != 2 {
		t.Fatalf("unexpected pair: %+v %+v ok=%v", s1, s2, ok)
	}
}

func TestExtendLinear(t *testing.T) {
	w := New(5)
	w.Push(1, 74.0)
	w.Push(2, 75.0)
	v, ok := w.ExtendLinear(3)
	if !ok {
		t.Fatalf("expected extension with two samples")
	}
	if math.Abs(v-76.0) > 1e-9 {
		t.Fatalf("expected 76.0, got %v", v)
	}
}

func TestExtendLinearZeroDt(t *testing.T) {
	w := New(5)
	w.Push(1, 10)
	w.Push(1, 12)
	v, ok := w.ExtendLinear(2)
	if !ok || v != 12 {
		t.Fatalf("expected most recent value on zero dt, got %v ok=%v", v, ok)
	}
}

func TestMeanAndStddev(t *testing.T) {
	w := New(10)
	for i, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Push(float64(i), v)
	}
	mean, ok := w.Mean()
	if !ok || mean != 5 {
		t.Fatalf("expected mean 5, got %v ok=%v", mean, ok)
	}
	stddev, ok := w.Stddev()
	if !ok || math.Abs(stddev-2) > 1e-9 {
		t.Fatalf("expected stddev 2, got %v ok=%v", stddev, ok)
	}
}

func TestEmptyWindow(t *testing.T) {
	w := New(5)
	if _, ok := w.Last(); ok {
		t.Fatalf("expected no last sample")
	}
	if _, ok := w.Mean(); ok {
		t.Fatalf("expected no mean")
	}
	if _, ok := w.ExtendLinear(1); ok {
		t.Fatalf("expected no extension")
	}
}
