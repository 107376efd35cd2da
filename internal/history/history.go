// Package history owns the bounded per-field rolling windows used by the
// cleaning and detection stages. Each (field, stage) pair gets its own
// Window; windows are never shared across stages.
package history

import "math"

// Sample is one (timestamp, value) observation.
type Sample struct {
	T float64
	V float64
}

// Window is a bounded, time-ordered buffer of recent samples. Pushing past
// capacity evicts the oldest sample. The zero value is unusable; use New.
type Window struct {
	cap     int
	samples []Sample
}

// New returns a window holding at most capacity samples. Capacity below 2
// is raised to 2: one sample can never support interpolation.
func New(capacity int) *Window {
	if capacity < 2 {
		capacity = 2
	}
	return &Window{cap: capacity, samples: make([]Sample, 0, capacity)}
}

// Push appends a sample, evicting the oldest if the window is full.
func (w *Window) Push(t, v float64) {
	if len(w.samples) == w.cap {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.cap-1]
	}
	w.samples = append(w.samples, Sample{T: t, V: v})
}

// Len returns the number of stored samples.
func (w *Window) Len() int { return len(w.samples) }

// Cap returns the window capacity.
func (w *Window) Cap() int { return w.cap }

// Last returns the most recent sample. ok is false on an empty window.
func (w *Window) Last() (Sample, bool) {
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

// LastTwo returns the two most recent samples, oldest first. ok is false
// when fewer than two samples are stored.
func (w *Window) LastTwo() (s1, s2 Sample, ok bool) {
	n := len(w.samples)
	if n < 2 {
		return Sample{}, Sample{}, false
	}
	return w.samples[n-2], w.samples[n-1], true
}

// ExtendLinear evaluates the line through the two most recent samples at
// time t. When the samples share a timestamp the most recent value is
// returned unchanged. ok is false with fewer than two samples.
func (w *Window) ExtendLinear(t float64) (float64, bool) {
	s1, s2, ok := w.LastTwo()
	if !ok {
		return 0, false
	}
	dt := s2.T - s1.T
	if dt == 0 {
		return s2.V, true
	}
	slope := (s2.V - s1.V) / dt
	return s2.V + slope*(t-s2.T), true
}

// Mean returns the arithmetic mean over the window. ok is false on an
// empty window.
func (w *Window) Mean() (float64, bool) {
	if len(w.samples) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range w.samples {
		sum += s.V
	}
	return sum / float64(len(w.samples)), true
}

// Stddev returns the population standard deviation over the window. ok is
// false on an empty window.
func (w *Window) Stddev() (float64, bool) {
	mean, ok := w.Mean()
	if !ok {
		return 0, false
	}
	var sum float64
	for _, s := range w.samples {
		d := s.V - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(w.samples))), true
}

// Samples returns a copy of the stored samples, oldest first.
func (w *Window) Samples() []Sample {
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}
