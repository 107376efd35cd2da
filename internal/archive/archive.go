// Package archive owns labeled-frame retention for audit and playback.
// Persistent backends live outside this module; the in-memory store here
// is the reference consumer every pipeline delivers into.
package archive

import (
	"errors"
	"sync"

	"github.com/meridian3/downlink/internal/telemetry"
)

var ErrInvalidCapacity = errors.New("archive: capacity must be positive")

// Archive accepts labeled clean frames in per-stream processing order.
// Implementations must accept all quality tiers and preserve repair and
// anomaly metadata verbatim.
type Archive interface {
	Store(streamID string, frame telemetry.CleanFrame) error
}

// MemoryStore is a bounded in-memory archive. Oldest frames are evicted
// when a stream exceeds capacity.
type MemoryStore struct {
	capacity int

	mu      sync.RWMutex
	streams map[string][]telemetry.CleanFrame
	stored  uint64
	evicted uint64
}

// NewMemoryStore returns an archive holding at most capacity frames per
// stream.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		streams:  make(map[string][]telemetry.CleanFrame),
	}, nil
}

// Store appends one frame to a stream's timeline.
func (s *MemoryStore) Store(streamID string, frame telemetry.CleanFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.streams[streamID]
	if len(buf) >= s.capacity {
		buf = buf[1:]
		s.evicted++
	}
	s.streams[streamID] = append(buf, frame)
	s.stored++
	return nil
}

// Latest returns up to count most recent frames of a stream, oldest
// first. The returned slice is a copy.
func (s *MemoryStore) Latest(streamID string, count int) []telemetry.CleanFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.streams[streamID]
	if count <= 0 || count > len(buf) {
		count = len(buf)
	}
	out := make([]telemetry.CleanFrame, count)
	copy(out, buf[len(buf)-count:])
	return out
}

// QueryRange returns frames with from <= timestamp <= to, in storage
// order.
func (s *MemoryStore) QueryRange(streamID string, from, to float64) []telemetry.CleanFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []telemetry.CleanFrame
	for _, f := range s.streams[streamID] {
		if f.Timestamp >= from && f.Timestamp <= to {
			out = append(out, f)
		}
	}
	return out
}

// Anomalies returns up to limit archived anomalies of the given severity,
// in storage order. limit <= 0 means no limit.
func (s *MemoryStore) Anomalies(streamID string, severity telemetry.Severity, limit int) []telemetry.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []telemetry.Anomaly
	for _, f := range s.streams[streamID] {
		for _, a := range f.Meta.Anomalies {
			if a.Severity != severity {
				continue
			}
			out = append(out, a)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}

// Stats is a read-only snapshot of archive counters.
type Stats struct {
	Streams      int
	FramesStored uint64
	Evicted      uint64
}

// Statistics returns the running counters, pollable at any time.
func (s *MemoryStore) Statistics() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Streams: len(s.streams), FramesStored: s.stored, Evicted: s.evicted}
}
