package packet

import (
	"sync"

	"github.com/meridian3/downlink/internal/telemetry"
)

// Packetizer wraps raw frames into transmission packets. Encoding is
// deterministic apart from the monotonic packet id counter, which starts
// at 0 and survives statistics resets.
type Packetizer struct {
	encoding string

	mu         sync.Mutex
	nextID     uint64
	totalCount uint64
	totalBytes uint64
}

// NewPacketizer returns a packetizer using the given payload encoding tag.
// An empty tag selects EncodingRaw.
func NewPacketizer(encoding string) *Packetizer {
	if encoding == "" {
		encoding = EncodingRaw
	}
	return &Packetizer{encoding: encoding}
}

// Encode wraps one frame into a packet, assigning the next packet id,
// evaluating the priority rules and computing size and checksum. Fields
// missing from the frame are passed through as absent.
func (pz *Packetizer) Encode(f telemetry.RawFrame) *Packet {
	pz.mu.Lock()
	id := pz.nextID
	pz.nextID++
	pz.mu.Unlock()

	p := &Packet{
		Header: Header{
			PacketID:  id,
			Timestamp: f.Timestamp,
			FrameID:   f.FrameID,
			Encoding:  pz.encoding,
			Priority:  priorityFor(f),
		},
		Payload: FromFrame(f),
	}
	body := canonicalBytes(p)
	p.Header.Size = len(body)
	p.Footer = Footer{
		Checksum:         Checksum(p),
		TransmissionTime: f.Timestamp,
	}

	pz.mu.Lock()
	pz.totalCount++
	pz.totalBytes += uint64(p.Header.Size)
	pz.mu.Unlock()
	return p
}

// Stats is a read-only snapshot of packetizer counters.
type Stats struct {
	TotalPackets  uint64
	TotalBytes    uint64
	AvgPacketSize float64
}

// Statistics returns a snapshot of the running counters. Safe to poll at
// any time; no side effects.
func (pz *Packetizer) Statistics() Stats {
	pz.mu.Lock()
	defer pz.mu.Unlock()
	s := Stats{TotalPackets: pz.totalCount, TotalBytes: pz.totalBytes}
	if pz.totalCount > 0 {
		s.AvgPacketSize = float64(pz.totalBytes) / float64(pz.totalCount)
	}
	return s
}

// ResetStatistics clears the byte and packet counters. The packet id
// counter is sequencing state, not a statistic, and is preserved.
func (pz *Packetizer) ResetStatistics() {
	pz.mu.Lock()
	pz.totalCount = 0
	pz.totalBytes = 0
	pz.mu.Unlock()
}
