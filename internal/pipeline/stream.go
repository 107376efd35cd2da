package pipeline

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian3/downlink/internal/anomaly"
	"github.com/meridian3/downlink/internal/archive"
	"github.com/meridian3/downlink/internal/cleaner"
	"github.com/meridian3/downlink/internal/config"
	"github.com/meridian3/downlink/internal/corruptor"
	"github.com/meridian3/downlink/internal/observability"
	"github.com/meridian3/downlink/internal/packet"
	"github.com/meridian3/downlink/internal/telemetry"
)

// Stream is one degradation-and-recovery pipeline instance. Not safe for
// concurrent Process calls; per-stream ordering is the caller's contract.
type Stream struct {
	id         string
	name       string
	packetizer *packet.Packetizer
	corruptor  *corruptor.Corruptor
	cleaner    *cleaner.Cleaner
	detector   *anomaly.Detector
	delivery   *deliveryQueue
	log        zerolog.Logger
}

// New builds a stream from validated configuration. A nil sink disables
// archive delivery. Construction fails fast on any malformed stage
// config.
func New(cfg config.LinkConfig, table config.FieldTable, sink archive.Archive) (*Stream, error) {
	corr, err := corruptor.NewCorruptor(cfg.CorruptorConfig())
	if err != nil {
		return nil, err
	}
	cln, err := cleaner.NewCleaner(cfg.CleanerConfig(table))
	if err != nil {
		return nil, err
	}
	det, err := anomaly.NewDetector(cfg.DetectorConfig(table))
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Stream{
		id:         id,
		name:       cfg.Stream.Name,
		packetizer: packet.NewPacketizer(cfg.Stream.Encoding),
		corruptor:  corr,
		cleaner:    cln,
		detector:   det,
		log:        log.With().Str("stream", cfg.Stream.Name).Str("stream_id", id).Logger(),
	}
	if sink != nil {
		s.delivery = newDeliveryQueue(id, sink, s.log)
	}
	return s, nil
}

// ID returns the stream's unique identifier.
func (s *Stream) ID() string { return s.id }

// Process pushes one raw frame through the full chain and hands the
// labeled result to the archive queue. A lost packet without enough
// history surfaces cleaner.ErrInsufficientHistory; callers skip and
// continue.
func (s *Stream) Process(raw telemetry.RawFrame) (telemetry.CleanFrame, error) {
	observability.RecordFrame(s.name)

	pkt := s.packetizer.Encode(raw)
	delivered, lost := s.corruptor.Corrupt(pkt)
	if lost {
		observability.RecordLoss(s.name)
		s.log.Debug().Uint64("packet_id", pkt.Header.PacketID).Msg("packet lost")
	}

	clean, err := s.cleaner.Clean(delivered)
	if err != nil {
		observability.RecordUnrecoverable(s.name)
		return telemetry.CleanFrame{}, err
	}
	if !lost && !clean.Meta.ChecksumValid {
		observability.RecordChecksumFailure(s.name)
	}
	if delivered != nil && delivered.Footer.CorruptionDetected {
		observability.RecordCorruptedFields(s.name, len(clean.Meta.Repairs))
	}
	for _, r := range clean.Meta.Repairs {
		observability.RecordRepair(s.name, string(r.Method))
	}

	labeled := s.detector.Analyze(clean)
	for _, a := range labeled.Meta.Anomalies {
		observability.RecordAnomaly(s.name, string(a.Kind), string(a.Severity))
	}

	if s.delivery != nil {
		s.delivery.enqueue(labeled)
	}
	return labeled, nil
}

// Close flushes pending archive deliveries. The stream must not be used
// afterwards.
func (s *Stream) Close() {
	if s.delivery != nil {
		s.delivery.close()
	}
}

// Snapshot aggregates every stage's read-only statistics.
type Snapshot struct {
	Packetizer packet.Stats
	Corruptor  corruptor.Stats
	Cleaner    cleaner.Stats
	Detector   anomaly.Stats
}

// Statistics returns a combined diagnostics snapshot, pollable at any
// time with no side effects.
func (s *Stream) Statistics() Snapshot {
	return Snapshot{
		Packetizer: s.packetizer.Statistics(),
		Corruptor:  s.corruptor.Statistics(),
		Cleaner:    s.cleaner.Statistics(),
		Detector:   s.detector.Statistics(),
	}
}
