package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/meridian3/downlink/internal/archive"
	"github.com/meridian3/downlink/internal/telemetry"
)

// deliveryQueue decouples the pipeline from the archive while preserving
// per-stream order. Archive failures are logged and dropped; they never
// roll back already-computed pipeline state.
type deliveryQueue struct {
	streamID string
	sink     archive.Archive
	ch       chan telemetry.CleanFrame
	done     chan struct{}
	log      zerolog.Logger
}

const deliveryBuffer = 128

func newDeliveryQueue(streamID string, sink archive.Archive, logger zerolog.Logger) *deliveryQueue {
	q := &deliveryQueue{
		streamID: streamID,
		sink:     sink,
		ch:       make(chan telemetry.CleanFrame, deliveryBuffer),
		done:     make(chan struct{}),
		log:      logger,
	}
	go q.run()
	return q
}

func (q *deliveryQueue) run() {
	defer close(q.done)
	for frame := range q.ch {
		if err := q.sink.Store(q.streamID, frame); err != nil {
			q.log.Warn().Err(err).Float64("timestamp", frame.Timestamp).
				Msg("archive delivery failed; frame dropped")
		}
	}
}

// enqueue blocks when the buffer is full; order matters more than
// latency here.
func (q *deliveryQueue) enqueue(frame telemetry.CleanFrame) {
	q.ch <- frame
}

// close flushes the queue and waits for the consumer to finish.
func (q *deliveryQueue) close() {
	close(q.ch)
	<-q.done
}
