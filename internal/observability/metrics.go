package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "pipeline",
			Name:      "frames_total",
			Help:      "Frames admitted to the pipeline.",
		},
		[]string{"stream"},
	)
	packetsLost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "link",
			Name:      "packets_lost_total",
			Help:      "Packets dropped by the simulated link.",
		},
		[]string{"stream"},
	)
	fieldsCorrupted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "link",
			Name:      "fields_corrupted_total",
			Help:      "Payload fields altered by the simulated link.",
		},
		[]string{"stream"},
	)
	repairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "cleaner",
			Name:      "repairs_total",
			Help:      "Field repairs by method.",
		},
		[]string{"stream", "method"},
	)
	checksumFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "cleaner",
			Name:      "checksum_failures_total",
			Help:      "Packets whose recomputed digest mismatched.",
		},
		[]string{"stream"},
	)
	unrecoverableFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "cleaner",
			Name:      "unrecoverable_total",
			Help:      "Lost packets with too little history to synthesize.",
		},
		[]string{"stream"},
	)
	anomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downlink",
			Subsystem: "detector",
			Name:      "anomalies_total",
			Help:      "Anomalies by kind and severity.",
		},
		[]string{"stream", "kind", "severity"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesProcessed, packetsLost, fieldsCorrupted,
			repairs, checksumFailures, unrecoverableFrames, anomalies,
		)
	})
}

func RecordFrame(stream string) {
	RegisterMetrics()
	framesProcessed.WithLabelValues(stream).Inc()
}

func RecordLoss(stream string) {
	RegisterMetrics()
	packetsLost.WithLabelValues(stream).Inc()
}

func RecordCorruptedFields(stream string, n int) {
	RegisterMetrics()
	fieldsCorrupted.WithLabelValues(stream).Add(float64(n))
}

func RecordRepair(stream, method string) {
	RegisterMetrics()
	repairs.WithLabelValues(stream, method).Inc()
}

func RecordChecksumFailure(stream string) {
	RegisterMetrics()
	checksumFailures.WithLabelValues(stream).Inc()
}

func RecordUnrecoverable(stream string) {
	RegisterMetrics()
	unrecoverableFrames.WithLabelValues(stream).Inc()
}

func RecordAnomaly(stream, kind, severity string) {
	RegisterMetrics()
	anomalies.WithLabelValues(stream, kind, severity).Inc()
}
