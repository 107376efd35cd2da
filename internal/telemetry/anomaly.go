package telemetry

// AnomalyKind distinguishes the three independent detection passes.
type AnomalyKind string

const (
	AnomalyThreshold   AnomalyKind = "threshold"
	AnomalyDerivative  AnomalyKind = "derivative"
	AnomalyStatistical AnomalyKind = "statistical"
)

// Severity grades an anomaly. A critical finding always implies the
// corresponding warning condition also held.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Anomaly is one detector finding. Overlapping findings from different
// passes are kept as-is; they are corroborating evidence, not duplicates.
type Anomaly struct {
	Field       string
	Value       float64
	Kind        AnomalyKind
	Severity    Severity
	Description string
	Timestamp   float64
}
