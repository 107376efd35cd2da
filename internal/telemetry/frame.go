package telemetry

// FrameIDUnknown marks a frame synthesized in place of a lost packet,
// where no real frame id exists.
const FrameIDUnknown int64 = -1

// RawFrame is one timestamped set of named sensor readings as produced
// upstream. Values are numeric in the healthy case; after simulated link
// corruption they may be nil or carry a wrong type. The field set is open
// at this boundary.
type RawFrame struct {
	Timestamp float64
	FrameID   int64
	Values    map[string]any
}

// Clone returns a deep copy of the frame. The value map is copied so a
// mutating stage never touches the original.
func (f RawFrame) Clone() RawFrame {
	values := make(map[string]any, len(f.Values))
	for k, v := range f.Values {
		values[k] = v
	}
	return RawFrame{Timestamp: f.Timestamp, FrameID: f.FrameID, Values: values}
}

// Quality is the coarse confidence tier attached to a cleaned frame.
type Quality string

const (
	QualityHigh         Quality = "high"
	QualityMedium       Quality = "medium"
	QualityLow          Quality = "low"
	QualityInterpolated Quality = "interpolated"
)

// CleanFrame is the fully repaired output of the cleaning stage. Data
// contains every declared field with a finite numeric value; provenance of
// every substitution lives in Meta.
type CleanFrame struct {
	Timestamp float64
	FrameID   int64
	Data      map[string]float64
	Meta      Metadata
}

// Metadata carries per-frame repair and detection provenance. Anomalies is
// append-only once attached.
type Metadata struct {
	Quality       Quality
	ChecksumValid bool
	Repairs       []Repair
	Anomalies     []Anomaly
	Warnings      []string
}
