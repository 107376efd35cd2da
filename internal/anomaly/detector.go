package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/meridian3/downlink/internal/history"
	"github.com/meridian3/downlink/internal/telemetry"
)

var (
	ErrInvalidHistorySize = errors.New("anomaly: history size must be at least 2")
	ErrInvalidThreshold   = errors.New("anomaly: z-score threshold must be positive")
	ErrInvalidRate        = errors.New("anomaly: max rate must be positive")
	ErrInvalidBand        = errors.New("anomaly: threshold band ordering invalid")
)

const (
	// minSamples gates the statistical pass; with fewer samples the
	// window mean is noise.
	minSamples = 10
	// stddevFloor avoids division blow-up on a flat signal.
	stddevFloor = 1e-9
	// criticalZFactor scales the warning threshold up to critical.
	criticalZFactor = 1.5
	// criticalRateFactor scales the configured max rate up to critical.
	criticalRateFactor = 2.0
)

// Threshold holds the static alarm band for one field. Nil limits are
// unchecked sides.
type Threshold struct {
	LowWarning   *float64
	LowCritical  *float64
	HighWarning  *float64
	HighCritical *float64
}

// Config fixes detection parameters for one stream.
type Config struct {
	// HistorySize bounds each field's statistical window. Default 50.
	HistorySize int
	// Thresholds holds per-field static alarm bands.
	Thresholds map[string]Threshold
	// MaxRates holds per-field maximum |dv/dt| for the derivative pass.
	MaxRates map[string]float64
	// ZScoreThreshold is the warning bound for the statistical pass.
	// Default 3.0.
	ZScoreThreshold float64
}

// DefaultConfig returns the detection calibration defaults.
func DefaultConfig() Config {
	return Config{HistorySize: 50, ZScoreThreshold: 3.0}
}

// Validate fails fast on malformed detection tables.
func (c Config) Validate() error {
	if c.HistorySize < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidHistorySize, c.HistorySize)
	}
	if c.ZScoreThreshold <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.ZScoreThreshold)
	}
	for f, r := range c.MaxRates {
		if r <= 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidRate, f, r)
		}
	}
	for f, th := range c.Thresholds {
		if th.LowWarning != nil && th.LowCritical != nil && *th.LowCritical > *th.LowWarning {
			return fmt.Errorf("%w: %s low_critical above low_warning", ErrInvalidBand, f)
		}
		if th.HighWarning != nil && th.HighCritical != nil && *th.HighCritical < *th.HighWarning {
			return fmt.Errorf("%w: %s high_critical below high_warning", ErrInvalidBand, f)
		}
	}
	return nil
}

// Detector scans clean frames for anomalies. One instance serves one
// stream; it keeps the previous frame and an independent per-field
// statistical window, never shared with the cleaner's history.
type Detector struct {
	cfg Config

	mu      sync.Mutex
	windows map[string]*history.Window
	prev    *telemetry.CleanFrame
	stats   counters
}

type counters struct {
	framesAnalyzed uint64
	threshold      uint64
	derivative     uint64
	statistical    uint64
}

// NewDetector validates cfg and returns a detector with empty windows.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.HistorySize == 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	if cfg.ZScoreThreshold == 0 {
		cfg.ZScoreThreshold = DefaultConfig().ZScoreThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, windows: make(map[string]*history.Window)}, nil
}

// Analyze runs the three passes over one frame and returns it with
// findings appended to its metadata. Frame data is never mutated. After
// the passes, every field's sample enters the statistical window and the
// frame becomes the new previous frame.
func (d *Detector) Analyze(frame telemetry.CleanFrame) telemetry.CleanFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.framesAnalyzed++

	fields := make([]string, 0, len(frame.Data))
	for f := range frame.Data {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var found []telemetry.Anomaly
	for _, f := range fields {
		v := frame.Data[f]
		if a, ok := d.checkThreshold(f, v, frame.Timestamp); ok {
			found = append(found, a)
			d.stats.threshold++
		}
		if a, ok := d.checkDerivative(f, v, frame.Timestamp); ok {
			found = append(found, a)
			d.stats.derivative++
		}
		if a, ok := d.checkStatistical(f, v, frame.Timestamp); ok {
			found = append(found, a)
			d.stats.statistical++
		}
	}

	for _, f := range fields {
		d.window(f).Push(frame.Timestamp, frame.Data[f])
	}
	prev := frame
	d.prev = &prev

	frame.Meta.Anomalies = append(frame.Meta.Anomalies, found...)
	return frame
}

// checkThreshold compares a value against its static band. On each side
// critical is checked first and wins when both hold.
func (d *Detector) checkThreshold(f string, v, t float64) (telemetry.Anomaly, bool) {
	th, ok := d.cfg.Thresholds[f]
	if !ok {
		return telemetry.Anomaly{}, false
	}
	mk := func(sev telemetry.Severity, bound float64, side string) (telemetry.Anomaly, bool) {
		return telemetry.Anomaly{
			Field:       f,
			Value:       v,
			Kind:        telemetry.AnomalyThreshold,
			Severity:    sev,
			Description: fmt.Sprintf("%s=%g beyond %s %s bound %g", f, v, side, sev, bound),
			Timestamp:   t,
		}, true
	}
	switch {
	case th.LowCritical != nil && v < *th.LowCritical:
		return mk(telemetry.SeverityCritical, *th.LowCritical, "low")
	case th.LowWarning != nil && v < *th.LowWarning:
		return mk(telemetry.SeverityWarning, *th.LowWarning, "low")
	case th.HighCritical != nil && v > *th.HighCritical:
		return mk(telemetry.SeverityCritical, *th.HighCritical, "high")
	case th.HighWarning != nil && v > *th.HighWarning:
		return mk(telemetry.SeverityWarning, *th.HighWarning, "high")
	}
	return telemetry.Anomaly{}, false
}

// checkDerivative flags excessive rate of change against the previous
// frame. Skipped without a previous frame, a configured rate, or a
// positive time delta.
func (d *Detector) checkDerivative(f string, v, t float64) (telemetry.Anomaly, bool) {
	maxRate, ok := d.cfg.MaxRates[f]
	if !ok || d.prev == nil {
		return telemetry.Anomaly{}, false
	}
	prevV, ok := d.prev.Data[f]
	if !ok {
		return telemetry.Anomaly{}, false
	}
	dt := t - d.prev.Timestamp
	if dt <= 0 {
		return telemetry.Anomaly{}, false
	}
	rate := math.Abs(v-prevV) / dt
	if rate <= maxRate {
		return telemetry.Anomaly{}, false
	}
	sev := telemetry.SeverityWarning
	if rate > criticalRateFactor*maxRate {
		sev = telemetry.SeverityCritical
	}
	return telemetry.Anomaly{
		Field:       f,
		Value:       v,
		Kind:        telemetry.AnomalyDerivative,
		Severity:    sev,
		Description: fmt.Sprintf("%s rate %g exceeds max %g", f, rate, maxRate),
		Timestamp:   t,
	}, true
}

// checkStatistical flags values far from the rolling mean. Requires a
// populated window and a usable stddev.
func (d *Detector) checkStatistical(f string, v, t float64) (telemetry.Anomaly, bool) {
	w, ok := d.windows[f]
	if !ok || w.Len() < minSamples {
		return telemetry.Anomaly{}, false
	}
	mean, _ := w.Mean()
	stddev, _ := w.Stddev()
	if stddev < stddevFloor {
		return telemetry.Anomaly{}, false
	}
	z := math.Abs(v-mean) / stddev
	if z <= d.cfg.ZScoreThreshold {
		return telemetry.Anomaly{}, false
	}
	sev := telemetry.SeverityWarning
	if z > criticalZFactor*d.cfg.ZScoreThreshold {
		sev = telemetry.SeverityCritical
	}
	return telemetry.Anomaly{
		Field:       f,
		Value:       v,
		Kind:        telemetry.AnomalyStatistical,
		Severity:    sev,
		Description: fmt.Sprintf("%s z-score %.2f exceeds %.2f (mean %g, stddev %g)", f, z, d.cfg.ZScoreThreshold, mean, stddev),
		Timestamp:   t,
	}, true
}

func (d *Detector) window(f string) *history.Window {
	w, ok := d.windows[f]
	if !ok {
		w = history.New(d.cfg.HistorySize)
		d.windows[f] = w
	}
	return w
}

// Stats is a read-only snapshot of detection counters.
type Stats struct {
	FramesAnalyzed uint64
	Threshold      uint64
	Derivative     uint64
	Statistical    uint64
	Total          uint64
}

// Statistics returns the running counters, pollable at any time.
func (d *Detector) Statistics() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		FramesAnalyzed: d.stats.framesAnalyzed,
		Threshold:      d.stats.threshold,
		Derivative:     d.stats.derivative,
		Statistical:    d.stats.statistical,
		Total:          d.stats.threshold + d.stats.derivative + d.stats.statistical,
	}
}
