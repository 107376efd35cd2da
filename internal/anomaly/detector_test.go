package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian3/downlink/internal/telemetry"
)

func ptr(v float64) *float64 { return &v }

func frame(ts float64, data map[string]float64) telemetry.CleanFrame {
	return telemetry.CleanFrame{Timestamp: ts, FrameID: int64(ts), Data: data}
}

func roverThresholds() map[string]Threshold {
	return map[string]Threshold{
		"battery_soc": {LowWarning: ptr(30), LowCritical: ptr(15)},
		"cpu_temp":    {HighWarning: ptr(80), HighCritical: ptr(95)},
	}
}

func TestThresholdBands(t *testing.T) {
	cases := []struct {
		name  string
		field string
		value float64
		kind  telemetry.Severity
		none  bool
	}{
		{"nominal soc", "battery_soc", 50, "", true},
		{"low warning", "battery_soc", 25, telemetry.SeverityWarning, false},
		{"low critical", "battery_soc", 10, telemetry.SeverityCritical, false},
		{"warning bound exact", "battery_soc", 30, "", true},
		{"high warning", "cpu_temp", 85, telemetry.SeverityWarning, false},
		{"high critical", "cpu_temp", 99, telemetry.SeverityCritical, false},
		{"critical bound exact", "cpu_temp", 95, telemetry.SeverityWarning, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Thresholds = roverThresholds()
			d, err := NewDetector(cfg)
			require.NoError(t, err)

			out := d.Analyze(frame(1, map[string]float64{tc.field: tc.value}))
			if tc.none {
				assert.Empty(t, out.Meta.Anomalies)
				return
			}
			require.Len(t, out.Meta.Anomalies, 1)
			a := out.Meta.Anomalies[0]
			assert.Equal(t, telemetry.AnomalyThreshold, a.Kind)
			assert.Equal(t, tc.kind, a.Severity)
			assert.Equal(t, tc.field, a.Field)
			assert.Equal(t, tc.value, a.Value)
		})
	}
}

func TestDerivativeSeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRates = map[string]float64{"velocity": 5.0}
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	// No previous frame yet.
	out := d.Analyze(frame(0, map[string]float64{"velocity": 0}))
	assert.Empty(t, out.Meta.Anomalies)

	// Exactly the maximum rate is acceptable.
	out = d.Analyze(frame(1, map[string]float64{"velocity": 5}))
	assert.Empty(t, out.Meta.Anomalies)

	// 5.5 units over 1s is a warning, under twice the maximum.
	out = d.Analyze(frame(2, map[string]float64{"velocity": 10.5}))
	require.Len(t, out.Meta.Anomalies, 1)
	assert.Equal(t, telemetry.AnomalyDerivative, out.Meta.Anomalies[0].Kind)
	assert.Equal(t, telemetry.SeverityWarning, out.Meta.Anomalies[0].Severity)

	// 11 units over 1s is past twice the maximum.
	out = d.Analyze(frame(3, map[string]float64{"velocity": 21.5}))
	require.Len(t, out.Meta.Anomalies, 1)
	assert.Equal(t, telemetry.SeverityCritical, out.Meta.Anomalies[0].Severity)
}

func TestDerivativeSkipsNonPositiveDelta(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRates = map[string]float64{"velocity": 1.0}
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	d.Analyze(frame(5, map[string]float64{"velocity": 0}))
	out := d.Analyze(frame(5, map[string]float64{"velocity": 100}))
	assert.Empty(t, out.Meta.Anomalies)
}

func TestStatisticalNeedsTenSamples(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	// Alternating 10/12 gives mean 11 and stddev 1 once the window fills.
	for i := 0; i < 9; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 12.0
		}
		out := d.Analyze(frame(float64(i), map[string]float64{"motor_temp": v}))
		assert.Empty(t, out.Meta.Anomalies, "sample %d", i)
	}

	// Ninth sample in the window: an outlier is still invisible.
	out := d.Analyze(frame(9, map[string]float64{"motor_temp": 12.0}))
	assert.Empty(t, out.Meta.Anomalies)

	// Tenth sample banked; z = |20-11|/1 = 9 is past 1.5x the threshold.
	out = d.Analyze(frame(10, map[string]float64{"motor_temp": 20.0}))
	require.Len(t, out.Meta.Anomalies, 1)
	a := out.Meta.Anomalies[0]
	assert.Equal(t, telemetry.AnomalyStatistical, a.Kind)
	assert.Equal(t, telemetry.SeverityCritical, a.Severity)
}

func TestStatisticalWarningBand(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		v := 10.0
		if i%2 == 1 {
			v = 12.0
		}
		d.Analyze(frame(float64(i), map[string]float64{"motor_temp": v}))
	}

	// z = 3.5 sits between the threshold and its critical multiple.
	out := d.Analyze(frame(10, map[string]float64{"motor_temp": 14.5}))
	require.Len(t, out.Meta.Anomalies, 1)
	assert.Equal(t, telemetry.SeverityWarning, out.Meta.Anomalies[0].Severity)
}

func TestFlatSignalNeverStatistical(t *testing.T) {
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		out := d.Analyze(frame(float64(i), map[string]float64{"heading": 90.0}))
		assert.Empty(t, out.Meta.Anomalies, "sample %d", i)
	}
}

func TestAnalyzePreservesDataAndMetadata(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = roverThresholds()
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	in := frame(1, map[string]float64{"battery_soc": 10})
	in.Meta.Repairs = []telemetry.Repair{{Field: "battery_soc", Method: telemetry.RepairDefaultValue}}
	in.Meta.Anomalies = []telemetry.Anomaly{{Field: "prior", Kind: telemetry.AnomalyThreshold}}

	out := d.Analyze(in)

	assert.Equal(t, 10.0, out.Data["battery_soc"])
	assert.Len(t, out.Meta.Repairs, 1)
	require.Len(t, out.Meta.Anomalies, 2)
	assert.Equal(t, "prior", out.Meta.Anomalies[0].Field)
	assert.Equal(t, "battery_soc", out.Meta.Anomalies[1].Field)
}

func TestStatisticsCounters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = roverThresholds()
	cfg.MaxRates = map[string]float64{"battery_soc": 1.0}
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	d.Analyze(frame(0, map[string]float64{"battery_soc": 50}))
	d.Analyze(frame(1, map[string]float64{"battery_soc": 10}))

	s := d.Statistics()
	assert.Equal(t, uint64(2), s.FramesAnalyzed)
	assert.Equal(t, uint64(1), s.Threshold)
	assert.Equal(t, uint64(1), s.Derivative)
	assert.Equal(t, uint64(0), s.Statistical)
	assert.Equal(t, uint64(2), s.Total)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want error
	}{
		{"tiny history", func(c *Config) { c.HistorySize = 1 }, ErrInvalidHistorySize},
		{"negative z", func(c *Config) { c.ZScoreThreshold = -1 }, ErrInvalidThreshold},
		{"zero rate", func(c *Config) { c.MaxRates = map[string]float64{"x": 0} }, ErrInvalidRate},
		{"inverted low band", func(c *Config) {
			c.Thresholds = map[string]Threshold{"x": {LowWarning: ptr(10), LowCritical: ptr(20)}}
		}, ErrInvalidBand},
		{"inverted high band", func(c *Config) {
			c.Thresholds = map[string]Threshold{"x": {HighWarning: ptr(20), HighCritical: ptr(10)}}
		}, ErrInvalidBand},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(&cfg)
			_, err := NewDetector(cfg)
			require.ErrorIs(t, err, tc.want)
		})
	}
}
