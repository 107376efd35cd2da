// Package simulator is a minimal stand-in for the external frame source:
// a deterministic rover telemetry generator used by the demo binary and
// the pipeline tests. It is not part of the downlink pipeline itself.
package simulator

import (
	"math"
	"math/rand"

	"github.com/meridian3/downlink/internal/telemetry"
)

// Generator emits frames with strictly increasing timestamps: slow
// drifts, a diurnal solar cycle, and seeded Gaussian sensor noise.
type Generator struct {
	rng      *rand.Rand
	timestep float64
	next     int64
	time     float64
	soc      float64
}

// New returns a seeded generator producing one frame per timestep
// seconds.
func New(seed int64, timestep float64) *Generator {
	if timestep <= 0 {
		timestep = 1.0
	}
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		timestep: timestep,
		soc:      85.0,
	}
}

// Next produces the next telemetry frame.
func (g *Generator) Next() telemetry.RawFrame {
	t := g.time
	id := g.next
	g.time += g.timestep
	g.next++

	// Day/night cycle drives solar input; battery drains slowly and
	// recharges when the panel sees light.
	sun := math.Max(0, math.Sin(2*math.Pi*t/600.0))
	g.soc += (sun*0.02 - 0.01) * g.timestep
	g.soc = math.Min(100, math.Max(0, g.soc))

	noise := func(stddev float64) float64 { return g.rng.NormFloat64() * stddev }

	values := map[string]any{
		"roll":            0.5*math.Sin(t/30.0) + noise(0.1),
		"pitch":           0.3*math.Cos(t/45.0) + noise(0.1),
		"heading":         math.Mod(45.0+t*0.05, 360.0) + noise(0.2),
		"velocity":        math.Max(0, 0.04+noise(0.005)),
		"battery_voltage": 28.0 + 4.0*(g.soc/100.0) + noise(0.05),
		"battery_current": 0.5 + sun*1.2 + noise(0.05),
		"battery_soc":     g.soc + noise(0.1),
		"battery_temp":    20.0 + 5.0*sun + noise(0.5),
		"solar_voltage":   math.Max(0, 32.0*sun+noise(0.2)),
		"solar_current":   math.Max(0, 1.5*sun+noise(0.05)),
		"cpu_temp":        30.0 + 3.0*sun + noise(0.5),
		"motor_temp":      32.0 + 4.0*sun + noise(0.5),
		"chassis_temp":    15.0 + 8.0*sun + noise(0.5),
	}
	return telemetry.RawFrame{Timestamp: t, FrameID: id, Values: values}
}
