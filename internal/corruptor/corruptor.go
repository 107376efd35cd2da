package corruptor

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/meridian3/downlink/internal/packet"
)

var (
	ErrInvalidProbability = errors.New("corruptor: probability outside [0,1]")
	ErrInvalidJitter      = errors.New("corruptor: negative jitter stddev")
	ErrNoModes            = errors.New("corruptor: no corruption modes enabled")
	ErrInvalidWeight      = errors.New("corruptor: negative mode weight")
	ErrUnknownMode        = errors.New("corruptor: unknown corruption mode")
)

// Mode is one way a delivered field can be damaged.
type Mode string

const (
	ModeSetMissing     Mode = "set_missing"
	ModeDistortNumeric Mode = "distort_numeric"
	ModeWrongType      Mode = "wrong_type"
)

// wrongTypeMarker replaces a field value under ModeWrongType.
const wrongTypeMarker = "CORRUPTED"

// Config fixes the stochastic fault model for one stream. Immutable once
// handed to NewCorruptor.
type Config struct {
	LossProbability     float64
	FieldCorruptionProb float64
	JitterStddev        float64
	Modes               map[Mode]float64 // enabled modes; weight 0 means uniform share
	Seed                int64
}

// DefaultConfig mirrors the calibration the link model was tuned with.
func DefaultConfig() Config {
	return Config{
		LossProbability:     0.01,
		FieldCorruptionProb: 0.05,
		JitterStddev:        0.1,
		Modes: map[Mode]float64{
			ModeSetMissing:     0,
			ModeDistortNumeric: 0,
			ModeWrongType:      0,
		},
	}
}

// Validate fails fast on malformed configuration.
func (c Config) Validate() error {
	if c.LossProbability < 0 || c.LossProbability > 1 {
		return fmt.Errorf("%w: loss_probability=%v", ErrInvalidProbability, c.LossProbability)
	}
	if c.FieldCorruptionProb < 0 || c.FieldCorruptionProb > 1 {
		return fmt.Errorf("%w: field_corruption_probability=%v", ErrInvalidProbability, c.FieldCorruptionProb)
	}
	if c.JitterStddev < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidJitter, c.JitterStddev)
	}
	if len(c.Modes) == 0 {
		return ErrNoModes
	}
	for m, w := range c.Modes {
		switch m {
		case ModeSetMissing, ModeDistortNumeric, ModeWrongType:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownMode, m)
		}
		if w < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, m, w)
		}
	}
	return nil
}

// Corruptor injects transmission faults into packets.
type Corruptor struct {
	cfg   Config
	rng   *rand.Rand
	modes []Mode // stable draw order

	mu            sync.Mutex
	processed     uint64
	lost          uint64
	fieldsSeen    uint64
	fieldsCorrupt uint64
}

// NewCorruptor validates cfg and returns a corruptor seeded for
// reproducible runs.
func NewCorruptor(cfg Config) (*Corruptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modes := make([]Mode, 0, len(cfg.Modes))
	for m := range cfg.Modes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return &Corruptor{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		modes: modes,
	}, nil
}

// Corrupt draws loss and per-field corruption for one packet. A lost
// packet returns (nil, true) immediately; no checksum is ever evaluated
// against it. Delivered packets are structural copies; the input is never
// mutated.
func (c *Corruptor) Corrupt(p *packet.Packet) (*packet.Packet, bool) {
	c.mu.Lock()
	c.processed++
	c.mu.Unlock()

	if c.rng.Float64() < c.cfg.LossProbability {
		c.mu.Lock()
		c.lost++
		c.mu.Unlock()
		return nil, true
	}

	out := p.Clone()

	// Sorted keys keep seeded runs reproducible across map iterations.
	keys := make([]string, 0, len(out.Payload.Telemetry))
	for k := range out.Payload.Telemetry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var altered, seen uint64
	for _, k := range keys {
		seen++
		if c.rng.Float64() >= c.cfg.FieldCorruptionProb {
			continue
		}
		out.Payload.Telemetry[k] = c.damage(out.Payload.Telemetry[k])
		altered++
	}

	if c.cfg.JitterStddev > 0 {
		out.Footer.TransmissionTime += c.rng.NormFloat64() * c.cfg.JitterStddev
	}
	if altered > 0 {
		// Independent of whether the digest still happens to collide.
		out.Footer.CorruptionDetected = true
	}

	c.mu.Lock()
	c.fieldsSeen += seen
	c.fieldsCorrupt += altered
	c.mu.Unlock()
	return out, false
}

// damage applies one corruption mode to a value. Distortion needs a
// numeric input and falls back to dropping the value otherwise.
func (c *Corruptor) damage(v any) any {
	switch c.pickMode() {
	case ModeDistortNumeric:
		f, ok := asFloat(v)
		if !ok {
			return nil
		}
		factor := c.rng.Float64()*20 - 10
		return f * factor
	case ModeWrongType:
		return wrongTypeMarker
	default:
		return nil
	}
}

// pickMode selects among enabled modes, weighted when any weight is set
// and uniform otherwise.
func (c *Corruptor) pickMode() Mode {
	var total float64
	for _, m := range c.modes {
		total += c.cfg.Modes[m]
	}
	if total <= 0 {
		return c.modes[c.rng.Intn(len(c.modes))]
	}
	draw := c.rng.Float64() * total
	for _, m := range c.modes {
		draw -= c.cfg.Modes[m]
		if draw < 0 {
			return m
		}
	}
	return c.modes[len(c.modes)-1]
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Stats is a read-only snapshot of link degradation counters.
type Stats struct {
	PacketsProcessed       uint64
	PacketsLost            uint64
	FieldsSeen             uint64
	FieldsCorrupted        uint64
	ObservedLossRate       float64
	ObservedCorruptionRate float64
}

// Statistics returns the running counts with derived observed rates,
// pollable at any time.
func (c *Corruptor) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		PacketsProcessed: c.processed,
		PacketsLost:      c.lost,
		FieldsSeen:       c.fieldsSeen,
		FieldsCorrupted:  c.fieldsCorrupt,
	}
	if c.processed > 0 {
		s.ObservedLossRate = float64(c.lost) / float64(c.processed)
	}
	if c.fieldsSeen > 0 {
		s.ObservedCorruptionRate = float64(c.fieldsCorrupt) / float64(c.fieldsSeen)
	}
	return s
}
