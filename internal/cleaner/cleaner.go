package cleaner

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meridian3/downlink/internal/history"
	"github.com/meridian3/downlink/internal/packet"
	"github.com/meridian3/downlink/internal/telemetry"
)

var (
	// ErrInsufficientHistory reports a lost packet that cannot be
	// synthesized. Non-fatal: callers skip the frame and continue.
	ErrInsufficientHistory = errors.New("cleaner: insufficient history to synthesize lost frame")
	// ErrOutOfOrder reports a timestamp regression in strict mode.
	ErrOutOfOrder = errors.New("cleaner: out-of-order timestamp")
)

// Cleaner validates and repairs packets into fully populated clean
// frames. It carries per-field rolling history; one instance serves
// exactly one stream and assumes non-decreasing timestamps.
type Cleaner struct {
	cfg      Config
	declared []string

	mu         sync.Mutex
	hist       map[string]*history.Window
	framesSeen int
	prevT      float64
	lastT      float64
	consecLoss int
	stats      counters
}

type counters struct {
	framesProcessed  uint64
	framesRepaired   uint64
	fieldsRepaired   uint64
	checksumFailures uint64
	unrecoverable    uint64
}

// NewCleaner validates cfg and returns a cleaner with empty history.
func NewCleaner(cfg Config) (*Cleaner, error) {
	if cfg.HistorySize == 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	if cfg.ExtremeBound == 0 {
		cfg.ExtremeBound = DefaultConfig().ExtremeBound
	}
	if cfg.MaxConsecutiveLoss == 0 {
		cfg.MaxConsecutiveLoss = DefaultConfig().MaxConsecutiveLoss
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cleaner{
		cfg:      cfg,
		declared: cfg.declaredFields(),
		hist:     make(map[string]*history.Window),
	}, nil
}

// Clean turns one packet into a clean frame. A nil packet is the Lost
// sentinel and triggers whole-frame synthesis from history.
func (c *Cleaner) Clean(p *packet.Packet) (telemetry.CleanFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.framesProcessed++
	if p == nil {
		return c.synthesizeLost()
	}
	return c.cleanDelivered(p)
}

// synthesizeLost extrapolates every previously-seen field one step
// forward, assuming uniform spacing between the last two samples.
func (c *Cleaner) synthesizeLost() (telemetry.CleanFrame, error) {
	if c.framesSeen < 2 {
		c.stats.unrecoverable++
		return telemetry.CleanFrame{}, fmt.Errorf("%w: %d prior frames", ErrInsufficientHistory, c.framesSeen)
	}
	if c.consecLoss >= c.cfg.MaxConsecutiveLoss {
		c.stats.unrecoverable++
		return telemetry.CleanFrame{}, fmt.Errorf("%w: %d consecutive losses", ErrInsufficientHistory, c.consecLoss)
	}

	t := c.lastT + (c.lastT - c.prevT)
	data := make(map[string]float64)
	var repairs []telemetry.Repair
	for _, f := range c.sortedHistoryFields() {
		s1, s2, ok := c.hist[f].LastTwo()
		if !ok {
			continue
		}
		next := s2.V + (s2.V - s1.V)
		data[f] = next
		repairs = append(repairs, telemetry.Repair{
			Field: f, Method: telemetry.RepairExtrapolation, Repaired: next,
		})
	}
	if len(data) == 0 {
		c.stats.unrecoverable++
		return telemetry.CleanFrame{}, fmt.Errorf("%w: no field history", ErrInsufficientHistory)
	}

	frame := telemetry.CleanFrame{
		Timestamp: t,
		FrameID:   telemetry.FrameIDUnknown,
		Data:      data,
		Meta: telemetry.Metadata{
			Quality:  telemetry.QualityInterpolated,
			Repairs:  repairs,
			Warnings: []string{"frame synthesized from history after lost packet"},
		},
	}

	c.appendHistory(t, data)
	c.consecLoss++
	c.stats.framesRepaired++
	c.stats.fieldsRepaired += uint64(len(repairs))
	log.Debug().Float64("timestamp", t).Int("fields", len(data)).
		Msg("cleaner: synthesized lost frame")
	return frame, nil
}

func (c *Cleaner) cleanDelivered(p *packet.Packet) (telemetry.CleanFrame, error) {
	t := p.Header.Timestamp

	rateChecks := true
	var warnings []string
	if c.framesSeen > 0 && t < c.lastT {
		if c.cfg.StrictOrdering {
			return telemetry.CleanFrame{}, fmt.Errorf("%w: %v after %v", ErrOutOfOrder, t, c.lastT)
		}
		// Rate checks against newer history would be meaningless;
		// availability wins over perfect detection here.
		rateChecks = false
		warnings = append(warnings, fmt.Sprintf("out-of-order timestamp %v after %v; rate checks skipped", t, c.lastT))
		log.Warn().Float64("timestamp", t).Float64("last", c.lastT).
			Msg("cleaner: out-of-order frame")
	}

	checksumValid := packet.Verify(p)
	if !checksumValid {
		c.stats.checksumFailures++
	}

	data := make(map[string]float64, len(c.declared))
	var repairs []telemetry.Repair
	for _, f := range c.declared {
		raw, present := p.Payload.Telemetry[f]
		v, rep := c.repairField(f, raw, present, t, rateChecks)
		data[f] = v
		if rep != nil {
			repairs = append(repairs, *rep)
		}
	}

	// Unknown fields pass through unchecked; non-numeric ones cannot
	// enter the numeric data map and are dropped with a warning.
	for k, raw := range p.Payload.Telemetry {
		if c.isDeclared(k) {
			continue
		}
		if v, ok := asFloat(raw); ok {
			data[k] = v
		} else {
			warnings = append(warnings, fmt.Sprintf("unknown field %q dropped: non-numeric value", k))
		}
	}

	frame := telemetry.CleanFrame{
		Timestamp: t,
		FrameID:   p.Header.FrameID,
		Data:      data,
		Meta: telemetry.Metadata{
			Quality:       qualityTier(len(repairs), checksumValid),
			ChecksumValid: checksumValid,
			Repairs:       repairs,
			Warnings:      warnings,
		},
	}

	c.appendHistory(t, data)
	c.consecLoss = 0
	if len(repairs) > 0 {
		c.stats.framesRepaired++
		c.stats.fieldsRepaired += uint64(len(repairs))
	}
	return frame, nil
}

// repairField applies the repair policy in strict priority order. At most
// one repair fires per field per frame.
func (c *Cleaner) repairField(f string, raw any, present bool, t float64, rateChecks bool) (float64, *telemetry.Repair) {
	if !present || raw == nil {
		return c.substitute(f, t, raw, telemetry.RepairInterpolationNone, telemetry.RepairDefaultValue)
	}
	v, ok := asFloat(raw)
	if !ok {
		return c.substitute(f, t, raw, telemetry.RepairInterpolationTypeError, telemetry.RepairDefaultTypeError)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > c.cfg.ExtremeBound {
		return c.substitute(f, t, raw, telemetry.RepairInterpolationExtreme, telemetry.RepairDefaultExtreme)
	}
	if r, hasRange := c.cfg.Ranges[f]; hasRange {
		if v < r.Min {
			return r.Min, &telemetry.Repair{Field: f, Method: telemetry.RepairRangeClamp, Original: raw, Repaired: r.Min}
		}
		if v > r.Max {
			return r.Max, &telemetry.Repair{Field: f, Method: telemetry.RepairRangeClamp, Original: raw, Repaired: r.Max}
		}
	}
	if maxRate, hasRate := c.cfg.MaxRates[f]; hasRate && rateChecks {
		if last, haveLast := c.window(f).Last(); haveLast {
			if dt := t - last.T; dt > 0 {
				if rate := math.Abs(v-last.V) / dt; rate > maxRate {
					repaired, _ := c.substitute(f, t, raw, telemetry.RepairRateLimit, telemetry.RepairRateLimit)
					return repaired, &telemetry.Repair{Field: f, Method: telemetry.RepairRateLimit, Original: raw, Repaired: repaired}
				}
			}
		}
	}
	return v, nil
}

// substitute repairs via the shared path: linear extension through the
// two most recent samples when available, field default otherwise.
func (c *Cleaner) substitute(f string, t float64, raw any, interpMethod, defaultMethod telemetry.RepairMethod) (float64, *telemetry.Repair) {
	if v, ok := c.window(f).ExtendLinear(t); ok {
		return v, &telemetry.Repair{Field: f, Method: interpMethod, Original: raw, Repaired: v}
	}
	d := c.cfg.Defaults[f]
	return d, &telemetry.Repair{Field: f, Method: defaultMethod, Original: raw, Repaired: d}
}

// qualityTier grades a delivered frame. A checksum failure weighs like
// one extra repair, so a heavily repaired corrupt frame lands on low.
func qualityTier(repairCount int, checksumValid bool) telemetry.Quality {
	effective := repairCount
	if !checksumValid {
		effective++
	}
	switch {
	case effective == 0:
		return telemetry.QualityHigh
	case effective <= 3:
		return telemetry.QualityMedium
	default:
		return telemetry.QualityLow
	}
}

// appendHistory pushes repaired values, not raw ones; later interpolation
// windows stay stable that way. Oldest samples are evicted on overflow.
func (c *Cleaner) appendHistory(t float64, data map[string]float64) {
	for f, v := range data {
		c.window(f).Push(t, v)
	}
	c.prevT = c.lastT
	c.lastT = t
	c.framesSeen++
}

func (c *Cleaner) window(f string) *history.Window {
	w, ok := c.hist[f]
	if !ok {
		w = history.New(c.cfg.HistorySize)
		c.hist[f] = w
	}
	return w
}

func (c *Cleaner) isDeclared(f string) bool {
	for _, d := range c.declared {
		if d == f {
			return true
		}
	}
	return false
}

func (c *Cleaner) sortedHistoryFields() []string {
	out := make([]string, 0, len(c.hist))
	for f := range c.hist {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
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

// Stats is a read-only snapshot of cleaner counters.
type Stats struct {
	FramesProcessed  uint64
	FramesRepaired   uint64
	FieldsRepaired   uint64
	ChecksumFailures uint64
	Unrecoverable    uint64
	RepairRate       float64
}

// Statistics returns the running counters, pollable at any time.
func (c *Cleaner) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		FramesProcessed:  c.stats.framesProcessed,
		FramesRepaired:   c.stats.framesRepaired,
		FieldsRepaired:   c.stats.fieldsRepaired,
		ChecksumFailures: c.stats.checksumFailures,
		Unrecoverable:    c.stats.unrecoverable,
	}
	if s.FramesProcessed > 0 {
		s.RepairRate = float64(s.FramesRepaired) / float64(s.FramesProcessed)
	}
	return s
}
