package cleaner

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidHistorySize = errors.New("cleaner: history size must be at least 2")
	ErrInvalidRange       = errors.New("cleaner: range min exceeds max")
	ErrInvalidRate        = errors.New("cleaner: max rate must be positive")
	ErrInvalidBound       = errors.New("cleaner: extreme bound must be positive")
)

// Range is the static physical [min,max] envelope for one field. Fields
// without an entry skip the range check entirely.
type Range struct {
	Min float64
	Max float64
}

// Config fixes the repair policy for one stream. Immutable once handed to
// NewCleaner.
type Config struct {
	// HistorySize bounds each field's rolling window used for
	// interpolation. Default 10.
	HistorySize int
	// Fields declares the closed set of known field identifiers. The
	// union with the table keys below forms the declared set; every
	// declared field is present in every CleanFrame.
	Fields []string
	// Defaults substitutes when a repair is needed but fewer than two
	// historical samples exist. Missing entries default to 0.
	Defaults map[string]float64
	// Ranges holds per-field physical envelopes for the clamp check.
	Ranges map[string]Range
	// MaxRates holds per-field maximum |dv/dt| for the rate check.
	MaxRates map[string]float64
	// ExtremeBound is the generous sanity magnitude beyond which any
	// value is treated as garbage. Default 1e9.
	ExtremeBound float64
	// MaxConsecutiveLoss caps blind extrapolation across back-to-back
	// lost packets; uniform-spacing extrapolation compounds error, so
	// past the cap losses surface as unrecoverable. Default 3.
	MaxConsecutiveLoss int
	// StrictOrdering turns an out-of-order timestamp into an error
	// instead of a degraded (rate checks skipped) frame.
	StrictOrdering bool
}

// DefaultConfig returns the calibration the repair policy was tuned with.
func DefaultConfig() Config {
	return Config{
		HistorySize:        10,
		ExtremeBound:       1e9,
		MaxConsecutiveLoss: 3,
	}
}

// Validate fails fast on malformed tables.
func (c Config) Validate() error {
	if c.HistorySize < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidHistorySize, c.HistorySize)
	}
	if c.ExtremeBound <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBound, c.ExtremeBound)
	}
	if c.MaxConsecutiveLoss < 0 {
		return fmt.Errorf("cleaner: negative max consecutive loss: %d", c.MaxConsecutiveLoss)
	}
	for f, r := range c.Ranges {
		if r.Min > r.Max {
			return fmt.Errorf("%w: %s [%v,%v]", ErrInvalidRange, f, r.Min, r.Max)
		}
	}
	for f, r := range c.MaxRates {
		if r <= 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidRate, f, r)
		}
	}
	return nil
}

// declaredFields returns the closed known-field set, sorted for
// deterministic per-frame evaluation order.
func (c Config) declaredFields() []string {
	set := make(map[string]struct{})
	for _, f := range c.Fields {
		set[f] = struct{}{}
	}
	for f := range c.Defaults {
		set[f] = struct{}{}
	}
	for f := range c.Ranges {
		set[f] = struct{}{}
	}
	for f := range c.MaxRates {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
