package telemetry

// RepairMethod is the closed set of repair provenance tags. Each value
// names both the trigger and the substitution strategy used.
type RepairMethod string

const (
	// Missing or null value.
	RepairInterpolationNone RepairMethod = "interpolation_none"
	RepairDefaultValue      RepairMethod = "default_value"

	// Value carried a non-numeric type.
	RepairInterpolationTypeError RepairMethod = "interpolation_type_error"
	RepairDefaultTypeError       RepairMethod = "default_type_error"

	// NaN, Inf, or magnitude beyond the sanity bound.
	RepairInterpolationExtreme RepairMethod = "interpolation_extreme_value"
	RepairDefaultExtreme       RepairMethod = "default_extreme_value"

	// Value outside its physical [min,max] table entry, clamped.
	RepairRangeClamp RepairMethod = "range_clamp"

	// |dv/dt| exceeded the field's configured maximum.
	RepairRateLimit RepairMethod = "rate_limit_violation"

	// Whole-frame synthesis after a lost packet.
	RepairExtrapolation RepairMethod = "extrapolation"
)

// Valid reports whether m is a member of the closed method set.
func (m RepairMethod) Valid() bool {
	switch m {
	case RepairInterpolationNone, RepairDefaultValue,
		RepairInterpolationTypeError, RepairDefaultTypeError,
		RepairInterpolationExtreme, RepairDefaultExtreme,
		RepairRangeClamp, RepairRateLimit, RepairExtrapolation:
		return true
	}
	return false
}

// Repair records one field substitution. Original holds the value as
// received (possibly nil or non-numeric); Repaired is the value that
// replaced it.
type Repair struct {
	Field    string
	Method   RepairMethod
	Original any
	Repaired float64
}
