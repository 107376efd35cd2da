package packet

import "github.com/meridian3/downlink/internal/telemetry"

// Priority tiers used by the rule table. The downlink scheduler treats 10
// as preempt-everything.
const (
	PriorityCritical = 10
	PriorityThermal  = 8
	PriorityElevated = 7
	PriorityNominal  = 5
)

// priorityRule matches one field against a predicate. Rules are evaluated
// in declaration order and the first match wins; they are never summed. A
// field absent from the frame or non-numeric skips its rules.
type priorityRule struct {
	field    string
	match    func(v float64) bool
	priority int
}

var priorityRules = []priorityRule{
	{"battery_soc", func(v float64) bool { return v < 15.0 }, PriorityCritical},
	{"battery_temp", func(v float64) bool { return v > 60.0 || v < -20.0 }, PriorityThermal},
	{"cpu_temp", func(v float64) bool { return v > 80.0 }, PriorityThermal},
	{"battery_soc", func(v float64) bool { return v < 40.0 }, PriorityElevated},
}

// priorityFor evaluates the rule table over a frame.
func priorityFor(f telemetry.RawFrame) int {
	for _, r := range priorityRules {
		v, ok := numericField(f, r.field)
		if !ok {
			continue
		}
		if r.match(v) {
			return r.priority
		}
	}
	return PriorityNominal
}

func numericField(f telemetry.RawFrame, name string) (float64, bool) {
	raw, ok := f.Values[name]
	if !ok {
		return 0, false
	}
	switch x := raw.(type) {
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
