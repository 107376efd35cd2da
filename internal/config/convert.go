package config

import (
	"sort"

	"github.com/meridian3/downlink/internal/anomaly"
	"github.com/meridian3/downlink/internal/cleaner"
	"github.com/meridian3/downlink/internal/corruptor"
)

// CorruptorConfig materializes the [link] section.
func (c LinkConfig) CorruptorConfig() corruptor.Config {
	modes := make(map[corruptor.Mode]float64, len(c.Link.Modes))
	for _, m := range c.Link.Modes {
		modes[corruptor.Mode(m)] = c.Link.ModeWeights[m]
	}
	return corruptor.Config{
		LossProbability:     c.Link.LossProbability,
		FieldCorruptionProb: c.Link.FieldCorruptionProbability,
		JitterStddev:        c.Link.JitterStddev,
		Modes:               modes,
		Seed:                c.Link.Seed,
	}
}

// CleanerConfig materializes the [cleaner] section against a field table.
func (c LinkConfig) CleanerConfig(table FieldTable) cleaner.Config {
	cfg := cleaner.Config{
		HistorySize:        c.Cleaner.HistorySize,
		Fields:             table.fieldNames(),
		Defaults:           make(map[string]float64),
		Ranges:             make(map[string]cleaner.Range),
		MaxRates:           make(map[string]float64),
		ExtremeBound:       c.Cleaner.ExtremeBound,
		MaxConsecutiveLoss: c.Cleaner.MaxConsecutiveLoss,
		StrictOrdering:     c.Cleaner.StrictOrdering,
	}
	for name, spec := range table.Fields {
		cfg.Defaults[name] = spec.Default
		if spec.Min != nil && spec.Max != nil {
			cfg.Ranges[name] = cleaner.Range{Min: *spec.Min, Max: *spec.Max}
		}
		if spec.MaxRate != nil {
			cfg.MaxRates[name] = *spec.MaxRate
		}
	}
	return cfg
}

// DetectorConfig materializes the [detector] section against a field
// table.
func (c LinkConfig) DetectorConfig(table FieldTable) anomaly.Config {
	cfg := anomaly.Config{
		HistorySize:     c.Detector.HistorySize,
		ZScoreThreshold: c.Detector.ZScoreThreshold,
		Thresholds:      make(map[string]anomaly.Threshold),
		MaxRates:        make(map[string]float64),
	}
	for name, spec := range table.Fields {
		if spec.MaxRate != nil {
			cfg.MaxRates[name] = *spec.MaxRate
		}
		if spec.LowWarning != nil || spec.LowCritical != nil ||
			spec.HighWarning != nil || spec.HighCritical != nil {
			cfg.Thresholds[name] = anomaly.Threshold{
				LowWarning:   spec.LowWarning,
				LowCritical:  spec.LowCritical,
				HighWarning:  spec.HighWarning,
				HighCritical: spec.HighCritical,
			}
		}
	}
	return cfg
}

func (t FieldTable) fieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for name := range t.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
