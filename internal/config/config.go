// Package config owns file-backed stream configuration: the TOML link
// config and the YAML field calibration table. Loading fails fast;
// nothing here is adjustable mid-stream.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LinkConfig is the per-stream pipeline configuration, loaded from TOML.
type LinkConfig struct {
	Stream   StreamConfig   `toml:"stream"`
	Link     LinkSection    `toml:"link"`
	Cleaner  CleanerSection `toml:"cleaner"`
	Detector DetectorSect   `toml:"detector"`
	Archive  ArchiveSection `toml:"archive"`
}

type StreamConfig struct {
	Name       string `toml:"name"`
	Encoding   string `toml:"encoding"`
	FieldTable string `toml:"field_table"`
}

type LinkSection struct {
	LossProbability            float64            `toml:"loss_probability"`
	FieldCorruptionProbability float64            `toml:"field_corruption_probability"`
	JitterStddev               float64            `toml:"jitter_stddev"`
	Modes                      []string           `toml:"modes"`
	ModeWeights                map[string]float64 `toml:"mode_weights"`
	Seed                       int64              `toml:"seed"`
}

type CleanerSection struct {
	HistorySize        int     `toml:"history_size"`
	ExtremeBound       float64 `toml:"extreme_bound"`
	MaxConsecutiveLoss int     `toml:"max_consecutive_loss"`
	StrictOrdering     bool    `toml:"strict_ordering"`
}

type DetectorSect struct {
	HistorySize     int     `toml:"history_size"`
	ZScoreThreshold float64 `toml:"z_score_threshold"`
}

type ArchiveSection struct {
	Capacity int `toml:"capacity"`
}

// FieldSpec is one field's calibration entry in the YAML table. Nil
// limits leave the corresponding check unconfigured for that field.
type FieldSpec struct {
	Default      float64  `yaml:"default"`
	Min          *float64 `yaml:"min"`
	Max          *float64 `yaml:"max"`
	MaxRate      *float64 `yaml:"max_rate"`
	LowWarning   *float64 `yaml:"low_warning"`
	LowCritical  *float64 `yaml:"low_critical"`
	HighWarning  *float64 `yaml:"high_warning"`
	HighCritical *float64 `yaml:"high_critical"`
}

// FieldTable is the closed set of known field identifiers with their
// calibration. Unknown fields on the wire pass through unchecked.
type FieldTable struct {
	Fields map[string]FieldSpec `yaml:"fields"`
}

// LoadLinkConfig reads and validates a TOML link config.
func LoadLinkConfig(path string) (LinkConfig, error) {
	var cfg LinkConfig
	if err := loadToml(path, &cfg); err != nil {
		return LinkConfig{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

// LoadFieldTable reads and validates a YAML field calibration table.
func LoadFieldTable(path string) (FieldTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldTable{}, fmt.Errorf("field table load failed (%s): %w", path, err)
	}
	var table FieldTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return FieldTable{}, fmt.Errorf("field table parse failed (%s): %w", path, err)
	}
	if err := table.Validate(); err != nil {
		return FieldTable{}, err
	}
	return table, nil
}

func (c *LinkConfig) applyDefaults() {
	if c.Stream.Name == "" {
		c.Stream.Name = "downlink"
	}
	if c.Stream.Encoding == "" {
		c.Stream.Encoding = "raw"
	}
	if len(c.Link.Modes) == 0 {
		c.Link.Modes = []string{"set_missing", "distort_numeric", "wrong_type"}
	}
	if c.Cleaner.HistorySize == 0 {
		c.Cleaner.HistorySize = 10
	}
	if c.Cleaner.ExtremeBound == 0 {
		c.Cleaner.ExtremeBound = 1e9
	}
	if c.Cleaner.MaxConsecutiveLoss == 0 {
		c.Cleaner.MaxConsecutiveLoss = 3
	}
	if c.Detector.HistorySize == 0 {
		c.Detector.HistorySize = 50
	}
	if c.Detector.ZScoreThreshold == 0 {
		c.Detector.ZScoreThreshold = 3.0
	}
	if c.Archive.Capacity == 0 {
		c.Archive.Capacity = 10000
	}
}

// Validate delegates to the stage configs this file materializes into, so
// a config that loads is a config every stage constructor will accept.
func (c LinkConfig) Validate() error {
	if strings.TrimSpace(c.Stream.Name) == "" {
		return fmt.Errorf("link config missing stream name")
	}
	if err := c.CorruptorConfig().Validate(); err != nil {
		return err
	}
	if err := c.CleanerConfig(FieldTable{}).Validate(); err != nil {
		return err
	}
	if err := c.DetectorConfig(FieldTable{}).Validate(); err != nil {
		return err
	}
	if c.Archive.Capacity <= 0 {
		return fmt.Errorf("link config archive capacity must be positive: %d", c.Archive.Capacity)
	}
	return nil
}

// Validate rejects inverted ranges and non-positive rates up front.
func (t FieldTable) Validate() error {
	for name, spec := range t.Fields {
		if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
			return fmt.Errorf("field table %s: min %v exceeds max %v", name, *spec.Min, *spec.Max)
		}
		if spec.MaxRate != nil && *spec.MaxRate <= 0 {
			return fmt.Errorf("field table %s: max_rate must be positive: %v", name, *spec.MaxRate)
		}
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
