package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultLink returns the built-in link configuration, identical to the
// generated template.
func DefaultLink() LinkConfig {
	var cfg LinkConfig
	if err := toml.Unmarshal([]byte(linkTemplate), &cfg); err != nil {
		panic("config: link template does not parse: " + err.Error())
	}
	cfg.applyDefaults()
	return cfg
}

// DefaultFields returns the built-in rover calibration table, identical
// to the generated template.
func DefaultFields() FieldTable {
	var t FieldTable
	if err := yaml.Unmarshal([]byte(fieldsTemplate), &t); err != nil {
		panic("config: fields template does not parse: " + err.Error())
	}
	return t
}

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "link":
		return linkTemplate, nil
	case "fields":
		return fieldsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const linkTemplate = `[stream]
name = "downlink"
encoding = "raw"
field_table = "fields.yaml"

[link]
loss_probability = 0.01
field_corruption_probability = 0.05
jitter_stddev = 0.1
modes = ["set_missing", "distort_numeric", "wrong_type"]
seed = 42

[cleaner]
history_size = 10
extreme_bound = 1e9
max_consecutive_loss = 3
strict_ordering = false

[detector]
history_size = 50
z_score_threshold = 3.0

[archive]
capacity = 10000
`

const fieldsTemplate = `fields:
  battery_soc:
    default: 85.0
    min: 0.0
    max: 100.0
    max_rate: 5.0
    low_warning: 30.0
    low_critical: 15.0
  battery_voltage:
    default: 28.0
    min: 20.0
    max: 36.0
    max_rate: 2.0
    low_warning: 24.0
    low_critical: 22.0
    high_warning: 34.0
    high_critical: 35.0
  battery_current:
    default: 0.5
    min: -10.0
    max: 10.0
  battery_temp:
    default: 20.0
    min: -40.0
    max: 85.0
    max_rate: 5.0
    low_warning: -10.0
    low_critical: -20.0
    high_warning: 45.0
    high_critical: 60.0
  solar_voltage:
    default: 32.0
    min: 0.0
    max: 40.0
  solar_current:
    default: 1.5
    min: 0.0
    max: 10.0
  cpu_temp:
    default: 30.0
    min: -40.0
    max: 105.0
    max_rate: 10.0
    high_warning: 70.0
    high_critical: 85.0
  motor_temp:
    default: 30.0
    min: -40.0
    max: 90.0
    high_warning: 55.0
    high_critical: 70.0
  chassis_temp:
    default: 15.0
    min: -80.0
    max: 60.0
  roll:
    default: 0.0
    min: -180.0
    max: 180.0
    max_rate: 30.0
  pitch:
    default: 0.0
    min: -90.0
    max: 90.0
    max_rate: 30.0
  heading:
    default: 0.0
    min: 0.0
    max: 360.0
  velocity:
    default: 0.0
    min: 0.0
    max: 1.0
    max_rate: 0.5
`
