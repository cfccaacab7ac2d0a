// Package config implements the ambient configuration seam the teacher's
// out-of-scope collaborator (SAMRAI's tbox::Database) stands in for here:
// a small typed key/value Database interface, one YAML-backed
// implementation, and the Options bundle that balancer.New takes and
// validates once at construction (spec.md §6).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Database is the injected configuration seam: get a typed value by key,
// falling back to a caller-supplied default if the key is absent.
type Database interface {
	GetDoubleWithDefault(key string, def float64) float64
	GetIntWithDefault(key string, def int) int
	GetBoolWithDefault(key string, def bool) bool
}

// YAMLDatabase is a Database backed by a parsed YAML document — a flat
// map of scalar values, read once at construction.
type YAMLDatabase struct {
	values map[string]any
}

// LoadYAMLDatabase reads and parses a YAML configuration file into a
// Database.
func LoadYAMLDatabase(path string) (*YAMLDatabase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return ParseYAMLDatabase(data)
}

// ParseYAMLDatabase parses raw YAML bytes into a Database, without
// touching the filesystem.
func ParseYAMLDatabase(data []byte) (*YAMLDatabase, error) {
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return &YAMLDatabase{values: values}, nil
}

func (d *YAMLDatabase) GetDoubleWithDefault(key string, def float64) float64 {
	v, ok := d.values[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func (d *YAMLDatabase) GetIntWithDefault(key string, def int) int {
	v, ok := d.values[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func (d *YAMLDatabase) GetBoolWithDefault(key string, def bool) bool {
	v, ok := d.values[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Options is the typed bundle balancer.New takes and validates once at
// construction (spec.md §6's configuration table).
type Options struct {
	FlexibleLoadTolerance float64
	MaxCycleSpreadRatio   int
	DevReportLoadBalance  bool
	DevSummarizeMap       bool
}

// DefaultOptions returns the spec.md §6 defaults.
func DefaultOptions() Options {
	return Options{
		FlexibleLoadTolerance: 0.05,
		MaxCycleSpreadRatio:   1_000_000,
		DevReportLoadBalance:  false,
		DevSummarizeMap:       false,
	}
}

// LoadOptions reads Options from db, falling back to DefaultOptions for
// any key it doesn't set.
func LoadOptions(db Database) Options {
	d := DefaultOptions()
	return Options{
		FlexibleLoadTolerance: db.GetDoubleWithDefault("flexible_load_tolerance", d.FlexibleLoadTolerance),
		MaxCycleSpreadRatio:   db.GetIntWithDefault("max_cycle_spread_ratio", d.MaxCycleSpreadRatio),
		DevReportLoadBalance:  db.GetBoolWithDefault("dev_report_load_balance", d.DevReportLoadBalance),
		DevSummarizeMap:       db.GetBoolWithDefault("dev_summarize_map", d.DevSummarizeMap),
	}
}

// Validate checks Options against the bounds spec.md §6 implies: a
// tolerance in [0,1) and a spread ratio > 1.
func (o Options) Validate() error {
	if o.FlexibleLoadTolerance < 0 || o.FlexibleLoadTolerance >= 1 {
		return fmt.Errorf("config: flexible_load_tolerance %v out of range [0,1)", o.FlexibleLoadTolerance)
	}
	if o.MaxCycleSpreadRatio <= 1 {
		return fmt.Errorf("config: max_cycle_spread_ratio %d must be > 1", o.MaxCycleSpreadRatio)
	}
	return nil
}
