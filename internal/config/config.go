// Package config loads the pool's YAML configuration surface, the same
// way the teacher's internal/cli.Config and cmd/demo.Config load their
// worker/WAL/snapshot/metrics blocks via gopkg.in/yaml.v3, adapted here
// to the configuration fields spec §6 names.
package config

import (
	"fmt"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Workload is the workload_profile enum from spec §6.
type Workload string

const (
	WorkloadCPU   Workload = "cpu"
	WorkloadIO    Workload = "io"
	WorkloadMixed Workload = "mixed"
)

// LogLevel is the log_level enum from spec §6.
type LogLevel string

const (
	LogOff   LogLevel = "off"
	LogError LogLevel = "error"
	LogWarn  LogLevel = "warn"
	LogInfo  LogLevel = "info"
	LogDebug LogLevel = "debug"
	LogTrace LogLevel = "trace"
)

// MaxWorkers holds either an explicit worker count or the "auto" sentinel
// (resolved to runtime.NumCPU() by Resolved). YAML allows this field
// to be written as either an integer or the literal string "auto".
type MaxWorkers struct {
	Auto  bool
	Value int
}

func (m MaxWorkers) Resolved() int {
	if m.Auto {
		return runtime.NumCPU()
	}
	return m.Value
}

func (m MaxWorkers) MarshalYAML() (interface{}, error) {
	if m.Auto {
		return "auto", nil
	}
	return m.Value, nil
}

func (m *MaxWorkers) UnmarshalYAML(value *yaml.Node) error {
	var asInt int
	if err := value.Decode(&asInt); err == nil {
		if asInt <= 0 {
			return fmt.Errorf("config: max_workers must be positive, got %d", asInt)
		}
		m.Auto = false
		m.Value = asInt
		return nil
	}

	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("config: max_workers must be an integer or \"auto\": %w", err)
	}
	if asString != "auto" {
		return fmt.Errorf("config: max_workers string value must be \"auto\", got %q", asString)
	}
	m.Auto = true
	m.Value = 0
	return nil
}

// Config is the complete pool configuration surface (spec §6). Field
// names mirror the configuration surface table; durations are expressed
// in milliseconds on the wire, matching the teacher's *_ms YAML fields.
type Config struct {
	MaxWorkers       MaxWorkers `yaml:"max_workers"`
	MinWorkers       int        `yaml:"min_workers"`
	IdleTimeoutMs    int        `yaml:"idle_timeout_ms"`
	TaskTimeoutMs    int        `yaml:"task_timeout_ms"`
	MaxMemoryPercent int        `yaml:"max_memory_percent"`
	Workload         Workload   `yaml:"workload"`
	Adaptive         bool       `yaml:"adaptive"`
	LogLevel         LogLevel   `yaml:"log_level"`

	// userSetIdleTimeout records whether idle_timeout_ms was present in
	// the document that produced this Config, so ApplyWorkloadDefaults
	// can tell an explicit override from a workload-profile default.
	userSetIdleTimeout bool
}

// IdleTimeout returns idle_timeout_ms as a time.Duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

// TaskTimeout returns task_timeout_ms as a time.Duration, or zero if
// disabled.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMs) * time.Millisecond
}

// UserSetIdleTimeout reports whether this Config document explicitly set
// idle_timeout_ms, as opposed to inheriting it from a workload preset.
func (c Config) UserSetIdleTimeout() bool {
	return c.userSetIdleTimeout
}

// workloadIdleDefaultsMs are the idle_timeout_ms presets applied by
// ApplyWorkloadDefaults when a workload profile is set and the document
// did not explicitly override idle_timeout_ms (spec §4.1, §6).
var workloadIdleDefaultsMs = map[Workload]int{
	WorkloadCPU:   2000,
	WorkloadIO:    10000,
	WorkloadMixed: 5000,
}

// WorkloadIdleDefaultMs returns the idle_timeout_ms preset for a
// workload profile, and whether one exists.
func WorkloadIdleDefaultMs(w Workload) (int, bool) {
	ms, ok := workloadIdleDefaultsMs[w]
	return ms, ok
}

// Default returns the built-in configuration defaults (spec §6), before
// any YAML document or workload preset is applied.
func Default() Config {
	return Config{
		MaxWorkers:       MaxWorkers{Auto: true},
		MinWorkers:       1,
		IdleTimeoutMs:    5000,
		TaskTimeoutMs:    0,
		MaxMemoryPercent: 0,
		Workload:         WorkloadMixed,
		Adaptive:         false,
		LogLevel:         LogError,
	}
}

// Load reads and parses a YAML configuration document, starting from
// Default() so any field the document omits keeps its default value.
func Load(data []byte) (Config, error) {
	cfg := Default()
	raw := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if _, ok := raw["idle_timeout_ms"]; ok {
		cfg.userSetIdleTimeout = true
	}
	cfg.ApplyWorkloadDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyWorkloadDefaults rewrites IdleTimeoutMs from the workload preset
// table unless this document explicitly set idle_timeout_ms itself
// (spec §4.1: "Changing workload_profile rewrites idle_timeout unless
// the user overrode it in the same call").
func (c *Config) ApplyWorkloadDefaults() {
	if c.userSetIdleTimeout {
		return
	}
	if ms, ok := workloadIdleDefaultsMs[c.Workload]; ok {
		c.IdleTimeoutMs = ms
	}
}

// Validate checks the invariants spec §6 and §3 place on configuration
// values.
func (c Config) Validate() error {
	if c.MinWorkers < 0 {
		return fmt.Errorf("config: min_workers must be >= 0, got %d", c.MinWorkers)
	}
	if !c.MaxWorkers.Auto && c.MinWorkers > c.MaxWorkers.Value {
		return fmt.Errorf("config: min_workers (%d) must not exceed max_workers (%d)", c.MinWorkers, c.MaxWorkers.Value)
	}
	if c.MaxMemoryPercent < 0 || c.MaxMemoryPercent > 100 {
		return fmt.Errorf("config: max_memory_percent must be in [0,100], got %d", c.MaxMemoryPercent)
	}
	switch c.Workload {
	case WorkloadCPU, WorkloadIO, WorkloadMixed:
	default:
		return fmt.Errorf("config: unknown workload %q", c.Workload)
	}
	switch c.LogLevel {
	case LogOff, LogError, LogWarn, LogInfo, LogDebug, LogTrace:
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
