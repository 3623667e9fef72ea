// Package config loads the engine configuration from a YAML file and
// optionally watches it for changes.
package config

// Config is the top-level YAML structure.
type Config struct {
	Scheduling SchedulingConf `yaml:"scheduling"`
	Log        LogConf        `yaml:"log"`
}

// SchedulingConf holds the analysis engine switches.
type SchedulingConf struct {
	// LegacyScheduling restricts dispatch to legacy-capable analyzers.
	LegacyScheduling bool `yaml:"legacy_scheduling"`

	// DefaultTimeZone is used for calendar users without a configured
	// timezone.
	DefaultTimeZone string `yaml:"default_timezone"`

	// ConflictChecks disables free/busy conflict lookups when false.
	ConflictChecks bool `yaml:"conflict_checks"`

	// RenderFormat selects the default sentence rendering ("text" or
	// "html").
	RenderFormat string `yaml:"render_format"`
}

// LogConf holds logging settings.
type LogConf struct {
	Level string `yaml:"level"`
}

func applyDefaults(cfg *Config) {
	if cfg.Scheduling.DefaultTimeZone == "" {
		cfg.Scheduling.DefaultTimeZone = "UTC"
	}
	if cfg.Scheduling.RenderFormat == "" {
		cfg.Scheduling.RenderFormat = "text"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
