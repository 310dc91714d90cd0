package config

import "time"

// Profile is the top-level YAML structure describing one simulation run.
type Profile struct {
	Version  string       `yaml:"version"`
	Dataset  string       `yaml:"dataset"`
	Producer ProducerConf `yaml:"producer"`
	Latency  LatencyConf  `yaml:"latency"`
	Windows  []int        `yaml:"window_seconds"`
	Archive  ArchiveConf  `yaml:"archive"`
}

// ProducerConf tunes the run loop and the anomaly model.
type ProducerConf struct {
	AnomalyRate        float64 `yaml:"anomaly_rate"`
	MaxEvents          int     `yaml:"max_events"`
	MaxDurationMinutes int     `yaml:"max_duration_minutes"`
	ReportEvery        int     `yaml:"report_every"`
	ShowDetails        bool    `yaml:"show_details"`
	Seed               int64   `yaml:"seed"`
}

// LatencyConf configures the simulated network. A named condition overrides
// the explicit base/jitter/spike values.
type LatencyConf struct {
	BaseMs           float64 `yaml:"base_ms"`
	JitterMs         float64 `yaml:"jitter_ms"`
	SpikeProbability float64 `yaml:"spike_probability"`
	NetworkCondition string  `yaml:"network_condition"`
}

// ArchiveConf enables the bronze object-store archive sink.
type ArchiveConf struct {
	Enabled   bool `yaml:"enabled"`
	BatchSize int  `yaml:"batch_size"`
}

// MaxDuration returns the wall-clock budget as a duration.
func (p ProducerConf) MaxDuration() time.Duration {
	return time.Duration(p.MaxDurationMinutes) * time.Minute
}
