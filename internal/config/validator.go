package config

import (
	"fmt"
	"strings"

	"github.com/mteodoro/riskstream/internal/latency"
)

// Validate checks the profile before a run starts. Configuration problems
// fail fast here; nothing is silently clamped.
func Validate(p *Profile) error {
	var errs []string

	if p.Version == "" {
		errs = append(errs, "version is required")
	}
	if p.Dataset == "" {
		errs = append(errs, "dataset path is required")
	}
	if p.Producer.AnomalyRate < 0 || p.Producer.AnomalyRate > 1 {
		errs = append(errs, fmt.Sprintf("producer.anomaly_rate must be in [0, 1], got %v", p.Producer.AnomalyRate))
	}
	if p.Producer.MaxEvents < 0 {
		errs = append(errs, "producer.max_events must not be negative")
	}
	if p.Producer.MaxDurationMinutes < 0 {
		errs = append(errs, "producer.max_duration_minutes must not be negative")
	}
	if p.Latency.BaseMs < 0 {
		errs = append(errs, "latency.base_ms must not be negative")
	}
	if p.Latency.JitterMs < 0 {
		errs = append(errs, "latency.jitter_ms must not be negative")
	}
	if p.Latency.SpikeProbability < 0 || p.Latency.SpikeProbability > 1 {
		errs = append(errs, fmt.Sprintf("latency.spike_probability must be in [0, 1], got %v", p.Latency.SpikeProbability))
	}
	if name := p.Latency.NetworkCondition; name != "" {
		if _, ok := latency.LookupCondition(name); !ok {
			errs = append(errs, fmt.Sprintf("latency.network_condition %q is not one of %v", name, latency.ConditionNames()))
		}
	}
	for i, w := range p.Windows {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("window_seconds[%d] must be positive, got %d", i, w))
		}
	}
	if p.Archive.BatchSize < 0 {
		errs = append(errs, "archive.batch_size must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
