package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleProfile = `version: "1"
dataset: data/sample.csv
producer:
  anomaly_rate: 0.08
  max_events: 100
  report_every: 20
latency:
  network_condition: normal
window_seconds: [300, 3600]
archive:
  enabled: true
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l, err := NewLoader(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	p := l.Profile()
	if p.Version != "1" || p.Dataset != "data/sample.csv" {
		t.Errorf("profile header mismatch: %+v", p)
	}
	if p.Producer.AnomalyRate != 0.08 || p.Producer.MaxEvents != 100 {
		t.Errorf("producer mismatch: %+v", p.Producer)
	}
	if p.Latency.NetworkCondition != "normal" {
		t.Errorf("latency mismatch: %+v", p.Latency)
	}
	if len(p.Windows) != 2 || p.Windows[0] != 300 {
		t.Errorf("windows mismatch: %v", p.Windows)
	}
}

func TestNewLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestNewLoaderInvalidYAML(t *testing.T) {
	if _, err := NewLoader(writeProfile(t, "producer: [not a map")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestDefaults(t *testing.T) {
	l, err := NewLoader(writeProfile(t, "version: \"1\"\ndataset: d.csv\n"))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	p := l.Profile()
	if p.Producer.ReportEvery != 20 {
		t.Errorf("report_every default = %d, want 20", p.Producer.ReportEvery)
	}
	if p.Producer.MaxDurationMinutes != 120 {
		t.Errorf("unbounded run must default to a 120 minute cap, got %d", p.Producer.MaxDurationMinutes)
	}
	if p.Latency.BaseMs != 100 || p.Latency.JitterMs != 50 || p.Latency.SpikeProbability != 0.05 {
		t.Errorf("latency defaults: %+v", p.Latency)
	}
	if len(p.Windows) != 2 || p.Windows[0] != 300 || p.Windows[1] != 3600 {
		t.Errorf("window defaults: %v", p.Windows)
	}
}

func TestDefaultsArchiveBatchSize(t *testing.T) {
	l, err := NewLoader(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if got := l.Profile().Archive.BatchSize; got != 50 {
		t.Errorf("archive batch default = %d, want 50", got)
	}
}

func TestDefaultsKeepExplicitBounds(t *testing.T) {
	l, err := NewLoader(writeProfile(t, "version: \"1\"\ndataset: d.csv\nproducer:\n  max_events: 10\n"))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if got := l.Profile().Producer.MaxDurationMinutes; got != 0 {
		t.Errorf("counted run must not gain a duration cap, got %d", got)
	}
}

func TestMaxDuration(t *testing.T) {
	p := ProducerConf{MaxDurationMinutes: 90}
	if got := p.MaxDuration(); got != 90*time.Minute {
		t.Errorf("MaxDuration = %v, want 90m", got)
	}
}

func TestWatchReload(t *testing.T) {
	path := writeProfile(t, sampleProfile)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	reloaded := make(chan *Profile, 1)
	l.OnChange(func(p *Profile) {
		select {
		case reloaded <- p:
		default:
		}
	})

	stop, err := l.Watch()
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	updated := "version: \"2\"\ndataset: d.csv\nproducer:\n  anomaly_rate: 0.5\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite profile: %v", err)
	}

	select {
	case p := <-reloaded:
		if p.Version != "2" || p.Producer.AnomalyRate != 0.5 {
			t.Errorf("reloaded profile mismatch: %+v", p)
		}
		if l.Profile().Version != "2" {
			t.Error("Profile() still serves the old version")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func TestWatchKeepsOldProfileOnBadReload(t *testing.T) {
	path := writeProfile(t, sampleProfile)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	stop, err := l.Watch()
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("producer: [broken"), 0o644); err != nil {
		t.Fatalf("rewrite profile: %v", err)
	}
	// Give the watcher a beat to process the event.
	time.Sleep(300 * time.Millisecond)

	if l.Profile().Version != "1" {
		t.Error("broken reload must keep the previous profile")
	}
}
