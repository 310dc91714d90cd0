// Package latency models per-event network delay with jitter and occasional
// spikes. The delay is simulated by sleeping, not measured.
package latency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

var (
	// ErrUnknownCondition is returned for a network-condition name outside
	// the preset table.
	ErrUnknownCondition = errors.New("latency: unknown network condition")

	// ErrInvalidHour is returned for an hour of day outside [0, 23].
	ErrInvalidHour = errors.New("latency: hour of day must be between 0 and 23")
)

// Condition is a named network-quality preset.
type Condition struct {
	BaseMs    float64
	JitterMs  float64
	SpikeProb float64
}

var conditions = map[string]Condition{
	"excellent": {BaseMs: 10, JitterMs: 5, SpikeProb: 0.001},
	"good":      {BaseMs: 50, JitterMs: 20, SpikeProb: 0.01},
	"normal":    {BaseMs: 100, JitterMs: 50, SpikeProb: 0.05},
	"poor":      {BaseMs: 300, JitterMs: 150, SpikeProb: 0.15},
	"terrible":  {BaseMs: 1000, JitterMs: 500, SpikeProb: 0.30},
}

// LookupCondition returns the preset for name, if it exists.
func LookupCondition(name string) (Condition, bool) {
	c, ok := conditions[name]
	return c, ok
}

// ConditionNames returns the valid preset names, sorted.
func ConditionNames() []string {
	names := make([]string, 0, len(conditions))
	for name := range conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats summarize the sampled latency distribution.
type Stats struct {
	Count      int
	MeanMs     float64
	MedianMs   float64
	MinMs      float64
	MaxMs      float64
	StdDevMs   float64
	SpikeCount int
	SpikeRate  float64
}

// PaceResult describes one pacing pause.
type PaceResult struct {
	TargetMs  float64
	ElapsedMs float64
	IsSpike   bool
}

// Simulator draws per-event latencies from a normal distribution around a
// base, with a configurable probability of multiplicative spikes.
type Simulator struct {
	baseMs    float64
	jitterMs  float64
	spikeProb float64
	rng       *rand.Rand

	samples    []float64
	spikeCount int
}

// New creates a Simulator. rng is owned by the simulator.
func New(baseMs, jitterMs, spikeProb float64, rng *rand.Rand) *Simulator {
	return &Simulator{
		baseMs:    baseMs,
		jitterMs:  jitterMs,
		spikeProb: spikeProb,
		rng:       rng,
	}
}

// Sample draws one latency in milliseconds: gauss(base, jitter/2) clamped to
// zero, inflated by a uniform factor in [5, 20] with spike probability. Every
// draw is recorded for Stats.
func (s *Simulator) Sample() float64 {
	l := s.rng.NormFloat64()*(s.jitterMs/2) + s.baseMs
	if l < 0 {
		l = 0
	}
	if s.rng.Float64() < s.spikeProb {
		l *= 5 + s.rng.Float64()*15
		s.spikeCount++
	}
	s.samples = append(s.samples, l)
	return l
}

// Pace blocks for one sampled latency. This is the single suspension point
// in the pipeline; cancelling ctx ends the pause early.
func (s *Simulator) Pace(ctx context.Context) PaceResult {
	target := s.Sample()
	start := time.Now()

	timer := time.NewTimer(time.Duration(target * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	return PaceResult{
		TargetMs:  target,
		ElapsedMs: float64(time.Since(start)) / float64(time.Millisecond),
		IsSpike:   target > 3*s.baseMs,
	}
}

// SetNetworkCondition applies a named preset, replacing base, jitter, and
// spike probability at once.
func (s *Simulator) SetNetworkCondition(name string) error {
	c, ok := conditions[name]
	if !ok {
		return fmt.Errorf("%w: %q (options: %v)", ErrUnknownCondition, name, ConditionNames())
	}
	s.baseMs = c.BaseMs
	s.jitterMs = c.JitterMs
	s.spikeProb = c.SpikeProb
	return nil
}

// ApplyTimeOfDayFactor scales the base latency by the peak/off-peak factor
// for the given hour: business hours run hot, night hours run quiet.
func (s *Simulator) ApplyTimeOfDayFactor(hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: got %d", ErrInvalidHour, hour)
	}
	switch {
	case (hour >= 9 && hour <= 12) || (hour >= 14 && hour <= 17):
		s.baseMs *= 1.5
	case hour >= 20:
		s.baseMs *= 1.2
	case hour <= 6:
		s.baseMs *= 0.5
	}
	return nil
}

// BaseMs returns the current base latency.
func (s *Simulator) BaseMs() float64 {
	return s.baseMs
}

// Stats computes the distribution summary over all recorded samples.
func (s *Simulator) Stats() Stats {
	n := len(s.samples)
	if n == 0 {
		return Stats{}
	}

	sorted := make([]float64, n)
	copy(sorted, s.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range s.samples {
		sum += v
	}
	mean := sum / float64(n)

	var sqDiff float64
	for _, v := range s.samples {
		d := v - mean
		sqDiff += d * d
	}
	stddev := 0.0
	if n > 1 {
		stddev = math.Sqrt(sqDiff / float64(n-1))
	}

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Stats{
		Count:      n,
		MeanMs:     mean,
		MedianMs:   median,
		MinMs:      sorted[0],
		MaxMs:      sorted[n-1],
		StdDevMs:   stddev,
		SpikeCount: s.spikeCount,
		SpikeRate:  float64(s.spikeCount) / float64(n),
	}
}

// ResetStats discards recorded samples and the spike counter.
func (s *Simulator) ResetStats() {
	s.samples = nil
	s.spikeCount = 0
}
