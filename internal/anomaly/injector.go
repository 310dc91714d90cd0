// Package anomaly probabilistically corrupts events with realistic
// data-quality and fraud-like patterns.
package anomaly

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mteodoro/riskstream/internal/event"
)

// ErrInvalidRate is returned when the anomaly rate is outside [0, 1].
var ErrInvalidRate = errors.New("anomaly: rate must be between 0.0 and 1.0")

// Stats report the injector's running counters.
type Stats struct {
	TotalProcessed    int64
	AnomaliesInjected int64
	ObservedRate      float64
	ConfiguredRate    float64
}

// Injector mutates a configurable fraction of events, applying exactly one
// of six corruption patterns per injected event. The input event is never
// modified; patterns work on a deep clone.
type Injector struct {
	rate     float64
	rng      *rand.Rand
	patterns []func(*event.Event) *event.Event

	processed int64
	injected  int64
}

// New creates an Injector. rate is the per-event injection probability and
// must lie in [0, 1]; rng is owned by the injector.
func New(rate float64, rng *rand.Rand) (*Injector, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	inj := &Injector{rate: rate, rng: rng}
	inj.patterns = []func(*event.Event) *event.Event{
		inj.unusualCreditLimit,
		inj.severePaymentDelays,
		inj.billingMismatch,
		inj.demographicInconsistency,
		inj.duplicateEvent,
		inj.missingFields,
	}
	return inj, nil
}

// Inject runs one Bernoulli trial with the configured rate. On a hit it
// returns an independent copy with one uniformly-chosen pattern applied and
// exactly one flag appended; on a miss it returns ev unchanged.
func (inj *Injector) Inject(ev *event.Event) *event.Event {
	inj.processed++
	if inj.rng.Float64() >= inj.rate {
		return ev
	}
	mutated := inj.patterns[inj.rng.Intn(len(inj.patterns))](ev)
	inj.injected++
	return mutated
}

// SetRate retunes the injection probability, validated the same way as at
// construction. Used by live profile reloads between loop iterations.
func (inj *Injector) SetRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	inj.rate = rate
	return nil
}

// Stats returns the running counters and the empirically observed rate.
func (inj *Injector) Stats() Stats {
	observed := 0.0
	if inj.processed > 0 {
		observed = float64(inj.injected) / float64(inj.processed)
	}
	return Stats{
		TotalProcessed:    inj.processed,
		AnomaliesInjected: inj.injected,
		ObservedRate:      observed,
		ConfiguredRate:    inj.rate,
	}
}

// randInt draws uniformly from [lo, hi], both ends inclusive.
func (inj *Injector) randInt(lo, hi int) int64 {
	return int64(lo + inj.rng.Intn(hi-lo+1))
}
