// Package sim wires the generator, injector, windows, and latency model into
// a single sequential run loop feeding one or more external sinks.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mteodoro/riskstream/internal/anomaly"
	"github.com/mteodoro/riskstream/internal/event"
	"github.com/mteodoro/riskstream/internal/generator"
	"github.com/mteodoro/riskstream/internal/latency"
	"github.com/mteodoro/riskstream/internal/metrics"
	"github.com/mteodoro/riskstream/internal/window"
)

// Sink forwards one serialized event to an external destination. The
// partition key is the event's customer id.
type Sink interface {
	Name() string
	Send(ctx context.Context, payload []byte, partitionKey string) error
}

// Options tune the run loop.
type Options struct {
	MaxEvents   int           // stop after this many events; <= 0 means unbounded
	MaxDuration time.Duration // stop after this wall-clock budget; <= 0 means unbounded
	ReportEvery int           // window-snapshot cadence in events; <= 0 disables
	ShowDetails bool          // log a line per emitted event
}

// Tuning is the subset of the profile that may change while a run is active.
type Tuning struct {
	NetworkCondition string
	AnomalyRate      float64
}

// Summary is the final accounting for a run, reported even when the run was
// cancelled part-way.
type Summary struct {
	EventsSent int
	Errors     int
	Elapsed    time.Duration
	Generator  generator.Stats
	Injector   anomaly.Stats
	Latency    latency.Stats
	Windows    []window.Stats
}

// Driver owns the sequential simulation pipeline: generate, inject, record
// into windows, emit, pace. There is exactly one logical thread of control;
// the latency pause is the only suspension point.
type Driver struct {
	gen     *generator.Generator
	inj     *anomaly.Injector
	lat     *latency.Simulator
	windows []*window.Aggregator
	sinks   []Sink
	logger  *slog.Logger
	opts    Options

	// pending holds a retune request from another goroutine (profile hot
	// reload); the loop applies it at the top of the next iteration so the
	// pipeline itself stays single-threaded.
	pending atomic.Pointer[Tuning]

	eventsSent int
	errors     int
}

// New creates a Driver. At least one sink is expected; windows may be empty.
func New(gen *generator.Generator, inj *anomaly.Injector, lat *latency.Simulator,
	windows []*window.Aggregator, sinks []Sink, logger *slog.Logger, opts Options) *Driver {
	if opts.ReportEvery == 0 {
		opts.ReportEvery = 20
	}
	return &Driver{
		gen:     gen,
		inj:     inj,
		lat:     lat,
		windows: windows,
		sinks:   sinks,
		logger:  logger.With("component", "driver"),
		opts:    opts,
	}
}

// Retune requests a live change of network condition and anomaly rate. The
// change takes effect before the next generated event.
func (d *Driver) Retune(t Tuning) {
	d.pending.Store(&t)
}

// Run executes the pipeline until the stop predicate trips or ctx is
// cancelled, then returns the combined summary.
func (d *Driver) Run(ctx context.Context) Summary {
	start := time.Now()
	stop := d.stopPredicate(start)

	d.logger.Info("run starting",
		"max_events", d.opts.MaxEvents,
		"max_duration", d.opts.MaxDuration,
		"sinks", len(d.sinks),
		"windows", len(d.windows))

	i := 0
	for ctx.Err() == nil && !stop(i) {
		d.applyPendingTuning()

		ev := d.gen.Next(generator.EventTypeCreditAssessment, start.Add(time.Duration(i)*time.Second))
		metrics.EventsGenerated.Inc()

		ev = d.inj.Inject(ev)
		if ev.Anomalous() {
			metrics.AnomaliesInjected.WithLabelValues(ev.AnomalyFlags[0].Type).Inc()
		}

		now := time.Now()
		for _, w := range d.windows {
			w.Add(ev, now)
		}

		d.emit(ctx, ev)
		i++

		res := d.lat.Pace(ctx)
		metrics.SimulatedLatencyMs.Observe(res.TargetMs)
		if res.IsSpike {
			metrics.LatencySpikes.Inc()
			d.logger.Warn("latency spike",
				"target_ms", fmt.Sprintf("%.0f", res.TargetMs),
				"elapsed_ms", fmt.Sprintf("%.0f", res.ElapsedMs))
		}

		if d.opts.ReportEvery > 0 && i%d.opts.ReportEvery == 0 {
			d.report()
		}
	}

	summary := d.summary(start)
	d.logger.Info("run finished",
		"events_sent", summary.EventsSent,
		"errors", summary.Errors,
		"anomalies", summary.Injector.AnomaliesInjected,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary
}

// stopPredicate folds the count target and the wall-clock budget into one
// check so counted and time-boxed runs share a single code path.
func (d *Driver) stopPredicate(start time.Time) func(i int) bool {
	return func(i int) bool {
		if d.opts.MaxEvents > 0 && i >= d.opts.MaxEvents {
			return true
		}
		if d.opts.MaxDuration > 0 && time.Since(start) >= d.opts.MaxDuration {
			return true
		}
		return false
	}
}

func (d *Driver) applyPendingTuning() {
	t := d.pending.Swap(nil)
	if t == nil {
		return
	}
	if t.NetworkCondition != "" {
		if err := d.lat.SetNetworkCondition(t.NetworkCondition); err != nil {
			d.logger.Warn("retune skipped", "err", err)
		} else {
			d.logger.Info("network condition retuned", "condition", t.NetworkCondition)
		}
	}
	if err := d.inj.SetRate(t.AnomalyRate); err != nil {
		d.logger.Warn("retune skipped", "err", err)
	} else {
		d.logger.Info("anomaly rate retuned", "rate", t.AnomalyRate)
	}
}

// emit serializes ev and hands it to every sink. Sink failures are counted,
// not retried; delivery guarantees are out of scope for the simulator.
func (d *Driver) emit(ctx context.Context, ev *event.Event) {
	payload, err := ev.Marshal()
	if err != nil {
		d.errors++
		metrics.SendErrors.Inc()
		d.logger.Error("event marshal failed", "event_id", ev.EventID, "err", err)
		return
	}

	for _, s := range d.sinks {
		if err := s.Send(ctx, payload, ev.Customer.CustomerID); err != nil {
			d.errors++
			metrics.SendErrors.Inc()
			d.logger.Error("sink send failed",
				"sink", s.Name(), "event_id", ev.EventID, "err", err)
			continue
		}
		d.eventsSent++
		metrics.EventsSent.Inc()
	}

	if d.opts.ShowDetails {
		d.logger.Info("event emitted",
			"event_id", ev.EventID,
			"customer_id", ev.Customer.CustomerID,
			"risk", ev.Risk.RiskLevel,
			"anomaly", ev.Anomalous())
	}
}

func (d *Driver) report() {
	for _, w := range d.windows {
		st := w.Snapshot()
		label := st.WindowLength.String()
		metrics.WindowEvents.WithLabelValues(label).Set(float64(st.TotalEvents))
		metrics.WindowAnomalyRate.WithLabelValues(label).Set(st.AnomalyRate)
		d.logger.Info("window snapshot",
			"window", label,
			"events", st.TotalEvents,
			"high_risk", st.HighRiskEvents,
			"anomalies", st.Anomalies,
			"anomaly_rate", fmt.Sprintf("%.3f", st.AnomalyRate),
			"avg_credit_limit", fmt.Sprintf("%.0f", st.AvgCreditLimit))
	}
}

func (d *Driver) summary(start time.Time) Summary {
	s := Summary{
		EventsSent: d.eventsSent,
		Errors:     d.errors,
		Elapsed:    time.Since(start),
		Generator:  d.gen.Stats(),
		Injector:   d.inj.Stats(),
		Latency:    d.lat.Stats(),
	}
	for _, w := range d.windows {
		s.Windows = append(s.Windows, w.Snapshot())
	}
	return s
}
