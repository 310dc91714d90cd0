// Package window maintains trailing time-windows of events and derives live
// aggregate statistics over them.
package window

import (
	"time"

	"github.com/mteodoro/riskstream/internal/event"
)

// Stats are the aggregates over the current window contents. A zero-count
// snapshot carries only the window length.
type Stats struct {
	WindowLength   time.Duration
	TotalEvents    int
	HighRiskEvents int
	LowRiskEvents  int
	Anomalies      int
	AnomalyRate    float64
	AvgCreditLimit float64
	EventsPerSec   float64
}

type entry struct {
	ts time.Time
	ev *event.Event
}

// Aggregator keeps events received within the trailing window. Eviction is a
// linear scan on every Add and Snapshot, so memory stays bounded by arrival
// rate times window length.
type Aggregator struct {
	window  time.Duration
	entries []entry
	now     func() time.Time
}

// New creates an Aggregator with the given trailing window length.
func New(window time.Duration) *Aggregator {
	return &Aggregator{window: window, now: time.Now}
}

// WindowLength returns the configured trailing interval.
func (a *Aggregator) WindowLength() time.Duration {
	return a.window
}

// Add records ev as received at ts, then evicts entries that have fallen out
// of the window.
func (a *Aggregator) Add(ev *event.Event, ts time.Time) {
	a.entries = append(a.entries, entry{ts: ts, ev: ev})
	a.evict(a.now())
}

// Len returns the number of retained entries without evicting.
func (a *Aggregator) Len() int {
	return len(a.entries)
}

// Events returns the events currently inside the window, oldest first.
func (a *Aggregator) Events() []*event.Event {
	a.evict(a.now())
	evs := make([]*event.Event, len(a.entries))
	for i, e := range a.entries {
		evs[i] = e.ev
	}
	return evs
}

// Snapshot evicts stale entries and computes stats over the remainder.
func (a *Aggregator) Snapshot() Stats {
	a.evict(a.now())

	st := Stats{
		WindowLength: a.window,
		TotalEvents:  len(a.entries),
	}
	if st.TotalEvents == 0 {
		return st
	}

	var creditSum float64
	for _, e := range a.entries {
		switch e.ev.Risk.RiskLevel {
		case event.RiskHigh:
			st.HighRiskEvents++
		case event.RiskLow:
			st.LowRiskEvents++
		}
		if e.ev.Anomalous() {
			st.Anomalies++
		}
		creditSum += float64(e.ev.Credit.CreditLimit)
	}

	n := float64(st.TotalEvents)
	st.AnomalyRate = float64(st.Anomalies) / n
	st.AvgCreditLimit = creditSum / n
	st.EventsPerSec = n / a.window.Seconds()
	return st
}

func (a *Aggregator) evict(now time.Time) {
	cutoff := now.Add(-a.window)
	keep := a.entries[:0]
	for _, e := range a.entries {
		if !e.ts.Before(cutoff) {
			keep = append(keep, e)
		}
	}
	a.entries = keep
}
