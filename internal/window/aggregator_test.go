package window

import (
	"testing"
	"time"

	"github.com/mteodoro/riskstream/internal/event"
)

func riskEvent(level string, creditLimit int64, anomalous bool) *event.Event {
	ev := &event.Event{
		Credit: event.Credit{CreditLimit: creditLimit},
		Risk:   event.Risk{RiskLevel: level},
	}
	if anomalous {
		ev.AnomalyFlags = []event.AnomalyFlag{{Type: "DUPLICATE_EVENT"}}
	}
	return ev
}

func TestAddAndEvict(t *testing.T) {
	a := New(10 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Freeze eviction time while filling.
	a.now = func() time.Time { return base }
	for i := 0; i <= 15; i++ {
		a.Add(riskEvent(event.RiskLow, 1000, false), base.Add(time.Duration(i)*time.Second))
	}
	if a.Len() != 16 {
		t.Fatalf("len before eviction = %d, want 16", a.Len())
	}

	// Advance to t+15: entries at t..t+4 fall outside [t+5, t+15].
	a.now = func() time.Time { return base.Add(15 * time.Second) }
	if got := len(a.Events()); got != 11 {
		t.Errorf("events inside window = %d, want 11", got)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	a := New(5 * time.Minute)
	st := a.Snapshot()
	if st.WindowLength != 5*time.Minute {
		t.Errorf("window length = %v", st.WindowLength)
	}
	if st.TotalEvents != 0 || st.AnomalyRate != 0 || st.AvgCreditLimit != 0 {
		t.Errorf("zero-count snapshot carries stats: %+v", st)
	}
}

func TestSnapshotStats(t *testing.T) {
	a := New(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	a.Add(riskEvent(event.RiskHigh, 100000, true), now)
	a.Add(riskEvent(event.RiskLow, 50000, false), now)
	a.Add(riskEvent(event.RiskLow, 30000, false), now)
	a.Add(riskEvent(event.RiskHigh, 20000, true), now)

	st := a.Snapshot()
	if st.TotalEvents != 4 {
		t.Fatalf("total = %d, want 4", st.TotalEvents)
	}
	if st.HighRiskEvents != 2 || st.LowRiskEvents != 2 {
		t.Errorf("risk split = %d/%d, want 2/2", st.HighRiskEvents, st.LowRiskEvents)
	}
	if st.Anomalies != 2 || st.AnomalyRate != 0.5 {
		t.Errorf("anomalies = %d rate %v, want 2 and 0.5", st.Anomalies, st.AnomalyRate)
	}
	if st.AvgCreditLimit != 50000 {
		t.Errorf("avg credit limit = %v, want 50000", st.AvgCreditLimit)
	}
	if want := 4.0 / 60.0; st.EventsPerSec != want {
		t.Errorf("events/sec = %v, want %v", st.EventsPerSec, want)
	}
}

func TestSnapshotEvictsBeforeComputing(t *testing.T) {
	a := New(10 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }

	a.Add(riskEvent(event.RiskHigh, 1000, true), base)
	a.Add(riskEvent(event.RiskLow, 2000, false), base.Add(20*time.Second))

	a.now = func() time.Time { return base.Add(25 * time.Second) }
	st := a.Snapshot()
	if st.TotalEvents != 1 {
		t.Fatalf("total after eviction = %d, want 1", st.TotalEvents)
	}
	if st.HighRiskEvents != 0 || st.Anomalies != 0 {
		t.Errorf("stale event leaked into stats: %+v", st)
	}
}

func TestEventsOrder(t *testing.T) {
	a := New(time.Hour)
	now := time.Now()
	first := riskEvent(event.RiskLow, 1, false)
	second := riskEvent(event.RiskHigh, 2, false)
	a.Add(first, now)
	a.Add(second, now.Add(time.Second))

	evs := a.Events()
	if len(evs) != 2 || evs[0] != first || evs[1] != second {
		t.Error("Events must preserve arrival order, oldest first")
	}
}
