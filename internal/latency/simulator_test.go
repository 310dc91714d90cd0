package latency

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestSampleNeverNegative(t *testing.T) {
	// High jitter relative to base forces the clamp to fire.
	s := New(10, 100, 0, rand.New(rand.NewSource(1)))
	for i := 0; i < 1000; i++ {
		if l := s.Sample(); l < 0 {
			t.Fatalf("negative latency %v", l)
		}
	}
}

func TestSampleSpikesInflate(t *testing.T) {
	s := New(100, 0, 1, rand.New(rand.NewSource(2)))
	for i := 0; i < 100; i++ {
		l := s.Sample()
		if l < 500 || l > 2000 {
			t.Fatalf("spike with zero jitter should land in [500, 2000], got %v", l)
		}
	}
	st := s.Stats()
	if st.SpikeCount != 100 {
		t.Errorf("spike count = %d, want 100", st.SpikeCount)
	}
	if st.SpikeRate != 1 {
		t.Errorf("spike rate = %v, want 1", st.SpikeRate)
	}
}

func TestConditionsOrderSeverity(t *testing.T) {
	sample := func(name string) float64 {
		s := New(0, 0, 0, rand.New(rand.NewSource(3)))
		if err := s.SetNetworkCondition(name); err != nil {
			t.Fatalf("SetNetworkCondition(%q): %v", name, err)
		}
		for i := 0; i < 2000; i++ {
			s.Sample()
		}
		return s.Stats().MeanMs
	}

	excellent := sample("excellent")
	terrible := sample("terrible")
	if terrible < excellent*10 {
		t.Errorf("terrible mean %v should dwarf excellent mean %v", terrible, excellent)
	}
}

func TestSetNetworkCondition(t *testing.T) {
	s := New(0, 0, 0, rand.New(rand.NewSource(1)))

	if err := s.SetNetworkCondition("normal"); err != nil {
		t.Fatalf("SetNetworkCondition: %v", err)
	}
	if s.BaseMs() != 100 {
		t.Errorf("normal base = %v, want 100", s.BaseMs())
	}

	err := s.SetNetworkCondition("catastrophic")
	if !errors.Is(err, ErrUnknownCondition) {
		t.Errorf("unknown condition: got %v, want ErrUnknownCondition", err)
	}
	if s.BaseMs() != 100 {
		t.Error("failed SetNetworkCondition must not alter settings")
	}
}

func TestConditionNames(t *testing.T) {
	names := ConditionNames()
	want := []string{"excellent", "good", "normal", "poor", "terrible"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestApplyTimeOfDayFactor(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{10, 150}, // morning peak
		{15, 150}, // afternoon peak
		{21, 120}, // evening
		{3, 50},   // night
		{13, 100}, // lunch trough, unchanged
		{19, 100}, // unchanged
	}
	for _, tt := range tests {
		s := New(100, 0, 0, rand.New(rand.NewSource(1)))
		if err := s.ApplyTimeOfDayFactor(tt.hour); err != nil {
			t.Fatalf("hour %d: %v", tt.hour, err)
		}
		if s.BaseMs() != tt.want {
			t.Errorf("hour %d: base %v, want %v", tt.hour, s.BaseMs(), tt.want)
		}
	}
}

func TestApplyTimeOfDayFactorInvalidHour(t *testing.T) {
	s := New(100, 0, 0, rand.New(rand.NewSource(1)))
	for _, hour := range []int{-1, 24, 100} {
		if err := s.ApplyTimeOfDayFactor(hour); !errors.Is(err, ErrInvalidHour) {
			t.Errorf("hour %d: got %v, want ErrInvalidHour", hour, err)
		}
	}
}

func TestPace(t *testing.T) {
	s := New(5, 0, 0, rand.New(rand.NewSource(1)))
	res := s.Pace(context.Background())
	if res.TargetMs != 5 {
		t.Errorf("target = %v, want 5", res.TargetMs)
	}
	if res.ElapsedMs < 4 {
		t.Errorf("elapsed %vms, want at least the ~5ms target", res.ElapsedMs)
	}
	if res.IsSpike {
		t.Error("plain sample flagged as spike")
	}
}

func TestPaceCancelledContext(t *testing.T) {
	s := New(5000, 0, 0, rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	s.Pace(ctx)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled pace took %v", elapsed)
	}
}

func TestStats(t *testing.T) {
	s := New(0, 0, 0, rand.New(rand.NewSource(1)))
	if st := s.Stats(); st.Count != 0 {
		t.Errorf("empty stats count = %d", st.Count)
	}

	// Deterministic samples via zero jitter and shifting base.
	for _, base := range []float64{10, 20, 30, 40} {
		s.baseMs = base
		s.Sample()
	}
	st := s.Stats()
	if st.Count != 4 {
		t.Errorf("count = %d, want 4", st.Count)
	}
	if st.MeanMs != 25 {
		t.Errorf("mean = %v, want 25", st.MeanMs)
	}
	if st.MedianMs != 25 {
		t.Errorf("median = %v, want 25", st.MedianMs)
	}
	if st.MinMs != 10 || st.MaxMs != 40 {
		t.Errorf("min/max = %v/%v, want 10/40", st.MinMs, st.MaxMs)
	}

	s.ResetStats()
	if st := s.Stats(); st.Count != 0 || st.SpikeCount != 0 {
		t.Errorf("stats after reset: %+v", st)
	}
}
