package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskstream_events_generated_total",
		Help: "Total number of events produced from the dataset.",
	})

	EventsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskstream_events_sent_total",
		Help: "Total number of events accepted by a sink.",
	})

	SendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskstream_send_errors_total",
		Help: "Total number of failed sink emissions.",
	})

	AnomaliesInjected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskstream_anomalies_injected_total",
		Help: "Total number of injected anomalies, labelled by pattern type.",
	}, []string{"type"})

	SimulatedLatencyMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskstream_simulated_latency_ms",
		Help:    "Sampled per-event network latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	LatencySpikes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskstream_latency_spikes_total",
		Help: "Total number of latency samples classified as spikes.",
	})

	WindowEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskstream_window_events",
		Help: "Events currently inside a trailing window, labelled by window length.",
	}, []string{"window"})

	WindowAnomalyRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskstream_window_anomaly_rate",
		Help: "Anomaly rate over a trailing window, labelled by window length.",
	}, []string{"window"})

	RecordsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskstream_records_persisted_total",
		Help: "Total number of events written to durable storage.",
	})

	PersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskstream_persist_errors_total",
		Help: "Total number of failed writes to durable storage.",
	})
)
